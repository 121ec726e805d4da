package processing

import (
	"context"
	"fmt"
	"os"

	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
)

var storySchema = GenerateSchema[models.Story]()

// BuildStory turns the session's image description plus the user's prompt
// into a validated multi-scene story.
func BuildStory(ctx context.Context, gw gateway.Gateway, desc models.ImageDescription, storyPrompt string) (*models.Story, error) {
	fullPrompt := fmt.Sprintf("A story about %s %s", desc.ImageDescription, storyPrompt)

	raw, err := gw.GenerateText(ctx, gateway.TextRequest{
		SystemPrompt: StorySystemPrompt,
		Prompt:       fullPrompt,
		Schema:       storySchema,
		SchemaName:   "story",
	})
	if err != nil {
		return nil, err
	}

	return models.ParseStory(raw)
}

// StyleImage restyles the image at basePath per the style instruction and
// returns the new image bytes. The original file is left untouched so the
// caller keeps an undo path.
func StyleImage(ctx context.Context, gw gateway.Gateway, basePath, stylePrompt, aspectRatio string) ([]byte, error) {
	base, err := os.ReadFile(basePath)
	if err != nil {
		return nil, fmt.Errorf("read base image: %w", err)
	}
	prompt := fmt.Sprintf("Make the image look like %s", stylePrompt)
	return gw.EditImage(ctx, base, prompt, aspectRatio)
}
