package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StoryScene is one narrative beat. Scenes are played back in array order;
// SceneID is carried for clients but is never used for indexing.
type StoryScene struct {
	SceneID     int    `json:"scene_id" jsonschema_description:"Sequential scene number starting at 1"`
	Heading     string `json:"heading" jsonschema_description:"Short scene title"`
	Text        string `json:"text" jsonschema_description:"Scene narration with sensory details, dialogue, and action"`
	ImagePrompt string `json:"image_prompt" jsonschema_description:"Instruction for editing the running base image to depict this scene"`
}

// Story is the structured narrative produced by the story pipeline.
type Story struct {
	Title    string       `json:"title" jsonschema_description:"Creative, age-appropriate title"`
	AgeGroup string       `json:"age_group" jsonschema_description:"Target age group, e.g. 5-7"`
	Genre    string       `json:"genre" jsonschema_description:"Adventure, Mystery, Fantasy, etc."`
	Tone     string       `json:"tone" jsonschema_description:"Whimsical, heartwarming, serious, etc."`
	Scenes   []StoryScene `json:"scenes" jsonschema_description:"Ordered scenes; order is playback order"`
	Moral    string       `json:"moral,omitempty" jsonschema_description:"Optional moral for young audiences"`
}

// SchemaParseError reports LLM output that does not satisfy the story or
// description schema. Provider output is treated as untrusted: every required
// field is checked before anything is stored.
type SchemaParseError struct {
	Field    string
	Expected string
	Got      string
}

func (e *SchemaParseError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("schema parse failed: field %q: expected %s", e.Field, e.Expected)
	}
	return fmt.Sprintf("schema parse failed: field %q: expected %s, got %s", e.Field, e.Expected, e.Got)
}

// ParseStory decodes raw LLM output into a validated Story. Markdown code
// fences around the JSON are tolerated since models add them despite
// instructions.
func ParseStory(raw string) (*Story, error) {
	cleaned := StripCodeFence(raw)

	var story Story
	if err := json.Unmarshal([]byte(cleaned), &story); err != nil {
		return nil, &SchemaParseError{Field: "(root)", Expected: "JSON object", Got: truncate(cleaned, 80)}
	}
	if err := story.Validate(); err != nil {
		return nil, err
	}
	return &story, nil
}

// Validate checks every field the downstream pipelines rely on.
func (s *Story) Validate() error {
	if s.Title == "" {
		return &SchemaParseError{Field: "title", Expected: "non-empty string"}
	}
	if s.AgeGroup == "" {
		return &SchemaParseError{Field: "age_group", Expected: "non-empty string"}
	}
	if s.Genre == "" {
		return &SchemaParseError{Field: "genre", Expected: "non-empty string"}
	}
	if s.Tone == "" {
		return &SchemaParseError{Field: "tone", Expected: "non-empty string"}
	}
	if len(s.Scenes) == 0 {
		return &SchemaParseError{Field: "scenes", Expected: "non-empty array"}
	}
	for i, scene := range s.Scenes {
		if scene.Heading == "" {
			return &SchemaParseError{Field: fmt.Sprintf("scenes[%d].heading", i), Expected: "non-empty string"}
		}
		if scene.Text == "" {
			return &SchemaParseError{Field: fmt.Sprintf("scenes[%d].text", i), Expected: "non-empty string"}
		}
		if scene.ImagePrompt == "" {
			return &SchemaParseError{Field: fmt.Sprintf("scenes[%d].image_prompt", i), Expected: "non-empty string"}
		}
	}
	return nil
}

// StripCodeFence removes a surrounding ```json ... ``` fence if present.
func StripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
