package gateway

import (
	"context"
	"fmt"
)

// TextRequest describes one LLM call. When Schema is set, the provider is
// asked for strict JSON matching it; callers still must validate the output.
type TextRequest struct {
	SystemPrompt string
	Prompt       string
	ImagePath    string
	Schema       interface{}
	SchemaName   string
}

// Gateway is the uniform contract over the remote generation providers. Every
// operation blocks until the provider finishes (or the context is done) and
// fails only with *ProviderError.
type Gateway interface {
	// GenerateText returns the provider's final concatenated text output.
	GenerateText(ctx context.Context, req TextRequest) (string, error)

	// GenerateImage produces an image from text alone.
	GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error)

	// EditImage edits baseImage per the prompt and returns the result bytes.
	EditImage(ctx context.Context, baseImage []byte, prompt, aspectRatio string) ([]byte, error)

	// GenerateAudio narrates text, optionally cloning the voice found at
	// voicePath, and returns a URL to the produced audio.
	GenerateAudio(ctx context.Context, text, voicePath string) (string, error)

	// GenerateVideo animates the start image per the motion prompt (fixed
	// 5 second clip) and returns a URL to the produced video.
	GenerateVideo(ctx context.Context, startImagePath, prompt string) (string, error)

	// FetchToFile downloads a provider-hosted resource to dest.
	FetchToFile(ctx context.Context, url, dest string) error
}

// ProviderError is the only error kind the gateway produces. Timeout marks
// polling that exhausted its attempt budget.
type ProviderError struct {
	Op       string
	Provider string
	Timeout  bool
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: %s timed out: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
