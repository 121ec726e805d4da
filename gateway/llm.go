package gateway

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
)

// GenerateText calls the chat completions API and returns the final text.
// When req.Schema is set, a strict JSON-schema response format is attached so
// the provider is constrained to the expected shape; callers still validate.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	const provider = "openai"

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
	}
	if req.ImagePath != "" {
		uri, err := imageDataURI(req.ImagePath)
		if err != nil {
			return "", providerErr(provider, "generate text", err)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: uri,
		}))
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(parts),
		},
		Model: c.model,
	}

	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "structured_response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        name,
					Description: openai.String("Structured data response"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	chatCompletion, err := c.llm.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", providerErr(provider, "generate text", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return "", providerErr(provider, "generate text", errors.New("no choices in response"))
	}

	return chatCompletion.Choices[0].Message.Content, nil
}
