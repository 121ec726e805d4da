package processing

import (
	"context"
	"encoding/json"

	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
)

var imageDescriptionSchema = GenerateSchema[models.ImageDescription]()

// DescribeImage analyzes the image at imagePath into a structured
// description. Provider output is untrusted: both fields are required.
func DescribeImage(ctx context.Context, gw gateway.Gateway, imagePath string) (models.ImageDescription, error) {
	raw, err := gw.GenerateText(ctx, gateway.TextRequest{
		SystemPrompt: ImageDescriptionSystemPrompt,
		Prompt:       "Describe the image in detail",
		ImagePath:    imagePath,
		Schema:       imageDescriptionSchema,
		SchemaName:   "image_description",
	})
	if err != nil {
		return models.ImageDescription{}, err
	}

	var desc models.ImageDescription
	if err := json.Unmarshal([]byte(models.StripCodeFence(raw)), &desc); err != nil {
		return models.ImageDescription{}, &models.SchemaParseError{Field: "(root)", Expected: "JSON object"}
	}
	if desc.Subject == "" {
		return models.ImageDescription{}, &models.SchemaParseError{Field: "subject", Expected: "non-empty string"}
	}
	if desc.ImageDescription == "" {
		return models.ImageDescription{}, &models.SchemaParseError{Field: "image_description", Expected: "non-empty string"}
	}
	return desc, nil
}
