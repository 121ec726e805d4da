package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Replicate predictions are one-shot: the request blocks server-side until
// the model finishes (Prefer: wait), so there is no polling here.

const (
	audioModel = "resemble-ai/chatterbox"
	videoModel = "kwaivgi/kling-v2.1"
)

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// GenerateAudio narrates text and returns the URL of the produced clip. When
// voicePath points at a recorded voice sample, it is sent along as the voice
// reference.
func (c *Client) GenerateAudio(ctx context.Context, text, voicePath string) (string, error) {
	const op = "generate audio"

	input := map[string]interface{}{
		"seed":         0,
		"prompt":       text,
		"cfg_weight":   0.5,
		"temperature":  0.8,
		"exaggeration": 0.5,
	}
	if voicePath != "" {
		uri, err := audioDataURI(voicePath)
		if err != nil {
			return "", providerErr("replicate", op, fmt.Errorf("read voice reference: %w", err))
		}
		input["audio_path"] = uri
	}

	return c.runPrediction(ctx, op, audioModel, input)
}

// GenerateVideo animates the start image per the motion prompt. Duration is
// fixed at 5 seconds in standard mode.
func (c *Client) GenerateVideo(ctx context.Context, startImagePath, prompt string) (string, error) {
	const op = "generate video"

	uri, err := imageDataURI(startImagePath)
	if err != nil {
		return "", providerErr("replicate", op, fmt.Errorf("read start image: %w", err))
	}

	input := map[string]interface{}{
		"mode":            "standard",
		"prompt":          prompt,
		"duration":        5,
		"start_image":     uri,
		"negative_prompt": "",
	}

	return c.runPrediction(ctx, op, videoModel, input)
}

func (c *Client) runPrediction(ctx context.Context, op, model string, input map[string]interface{}) (string, error) {
	const provider = "replicate"

	body, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return "", providerErr(provider, op, err)
	}

	url := fmt.Sprintf("%s/v1/models/%s/predictions", c.replicateBase, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", providerErr(provider, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.replicateKey)
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", providerErr(provider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", providerErr(provider, op, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet))
	}

	var prediction replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return "", providerErr(provider, op, fmt.Errorf("decode prediction: %w", err))
	}

	if prediction.Error != "" {
		return "", providerErr(provider, op, errors.New(prediction.Error))
	}
	if prediction.Status != "succeeded" {
		return "", providerErr(provider, op, fmt.Errorf("prediction %s ended with status %s", prediction.ID, prediction.Status))
	}

	out, err := predictionOutputURL(prediction.Output)
	if err != nil {
		return "", providerErr(provider, op, err)
	}
	return out, nil
}

// predictionOutputURL extracts the result URL; models return either a bare
// string or a list of URLs.
func predictionOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("prediction has no output")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}

	return "", fmt.Errorf("unrecognized prediction output: %s", raw)
}
