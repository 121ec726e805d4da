package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The Flux endpoint accepts a generation/edit job and hands back a polling
// URL. Jobs are polled at a fixed base interval with exponential backoff and
// a hard attempt cap; exhausting the cap is a timeout ProviderError.

const fluxModelPath = "/v1/flux-kontext-pro"

// maximum delay between polls once backoff has grown
const fluxMaxPollDelay = 8 * time.Second

type fluxSubmitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type fluxPollResponse struct {
	Status string `json:"status"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// GenerateImage produces an image from a text prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	payload := map[string]interface{}{
		"prompt":       prompt,
		"aspect_ratio": aspectRatio,
	}
	return c.runImageJob(ctx, "generate image", payload)
}

// EditImage edits the given base image per the prompt.
func (c *Client) EditImage(ctx context.Context, baseImage []byte, prompt, aspectRatio string) ([]byte, error) {
	payload := map[string]interface{}{
		"prompt":       prompt,
		"input_image":  bytesDataURI(baseImage),
		"aspect_ratio": aspectRatio,
	}
	return c.runImageJob(ctx, "edit image", payload)
}

func (c *Client) runImageJob(ctx context.Context, op string, payload map[string]interface{}) ([]byte, error) {
	const provider = "flux"

	submit, err := c.submitImageJob(ctx, payload)
	if err != nil {
		return nil, providerErr(provider, op, err)
	}

	delay := c.pollInterval
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, providerErr(provider, op, ctx.Err())
		case <-time.After(delay):
		}

		result, err := c.pollImageJob(ctx, submit)
		if err != nil {
			return nil, providerErr(provider, op, err)
		}

		switch result.Status {
		case "Ready":
			data, err := c.fetchBytes(ctx, result.Result.Sample)
			if err != nil {
				return nil, providerErr(provider, op, err)
			}
			return data, nil
		case "Error", "Failed":
			return nil, providerErr(provider, op, fmt.Errorf("job %s ended with status %s", submit.ID, result.Status))
		}

		if delay < fluxMaxPollDelay {
			delay *= 2
			if delay > fluxMaxPollDelay {
				delay = fluxMaxPollDelay
			}
		}
	}

	return nil, timeoutErr(provider, op, c.maxPollAttempts)
}

func (c *Client) submitImageJob(ctx context.Context, payload map[string]interface{}) (*fluxSubmitResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fluxBaseURL+fluxModelPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-key", c.fluxKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("submit: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var submit fluxSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submit); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	if submit.PollingURL == "" {
		return nil, fmt.Errorf("submit response missing polling_url")
	}
	return &submit, nil
}

func (c *Client) pollImageJob(ctx context.Context, submit *fluxSubmitResponse) (*fluxPollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, submit.PollingURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-key", c.fluxKey)
	q := req.URL.Query()
	q.Set("id", submit.ID)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("poll: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var result fluxPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return &result, nil
}

func (c *Client) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
