package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// FetchToFile downloads a provider-hosted resource to dest. A partial file is
// removed on failure.
func (c *Client) FetchToFile(ctx context.Context, url, dest string) error {
	const provider = "fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return providerErr(provider, "download", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providerErr(provider, "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providerErr(provider, "download", fmt.Errorf("%s: HTTP %d", url, resp.StatusCode))
	}

	out, err := os.Create(dest)
	if err != nil {
		return providerErr(provider, "download", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return providerErr(provider, "download", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return providerErr(provider, "download", err)
	}
	return nil
}
