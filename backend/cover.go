package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CoverClient downloads album artwork for embedding.
type CoverClient struct {
	http *http.Client
}

func NewCoverClient() *CoverClient {
	return &CoverClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch returns the raw image bytes at coverURL.
func (c *CoverClient) Fetch(ctx context.Context, coverURL string) ([]byte, error) {
	if coverURL == "" {
		return nil, fmt.Errorf("no cover URL provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover body: %w", err)
	}
	return data, nil
}
