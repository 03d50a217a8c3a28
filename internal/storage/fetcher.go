package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	apperrors "screenvec/internal/errors"
)

// Fetcher downloads remote scan images.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
	Download(ctx context.Context, rawURL, destDir string) (string, error)
}

type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with connection pooling sized for
// occasional single-file downloads and a 3-attempt retry policy.
func NewHTTPFetcher() Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &httpFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Fetch retrieves the body at rawURL. Transient failures and 5xx
// responses are retried up to 3 attempts with linear backoff; 4xx
// responses fail immediately.
func (h *httpFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid URL: "+rawURL, err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "screenvec/1.0")

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeoutError("fetch cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
				continue
			}
			return data, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("status code %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, apperrors.NewNetworkError("fetch failed: "+rawURL, lastErr)
		}
	}

	return nil, apperrors.NewNetworkError("fetch failed after 3 attempts: "+rawURL, lastErr)
}

// Download fetches rawURL and writes it into destDir, named after the
// last URL path segment. Returns the written filename.
func (h *httpFetcher) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", apperrors.NewValidationError("invalid URL: "+rawURL, err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", apperrors.NewValidationError("URL has no file name: "+rawURL, nil)
	}

	data, err := h.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", apperrors.NewInternalError("failed to create incoming directory", err)
	}
	dest := filepath.Join(destDir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", apperrors.NewInternalError("failed to write "+dest, err)
	}
	return name, nil
}
