package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	apperrors "screenvec/internal/errors"
)

func TestFetcherRetryLogic(t *testing.T) {
	tests := []struct {
		name           string
		responses      []int // status codes to return in sequence
		expectRequests int
		expectError    bool
	}{
		{
			name:           "success on first attempt",
			responses:      []int{200},
			expectRequests: 1,
		},
		{
			name:           "success on second attempt after 5xx",
			responses:      []int{500, 200},
			expectRequests: 2,
		},
		{
			name:           "4xx client error fails without retry",
			responses:      []int{404},
			expectRequests: 1,
			expectError:    true,
		},
		{
			name:           "4xx after 5xx stops at the 4xx",
			responses:      []int{500, 404},
			expectRequests: 2,
			expectError:    true,
		},
		{
			name:           "all 5xx uses every attempt",
			responses:      []int{500, 502, 503},
			expectRequests: 3,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				status := 500
				if requestCount < len(tt.responses) {
					status = tt.responses[requestCount]
				}
				requestCount++
				if status == 200 {
					w.Write([]byte("image-bytes"))
					return
				}
				w.WriteHeader(status)
				fmt.Fprintf(w, "error %d", status)
			}))
			defer server.Close()

			data, err := NewHTTPFetcher().Fetch(context.Background(), server.URL)

			if requestCount != tt.expectRequests {
				t.Errorf("requests = %d, want %d", requestCount, tt.expectRequests)
			}
			if tt.expectError {
				if err == nil {
					t.Fatal("expected an error")
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
					t.Errorf("error type = %v, want network", err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(data) != "image-bytes" {
					t.Errorf("body = %q", data)
				}
			}
		})
	}
}

func TestFetcherInvalidURL(t *testing.T) {
	_, err := NewHTTPFetcher().Fetch(context.Background(), "http://\x7f bad")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestDownloadWritesURLBaseName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("scan-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	name, err := NewHTTPFetcher().Download(context.Background(), server.URL+"/scans/boot-menu.png", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "boot-menu.png" {
		t.Errorf("name = %q, want boot-menu.png", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != "scan-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadRejectsBareHost(t *testing.T) {
	_, err := NewHTTPFetcher().Download(context.Background(), "http://example.com", t.TempDir())
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}
