package feedimport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/linkboard/internal/config"
)

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectError    string
	}{
		{
			name: "successful fetch",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != "linkboard-test/1.0" {
					t.Errorf("expected User-Agent linkboard-test/1.0, got %s", r.Header.Get("User-Agent"))
				}
				if r.Header.Get("Accept") == "" {
					t.Error("expected an Accept header")
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("<rss></rss>"))
			},
		},
		{
			name: "server error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError: "HTTP error: 500",
		},
		{
			name: "rate limit with retry-after",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			expectError: "retry after 1m0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			fetcher := NewFetcher(config.TestConfig())
			resp, err := fetcher.Fetch(context.Background(), server.URL)

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, "<rss></rss>", string(body))
		})
	}
}

func TestFetcher_FetchCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(config.TestConfig()).Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
