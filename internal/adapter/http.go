package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// GetBytes performs a GET request and returns at most limit bytes of the response body.
	// A body larger than limit is an error. A limit of 0 means unbounded.
	GetBytes(ctx context.Context, url string, limit int64) ([]byte, error)
}

// HTTPStatusError is returned for non-OK responses
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a new real HTTP client
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetBytes implements HTTPClient. Rate-limited (429) responses are retried with
// exponential backoff until the context expires.
func (c *RealHTTPClient) GetBytes(ctx context.Context, url string, limit int64) ([]byte, error) {
	var respBody []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("url", url))
			}
		}()

		// Handle rate limiting - retry with backoff
		if resp.StatusCode == http.StatusTooManyRequests {
			logger.Warn("rate limited, retrying with backoff", zap.String("url", url))
			return &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
		}

		// Other non-OK status codes are permanent errors
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&HTTPStatusError{StatusCode: resp.StatusCode, URL: url})
		}

		reader := io.Reader(resp.Body)
		if limit > 0 {
			reader = io.LimitReader(resp.Body, limit+1)
		}
		respBody, err = io.ReadAll(reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}
		if limit > 0 && int64(len(respBody)) > limit {
			return backoff.Permanent(fmt.Errorf("response body exceeds %d bytes", limit))
		}

		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}

	return respBody, nil
}
