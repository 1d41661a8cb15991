package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealHTTPClient_GetBytes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"name":"Cat"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/throttled":
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		case "/large":
			_, _ = w.Write(make([]byte, 64))
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(2 * time.Second)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		body, err := client.GetBytes(ctx, srv.URL+"/ok", 0)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"Cat"}`, string(body))
	})

	t.Run("non-OK status is permanent", func(t *testing.T) {
		_, err := client.GetBytes(ctx, srv.URL+"/missing", 0)
		var statusErr *HTTPStatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})

	t.Run("rate limited is retried", func(t *testing.T) {
		body, err := client.GetBytes(ctx, srv.URL+"/throttled", 0)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(body))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("body over limit", func(t *testing.T) {
		_, err := client.GetBytes(ctx, srv.URL+"/large", 16)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds 16 bytes")

		body, err := client.GetBytes(ctx, srv.URL+"/large", 64)
		require.NoError(t, err)
		assert.Len(t, body, 64)
	})
}
