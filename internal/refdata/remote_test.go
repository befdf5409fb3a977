package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := fetchBaseBackoff
	fetchBaseBackoff = time.Millisecond
	t.Cleanup(func() { fetchBaseBackoff = orig })
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"http://example.com/data.yaml", true},
		{"https://example.com/data.xlsx", true},
		{"data.yaml", false},
		{"/tmp/data.yaml", false},
		{"ftp://example.com/data.yaml", false},
		{"https://", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isRemote(tt.path))
		})
	}
}

func TestRemoteExt(t *testing.T) {
	assert.Equal(t, ".yaml", remoteExt("https://example.com/a/data.YAML?v=2"))
	assert.Equal(t, ".xlsx", remoteExt("https://example.com/data.xlsx"))
	assert.Equal(t, "", remoteExt("https://example.com/"))
}

func TestLoad_Remote(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First request fails to exercise the retry path.
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, fetchUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(testYAML))
	}))
	defer srv.Close()

	ds, err := Load(context.Background(), Source{Path: srv.URL + "/boston/data.yaml"})
	require.NoError(t, err)
	assert.Len(t, ds.Districts(), 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoad_RemoteNotFound(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{Path: srv.URL + "/data.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoad_RemoteRetriesExhausted(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{Path: srv.URL + "/data.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.Equal(t, int32(fetchMaxRetries), calls.Load())
}

func TestLoad_RemoteUnsupportedFormat(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{Path: srv.URL + "/data.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dataset format")
	assert.Zero(t, calls.Load())
}

func TestLoad_RemoteCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, Source{Path: srv.URL + "/data.yaml"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
