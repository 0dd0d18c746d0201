package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferPostsWindowAndDecodesProbabilities(t *testing.T) {
	want := []float32{0.1, 0.6, 0.1, 0.1, 0.05, 0.05}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/infer", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Window, 8)

		json.NewEncoder(w).Encode(inferResponse{Probabilities: want})
	}))
	defer ts.Close()

	b := New(ts.URL, 8)
	got, err := b.Infer(context.Background(), make([]float32, 8))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 8, b.InputLen())
}

func TestInferReportsServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	b := New(ts.URL, 8)
	_, err := b.Infer(context.Background(), make([]float32, 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestInferReportsMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer ts.Close()

	b := New(ts.URL, 8)
	_, err := b.Infer(context.Background(), make([]float32, 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestInferHonorsContextCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	b := New(ts.URL, 8)
	_, err := b.Infer(ctx, make([]float32, 8))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInferFailsWhenServerUnreachable(t *testing.T) {
	b := New("http://127.0.0.1:1", 8)
	_, err := b.Infer(context.Background(), make([]float32, 8))
	assert.Error(t, err)
}
