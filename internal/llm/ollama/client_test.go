package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlist-digest/internal/llm"
)

func TestModelID(t *testing.T) {
	assert.Equal(t, "llama3.2", ModelID("llama3.2"))
	assert.Equal(t, "mistral", ModelID("mistral"))
	assert.Equal(t, "qwen2.5:7b", ModelID("qwen2.5:7b"))
}

func TestNewClientRejectsEmptyModel(t *testing.T) {
	_, err := NewClient(llm.ModelConfig{Model: "  "})
	assert.ErrorIs(t, err, llm.ErrConfiguration)
}

func TestRawInvoke(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Model: got.Model, Response: `{"category": "Security"}`, Done: true})
	}))
	defer srv.Close()

	cfg := llm.DefaultModelConfig()
	cfg.Temperature = 0
	c, err := NewClient(cfg, WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	out, err := c.RawInvoke(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Equal(t, `{"category": "Security"}`, out)

	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "classify this", got.Prompt)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	assert.Equal(t, 4, got.Options.NumThread)
	assert.Equal(t, 16384, got.Options.NumCtx)
	assert.Equal(t, 2, got.Options.RepeatLastN)
	assert.Equal(t, 0.0, got.Options.Temperature)
}

func TestRawInvokeStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"unknown model", http.StatusNotFound, `{"error":"model 'nope' not found"}`, false},
		{"overloaded", http.StatusServiceUnavailable, `{"error":"server busy"}`, true},
		{"rate limited", http.StatusTooManyRequests, `slow down`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(llm.ModelConfig{Model: "nope"}, WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = c.RawInvoke(context.Background(), "p")
			require.Error(t, err)
			assert.ErrorIs(t, err, llm.ErrBackend)
			assert.Equal(t, tt.retryable, llm.IsRetryable(err))
		})
	}
}

func TestRawInvokeUnreachableIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(llm.ModelConfig{Model: "mistral"}, WithBaseURL(url))
	require.NoError(t, err)

	_, err = c.RawInvoke(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrBackend)
	assert.True(t, llm.IsRetryable(err))
}

func TestRawInvokeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := NewClient(llm.ModelConfig{Model: "mistral"}, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.RawInvoke(context.Background(), "p")
	assert.ErrorIs(t, err, llm.ErrParse)
	assert.False(t, llm.IsRetryable(err))
}
