package openai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visarag/internal/embedding"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TEST_OPENAI_KEY", "test-key")
	client, err := NewClient(Config{
		BaseURL:   srv.URL,
		APIKeyEnv: "TEST_OPENAI_KEY",
		Model:     "test-model",
	})
	require.NoError(t, err)
	return client
}

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_OPENAI_KEY"})
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Equal(t, "student visa", body.Input)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{3, 4}}},
		})
	})

	vec, err := client.Embed(context.Background(), "student visa")
	require.NoError(t, err)
	require.Len(t, vec, 2)

	// The response is L2-normalized before it reaches the caller.
	assert.InDelta(t, 0.6, vec[0], 1e-9)
	assert.InDelta(t, 0.8, vec[1], 1e-9)
	assert.InDelta(t, 1.0, math.Hypot(vec[0], vec[1]), 1e-9)
	assert.Equal(t, 2, client.Dimension())
}

func TestEmbedEmptyText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	_, err := client.Embed(context.Background(), "")
	var embErr *embedding.Error
	require.True(t, errors.As(err, &embErr))
}

func TestEmbedServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Embed(context.Background(), "student visa")
	require.Error(t, err)
	var embErr *embedding.Error
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, "test-model", embErr.Model)
}

func TestEmbedEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	_, err := client.Embed(context.Background(), "student visa")
	var embErr *embedding.Error
	require.True(t, errors.As(err, &embErr))
}
