package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirigent/internal/types"
)

func TestParseContextResponse(t *testing.T) {
	t.Run("plain_json", func(t *testing.T) {
		got, err := parseContextResponse(`{"layer":"3-Domain","topics":["Security"],"keywords":["jwt"],"technologies":["GO"],"confidence":0.9}`)
		require.NoError(t, err)
		assert.Equal(t, types.LayerDomain, got.Layer)
		assert.Equal(t, []string{"security"}, got.Topics)
		assert.Equal(t, []string{"go"}, got.Technologies)
		assert.Equal(t, 0.9, got.Confidence)
	})

	t.Run("fenced_json", func(t *testing.T) {
		response := "Here you go:\n```json\n{\"layer\":\"1-Presentation\",\"confidence\":0.7}\n```"
		got, err := parseContextResponse(response)
		require.NoError(t, err)
		assert.Equal(t, types.LayerPresentation, got.Layer)
	})

	t.Run("unknown_layer_becomes_wildcard", func(t *testing.T) {
		got, err := parseContextResponse(`{"layer":"8-Quantum","confidence":0.5}`)
		require.NoError(t, err)
		assert.Equal(t, types.LayerWildcard, got.Layer)
	})

	t.Run("confidence_clamped", func(t *testing.T) {
		got, err := parseContextResponse(`{"layer":"*","confidence":3.5}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Confidence)
	})

	t.Run("no_json_is_error", func(t *testing.T) {
		_, err := parseContextResponse("I cannot help with that.")
		require.Error(t, err)
	})

	t.Run("unbalanced_json_is_error", func(t *testing.T) {
		_, err := parseContextResponse(`{"layer":"3-Domain"`)
		require.Error(t, err)
	})
}

func TestRuleBasedProvider(t *testing.T) {
	p := NewRuleBasedProvider("rules")
	assert.True(t, p.IsAvailable(context.Background()))

	got, err := p.DetectContext(context.Background(), "Create a React component with form validation")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.LayerPresentation, got.Layer)
	assert.Contains(t, got.Topics, "validation")
	assert.Contains(t, got.Technologies, "react")
	assert.Greater(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 0.95)
}

func TestRuleBasedProvider_SubResults(t *testing.T) {
	p := NewRuleBasedProvider("rules")
	taskCtx, layerRes, topicRes := p.DetectWithSubResults(context.Background(), "fix the sql injection in the login form")
	require.NotNil(t, taskCtx)
	require.NotNil(t, layerRes)
	assert.NotEmpty(t, topicRes)
	assert.Equal(t, layerRes.Layer, taskCtx.Layer)
}

func TestRemoteAPIProvider_DetectContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			w.WriteHeader(http.StatusOK)
		case "/chat/completions":
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 2)

			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{
						"content": `{"layer":"5-Data","topics":["database"],"keywords":["migration"],"confidence":0.85}`,
					}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewRemoteAPIProvider(RemoteAPIConfig{Name: "test", BaseURL: srv.URL, APIKey: "test-key"})

	assert.True(t, p.IsAvailable(context.Background()))

	got, err := p.DetectContext(context.Background(), "write a migration")
	require.NoError(t, err)
	assert.Equal(t, types.LayerData, got.Layer)
	assert.Equal(t, 0.85, got.Confidence)
}

func TestRemoteAPIProvider_ServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewRemoteAPIProvider(RemoteAPIConfig{Name: "test", BaseURL: srv.URL, APIKey: "k"})
	assert.False(t, p.IsAvailable(context.Background()))

	_, err := p.DetectContext(context.Background(), "task")
	require.Error(t, err)
}

func TestRemoteAPIProvider_NoKeyUnavailable(t *testing.T) {
	p := NewRemoteAPIProvider(RemoteAPIConfig{Name: "test"})
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestLocalInferenceProvider_DetectContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			json.NewEncoder(w).Encode(map[string]string{"version": "0.5.0"})
		case "/api/generate":
			var req ollamaGenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.False(t, req.Stream)
			json.NewEncoder(w).Encode(ollamaGenerateResponse{
				Response: `{"layer":"6-Testing","topics":["testing"],"confidence":0.6}`,
				Done:     true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewLocalInferenceProvider("local", srv.URL, "")
	assert.True(t, p.IsAvailable(context.Background()))

	got, err := p.DetectContext(context.Background(), "add unit tests")
	require.NoError(t, err)
	assert.Equal(t, types.LayerTesting, got.Layer)
}
