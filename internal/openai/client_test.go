package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Provider: "openrouter",
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Headers:  map[string]string{"X-Title": "Ad Tester"},
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestComplete_SendsMultimodalRequest(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "Ad Tester", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"resonanceScore\":80}"}}]}`))
	})

	img, err := prompt.ParseDataURI("data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), prompt.Payload{System: "sys", Text: "txt", Image: img})
	require.NoError(t, err)
	assert.Equal(t, `{"resonanceScore":80}`, out)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, got["response_format"])

	messages := got["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "sys", messages[0].(map[string]interface{})["content"])

	parts := messages[1].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "txt", parts[0].(map[string]interface{})["text"])
	assert.Equal(t, img.URI, parts[1].(map[string]interface{})["image_url"].(map[string]interface{})["url"])
}

func TestComplete_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		want   error
	}{
		{"auth", http.StatusUnauthorized, nil, `{"error":{"message":"bad key"}}`, llm.ErrAuth},
		{"rate limit", http.StatusTooManyRequests, map[string]string{"Retry-After": "7"}, `{}`, llm.ErrRateLimit},
		{"bad request", http.StatusBadRequest, nil, `{"error":{"message":"image too large"}}`, llm.ErrBadRequest},
		{"server error", http.StatusBadGateway, nil, `upstream`, llm.ErrUnavailable},
		{"empty choices", http.StatusOK, nil, `{"choices":[]}`, llm.ErrEmptyResponse},
		{"null content", http.StatusOK, nil, `{"choices":[{"message":{"content":null}}]}`, llm.ErrEmptyResponse},
		{"embedded error", http.StatusOK, nil, `{"error":{"message":"slow down","code":429}}`, llm.ErrRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Complete(context.Background(), prompt.Payload{System: "s", Text: "t"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			if tt.name == "rate limit" {
				assert.Equal(t, "7s", llm.RetryAfter(err).String())
			}
		})
	}
}

func TestComplete_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), prompt.Payload{Text: "t"})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{Provider: "groq"}, zap.NewNop())
	assert.EqualError(t, err, "groq API key is required")
}
