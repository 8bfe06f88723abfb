package provider

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

func openAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestOpenAICaller_Success(t *testing.T) {
	body := `{
		"model": "gpt-4o-mini",
		"choices": [{"message": {"role": "assistant", "content": "Reasoning: the applicant clearly qualifies.\n\nDecision: APPROVE"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
	}`
	srv := openAIServer(t, http.StatusOK, body)
	defer srv.Close()

	caller, err := NewOpenAICaller(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := caller.Call(context.Background(), "case details", "policy context", CallOptions{Temperature: 0.2, MaxTokens: 500})
	require.NoError(t, err)

	assert.Equal(t, "openai", res.Provider)
	assert.Contains(t, res.Content, "APPROVE")
	assert.Equal(t, "the applicant clearly qualifies.", res.Reasoning)
	assert.Equal(t, 150, res.TokensUsed)
	require.NotNil(t, res.Confidence)
	// stop + "clearly" marker: 0.5 + 0.2 + 0.05
	assert.InDelta(t, 0.75, *res.Confidence, 1e-9)
}

func TestOpenAICaller_SendsSystemContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "policy context", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"DENY"},"finish_reason":"stop"}],"usage":{"total_tokens":10}}`))
	}))
	defer srv.Close()

	caller, err := NewOpenAICaller(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), "case", "policy context", CallOptions{})
	require.NoError(t, err)
}

func TestOpenAICaller_ErrorClassification(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		recoverable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"bad request", http.StatusBadRequest, false},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := openAIServer(t, tc.status, `{}`)
			defer srv.Close()

			caller, err := NewOpenAICaller(Config{APIKey: "test-key", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = caller.Call(context.Background(), "p", "s", CallOptions{})
			require.Error(t, err)
			assert.Equal(t, tc.recoverable, IsRecoverable(err))
		})
	}
}

func TestOpenAICaller_TimeoutIsRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	caller, err := NewOpenAICaller(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = caller.Call(ctx, "p", "s", CallOptions{})
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
}

func TestOpenAICaller_EmptyChoices(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"choices":[]}`)
	defer srv.Close()

	caller, err := NewOpenAICaller(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), "p", "s", CallOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestNewOpenAICaller_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAICaller(Config{})
	require.Error(t, err)
	assert.False(t, IsRecoverable(err))
}

func TestNewLlamaCaller_NoKeyRequired(t *testing.T) {
	caller, err := NewLlamaCaller(Config{})
	require.NoError(t, err)
	assert.Equal(t, "llama", caller.ID())
	assert.Equal(t, "llama3.1:8b", caller.Model())
}

func TestPing_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"id":"llama3.1:8b"}]}`))
	}))
	defer srv.Close()

	caller, err := NewLlamaCaller(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, caller.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	caller, err := NewLlamaCaller(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	err = caller.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
}

func TestPing_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bad-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	caller, err := NewOpenAICaller(Config{APIKey: "bad-key", BaseURL: srv.URL})
	require.NoError(t, err)

	err = caller.Ping(context.Background())
	require.Error(t, err)
	assert.False(t, IsRecoverable(err))
}
