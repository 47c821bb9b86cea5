package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"Naqqal/internal/story"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(t *testing.T, baseURL string, streaming bool) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:    "test-key",
		BaseURL:   baseURL + "/v1",
		Streaming: streaming,
	}, tracenoop.NewTracerProvider().Tracer("test"), metricnoop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return c
}

type capturedRequest struct {
	Model     string `json:"model"`
	Stream    bool   `json:"stream"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return string(b)
}

func chunkBody(delta string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":      "cmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{"index": 0, "delta": map[string]string{"content": delta}},
		},
	})
	return string(b)
}

func TestGenerateNonStreaming(t *testing.T) {
	var captured capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("The dust rises. [1. Fight]"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)
	history := []story.Turn{
		{Speaker: story.SpeakerSystem, Text: "narrate"},
		{Speaker: story.SpeakerUser, Text: "begin"},
	}

	text, err := c.Generate(context.Background(), history, nil)
	require.NoError(t, err)
	assert.Equal(t, "The dust rises. [1. Fight]", text)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Equal(t, 1024, captured.MaxTokens)
	assert.False(t, captured.Stream)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "narrate", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestGenerateStreamingAccumulates(t *testing.T) {
	deltas := []string{"The dust ", "rises. ", "[1. Fight]"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var captured capturedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		assert.True(t, captured.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: %s\n\n", chunkBody(d))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, true)

	var partials []string
	text, err := c.Generate(context.Background(), []story.Turn{
		{Speaker: story.SpeakerUser, Text: "begin"},
	}, func(partial string) {
		partials = append(partials, partial)
	})
	require.NoError(t, err)

	// The accumulated result equals what a non-streaming call returns.
	assert.Equal(t, "The dust rises. [1. Fight]", text)

	// Partials grow monotonically and end at the full text.
	require.Len(t, partials, 3)
	assert.Equal(t, "The dust ", partials[0])
	assert.Equal(t, "The dust rises. ", partials[1])
	assert.Equal(t, text, partials[2])
}

func TestGenerateAuthenticationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)
	_, err := c.Generate(context.Background(), []story.Turn{{Speaker: story.SpeakerUser, Text: "begin"}}, nil)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestGenerateServerErrorIsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)
	_, err := c.Generate(context.Background(), []story.Turn{{Speaker: story.SpeakerUser, Text: "begin"}}, nil)
	assert.ErrorIs(t, err, ErrBackend)
}

func TestGenerateEmptyChoicesIsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)
	_, err := c.Generate(context.Background(), []story.Turn{{Speaker: story.SpeakerUser, Text: "begin"}}, nil)
	assert.ErrorIs(t, err, ErrBackend)
}

func TestGenerateConnectionRefusedIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := newTestClient(t, srv.URL, false)
	_, err := c.Generate(context.Background(), []story.Turn{{Speaker: story.SpeakerUser, Text: "begin"}}, nil)
	assert.ErrorIs(t, err, ErrTransport)
}
