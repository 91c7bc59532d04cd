package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatFixture(content string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1719849600,
		"model":   "llama3.1",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func testLLMClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		Endpoint: srv.URL + "/v1/chat/completions",
		Model:    "llama3.1",
		Timeout:  2 * time.Second,
	})
}

func TestComplete(t *testing.T) {
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, chatFixture("Hello there"))
	}))

	resp, err := client.Complete(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Hello there", resp.Choices[0].Message.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestCompleteWithSystem(t *testing.T) {
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatFixture("The answer"))
	}))

	content, err := client.CompleteWithSystem(context.Background(), "be helpful", "question")
	require.NoError(t, err)
	assert.Equal(t, "The answer", content)
}

func TestCompleteServerErrorIsModelUnavailable(t *testing.T) {
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	var unavailable *ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestCompleteAPIErrorIsNotModelUnavailable(t *testing.T) {
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`)
	}))

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	var unavailable *ModelUnavailableError
	assert.False(t, errors.As(err, &unavailable))
	assert.Contains(t, err.Error(), "context length exceeded")
}

func TestCompleteWithSystemRetriesUnavailability(t *testing.T) {
	var calls int32
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chatFixture("recovered"))
	}))
	client.backoffBase = time.Millisecond

	content, err := client.CompleteWithSystem(context.Background(), "be helpful", "question")
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCompleteWithSystemGivesUpAfterRetries(t *testing.T) {
	var calls int32
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client.backoffBase = time.Millisecond

	_, err := client.CompleteWithSystem(context.Background(), "be helpful", "question")
	var unavailable *ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	// Default of 2 retries means 3 upstream calls in total.
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCompleteWithRetryDoesNotRetryAPIErrors(t *testing.T) {
	var calls int32
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad prompt","type":"invalid_request_error"}}`)
	}))
	client.backoffBase = time.Millisecond

	_, err := client.CompleteWithRetry(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 2)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestHealthCheck(t *testing.T) {
	client := testLLMClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/chat/completions/models" || r.URL.Path == "/v1/models" {
			fmt.Fprint(w, `{"object":"list","data":[]}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bare json", `{"needs_tools": true}`},
		{"json code block", "```json\n{\"needs_tools\": true}\n```"},
		{"plain code block", "```\n{\"needs_tools\": true}\n```"},
		{"leading prose", "Here you go:\n```json\n{\"needs_tools\": true}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target struct {
				NeedsTools bool `json:"needs_tools"`
			}
			require.NoError(t, ParseJSONResponse(tt.content, &target))
			assert.True(t, target.NeedsTools)
		})
	}
}
