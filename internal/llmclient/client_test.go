package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChatCompletionSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", WithMaxRetries(0))
	resp, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, "hi", resp.Choices[0].Message.Content)
}

func TestChatCompletionRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithMaxRetries(3), WithRetryBaseDelay(time.Millisecond))
	resp, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	require.Equal(t, "ok", resp.Choices[0].Message.Content)
}

func TestChatCompletionGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithMaxRetries(2), WithRetryBaseDelay(time.Millisecond))
	_, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
}

func TestChatCompletionDoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithMaxRetries(3), WithRetryBaseDelay(time.Millisecond))
	_, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestChatCompletionAbortsOnTimeoutWithoutRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithMaxRetries(3), WithTimeout(5*time.Millisecond))
	_, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestChatCompletionStreamRejectsToolsInStreamingMode(t *testing.T) {
	c := New("http://example.invalid", "")
	err := c.ChatCompletionStream(context.Background(), ChatRequest{
		Tools: []ToolSpec{{Type: "function", Function: ToolFunction{Name: "t"}}},
	}, func(StreamChunk) error { return nil })
	require.Error(t, err)
}

func TestChatCompletionStreamParsesSSEChunksUntilDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	var out string
	err := c.ChatCompletionStream(context.Background(), ChatRequest{Model: "m"}, func(chunk StreamChunk) error {
		if len(chunk.Choices) > 0 {
			out += chunk.Choices[0].Delta.Content
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestEmbeddingsDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Embeddings(context.Background(), EmbeddingRequest{Model: "m", Input: []string{"hi"}})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	require.Equal(t, []float64{0.1, 0.2, 0.3}, resp.Data[0].Embedding)
}

func TestRerankDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"index":1,"score":0.9},{"index":0,"score":0.2}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Rerank(context.Background(), RerankRequest{Model: "m", Query: "q", Documents: []string{"a", "b"}})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Results[0].Index)
}
