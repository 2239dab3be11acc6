package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JillVernus/tc-relay/internal/config"
	"github.com/tidwall/gjson"
)

func testModel(endpoint string) config.ModelConfig {
	return config.ModelConfig{
		Provider:    "test",
		Model:       "test-model",
		Endpoint:    endpoint,
		Temperature: 0.5,
		MaxTokens:   256,
	}
}

func sseChunk(text string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", text)
}

func TestStream_AccumulatesDeltas(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, sseChunk("Hello"))
		fl.Flush()
		// An undecodable event line must be skipped, not fatal
		fmt.Fprint(w, "data: not-json\n\n")
		// Events without content deltas are ignored
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, sseChunk(" world"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var snapshots []string
	c := NewStreamClient(5 * time.Second)
	final, err := c.Stream(context.Background(), testModel(srv.URL), "sk-test", []Message{
		{Role: "system", Content: "prompt"},
		{Role: "user", Content: "hi"},
	}, func(partial string) {
		snapshots = append(snapshots, partial)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if final != "Hello world" {
		t.Fatalf("unexpected final text: %q", final)
	}

	// Callers receive full text-so-far, not fragments
	if len(snapshots) != 2 || snapshots[0] != "Hello" || snapshots[1] != "Hello world" {
		t.Fatalf("unexpected snapshots: %v", snapshots)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gjson.Get(gotBody, "model").String() != "test-model" || !gjson.Get(gotBody, "stream").Bool() {
		t.Fatalf("unexpected request body: %s", gotBody)
	}
	if gjson.Get(gotBody, "messages.1.content").String() != "hi" {
		t.Fatalf("unexpected messages in body: %s", gotBody)
	}
}

func TestStream_ErrorStatusReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer srv.Close()

	c := NewStreamClient(5 * time.Second)
	_, err := c.Stream(context.Background(), testModel(srv.URL), "bad", nil, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Provider != "test" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if apiErr.Excerpt != "invalid api key" {
		t.Fatalf("unexpected excerpt: %q", apiErr.Excerpt)
	}
}

func TestStream_MidStreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("partial"))
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
	}))
	defer srv.Close()

	c := NewStreamClient(5 * time.Second)
	_, err := c.Stream(context.Background(), testModel(srv.URL), "sk", nil, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Excerpt != "overloaded" {
		t.Fatalf("unexpected excerpt: %q", apiErr.Excerpt)
	}
}

func TestStream_DeadlineWithoutTerminator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, sseChunk("stuck"))
		fl.Flush()
		// Never send [DONE]; hold the connection past the client deadline
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewStreamClient(100 * time.Millisecond)
	_, err := c.Stream(context.Background(), testModel(srv.URL), "sk", nil, nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestTruncateExcerpt(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateExcerpt(string(long))
	if len(got) != excerptLimit+3 {
		t.Fatalf("expected truncated excerpt, got %d chars", len(got))
	}
}
