// Package providers implements the streaming client for OpenAI-compatible
// chat completion endpoints.
package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/JillVernus/tc-relay/internal/config"
	"github.com/tidwall/gjson"
)

// Message is one chat turn in provider wire format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APIError is a structured upstream failure: connection-level errors aside,
// every non-success or malformed provider response is reported through it.
// Excerpt is truncated — raw provider payloads never reach the logs whole.
type APIError struct {
	Provider   string
	StatusCode int
	Excerpt    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s returned status %d: %s", e.Provider, e.StatusCode, e.Excerpt)
	}
	return fmt.Sprintf("provider %s request failed: %s", e.Provider, e.Excerpt)
}

// IsTimeout reports whether err is the stream wall-clock deadline firing
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

const excerptLimit = 200

func truncateExcerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit] + "..."
}

// StreamClient issues streaming chat completion requests
type StreamClient struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewStreamClient creates a client with the given wall-clock deadline per
// call. The HTTP client itself carries no overall timeout — streams live
// longer than any sane request timeout — only a response header timeout;
// the per-call deadline is enforced through the request context.
func NewStreamClient(timeout time.Duration) *StreamClient {
	return &StreamClient{
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		timeout: timeout,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// Stream opens a streaming completion request and invokes onDelta with the
// full accumulated text after every content fragment — callers receive
// text-so-far, not fragments, so they need no reassembly state of their own.
// It returns the final accumulated text.
//
// Individual undecodable event lines are skipped with a warning; they do not
// abort the stream. The wall-clock deadline aborts the in-flight connection;
// check with IsTimeout.
func (c *StreamClient) Stream(ctx context.Context, mc config.ModelConfig, apiKey string, messages []Message, onDelta func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody, err := json.Marshal(chatRequest{
		Model:       mc.Model,
		Messages:    messages,
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return "", fmt.Errorf("序列化模型请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", mc.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("创建模型请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("模型请求超时: %w", ctx.Err())
		}
		return "", &APIError{Provider: mc.Provider, Excerpt: truncateExcerpt(err.Error())}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		excerpt := gjson.GetBytes(body, "error.message").String()
		if excerpt == "" {
			excerpt = string(body)
		}
		return "", &APIError{
			Provider:   mc.Provider,
			StatusCode: resp.StatusCode,
			Excerpt:    truncateExcerpt(excerpt),
		}
	}

	var accumulated strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	const maxCapacity = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxCapacity)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		if !gjson.Valid(payload) {
			log.Printf("⚠️ [%s] Skipping malformed stream event: %s", mc.Provider, truncateExcerpt(payload))
			continue
		}

		if errMsg := gjson.Get(payload, "error.message"); errMsg.Exists() {
			return "", &APIError{Provider: mc.Provider, Excerpt: truncateExcerpt(errMsg.String())}
		}

		text := gjson.Get(payload, "choices.0.delta.content").String()
		if text == "" {
			continue
		}

		accumulated.WriteString(text)
		if onDelta != nil {
			onDelta(accumulated.String())
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("模型响应超时: %w", ctx.Err())
		}
		return "", &APIError{Provider: mc.Provider, Excerpt: truncateExcerpt(err.Error())}
	}

	return accumulated.String(), nil
}
