// Package telegram is a minimal Telegram Bot API client covering the
// operations the relay needs: send, edit, typing indicator and identity.
package telegram

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MaxMessageLength Telegram 单条消息的最大长度
const MaxMessageLength = 4096

// Client talks to the Bot API over HTTPS
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a client for the given API base (usually
// "https://api.telegram.org") and bot token.
func NewClient(apiBase, token string, timeout time.Duration) *Client {
	return &Client{
		apiBase: strings.TrimSuffix(apiBase, "/") + "/bot" + token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// call posts a JSON payload to a Bot API method and returns the raw response
// body after checking the ok flag.
func (c *Client) call(method, payload string) ([]byte, error) {
	resp, err := c.httpClient.Post(
		c.apiBase+"/"+method,
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if !gjson.GetBytes(body, "ok").Bool() {
		desc := gjson.GetBytes(body, "description").String()
		if desc == "" {
			desc = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("telegram %s rejected: %s", method, desc)
	}
	return body, nil
}

// SendMessage sends a text message and returns its message_id handle
func (c *Client) SendMessage(chatID int64, text string) (int64, error) {
	payload, _ := sjson.Set("", "chat_id", chatID)
	payload, _ = sjson.Set(payload, "text", truncate(text, MaxMessageLength))

	body, err := c.call("sendMessage", payload)
	if err != nil {
		return 0, err
	}
	return gjson.GetBytes(body, "result.message_id").Int(), nil
}

// EditMessageText replaces the text of a previously sent message
func (c *Client) EditMessageText(chatID, messageID int64, text string) error {
	payload, _ := sjson.Set("", "chat_id", chatID)
	payload, _ = sjson.Set(payload, "message_id", messageID)
	payload, _ = sjson.Set(payload, "text", truncate(text, MaxMessageLength))

	_, err := c.call("editMessageText", payload)
	return err
}

// SendChatAction sends a chat action ("typing" etc). Best effort: the
// indicator is cosmetic, so failures are swallowed.
func (c *Client) SendChatAction(chatID int64, action string) {
	payload, _ := sjson.Set("", "chat_id", chatID)
	payload, _ = sjson.Set(payload, "action", action)
	_, _ = c.call("sendChatAction", payload)
}

// GetMe returns the bot's own username
func (c *Client) GetMe() (string, error) {
	body, err := c.call("getMe", "{}")
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "result.username").String(), nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
