package telegram

import "encoding/json"

// Update is one webhook delivery from the Bot API. Only message updates are
// handled; everything else is acknowledged and dropped.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an inbound or quoted Telegram message
type Message struct {
	MessageID      int64    `json:"message_id"`
	From           *User    `json:"from,omitempty"`
	Chat           Chat     `json:"chat"`
	Text           string   `json:"text,omitempty"`
	ReplyToMessage *Message `json:"reply_to_message,omitempty"`

	// Non-text payloads; only presence matters
	Photo     json.RawMessage `json:"photo,omitempty"`
	Video     json.RawMessage `json:"video,omitempty"`
	Document  json.RawMessage `json:"document,omitempty"`
	Audio     json.RawMessage `json:"audio,omitempty"`
	Voice     json.RawMessage `json:"voice,omitempty"`
	Sticker   json.RawMessage `json:"sticker,omitempty"`
	Animation json.RawMessage `json:"animation,omitempty"`
}

// HasMedia reports whether the message carries a non-text payload
func (m *Message) HasMedia() bool {
	return len(m.Photo) > 0 || len(m.Video) > 0 || len(m.Document) > 0 ||
		len(m.Audio) > 0 || len(m.Voice) > 0 || len(m.Sticker) > 0 ||
		len(m.Animation) > 0
}

// Chat identifies the conversation a message belongs to
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // "private", "group", "supergroup", "channel"
}

// User is a Telegram account
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// IsPrivate reports whether the chat is a one-on-one conversation
func (c Chat) IsPrivate() bool {
	return c.Type == "private"
}
