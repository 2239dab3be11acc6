// Package coalesce turns an unbounded stream of small model-output deltas
// into a bounded number of chat message edits.
//
// Chat transports charge against edit-rate limits and message-size limits,
// so deltas are batched behind a minimum update interval and an in-progress
// message is treated as a fixed-capacity buffer: when appending would push it
// past the size ceiling, the overflow starts a fresh message instead of an
// oversized edit. No content is ever dropped — whatever the interval gate
// absorbed is emitted by the final Flush.
package coalesce

import "time"

const (
	// UpdateInterval 两次可见更新之间的最小间隔
	UpdateInterval = 1500 * time.Millisecond

	// MaxMessageLength 单条消息的内容上限
	MaxMessageLength = 1024

	// SafetyMargin 预留空间，避免编辑时顶满传输层上限
	SafetyMargin = 100
)

// Transport is the subset of the chat transport the coalescer needs
type Transport interface {
	SendMessage(chatID int64, text string) (int64, error)
	EditMessageText(chatID, messageID int64, text string) error
}

// Coalescer accumulates one streamed response for one chat. It is bound to
// a single in-flight model call and must not be reused across calls.
type Coalescer struct {
	transport Transport
	chatID    int64

	interval time.Duration
	capacity int // MaxMessageLength - SafetyMargin

	// now is injectable for tests
	now func() time.Time

	accumulated string
	emittedLen  int
	lastEmit    time.Time

	messageID int64 // active handle being edited, 0 = none yet
	segment   string
}

// New creates a coalescer for one response in one chat
func New(transport Transport, chatID int64) *Coalescer {
	return &Coalescer{
		transport: transport,
		chatID:    chatID,
		interval:  UpdateInterval,
		capacity:  MaxMessageLength - SafetyMargin,
		now:       time.Now,
	}
}

// Start records the placeholder message that was sent before streaming began
// and arms the interval gate. The first emission edits the placeholder,
// replacing its text.
func (c *Coalescer) Start(placeholderID int64) {
	c.messageID = placeholderID
	c.lastEmit = c.now()
}

// OnDelta receives the full accumulated text so far. Deltas arriving faster
// than the update interval are absorbed without a visible change.
func (c *Coalescer) OnDelta(partial string) error {
	c.accumulated = partial
	if c.now().Sub(c.lastEmit) < c.interval {
		return nil
	}
	return c.emit()
}

// Flush emits whatever has not been shown yet, bypassing the interval gate.
// Call once when the upstream stream ends.
func (c *Coalescer) Flush() error {
	return c.emit()
}

// Text returns the full accumulated response text
func (c *Coalescer) Text() string {
	return c.accumulated
}

func (c *Coalescer) emit() error {
	suffix := c.accumulated[c.emittedLen:]
	if suffix == "" {
		return nil
	}

	if c.messageID == 0 || len(c.segment)+len(suffix) > c.capacity {
		// Segment overflow (or no placeholder): start a fresh message
		// seeded with the unseen text.
		id, err := c.transport.SendMessage(c.chatID, suffix)
		if err != nil {
			return err
		}
		c.messageID = id
		c.segment = suffix
	} else {
		c.segment += suffix
		if err := c.transport.EditMessageText(c.chatID, c.messageID, c.segment); err != nil {
			return err
		}
	}

	c.emittedLen = len(c.accumulated)
	c.lastEmit = c.now()
	return nil
}
