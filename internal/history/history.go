// Package history maintains the bounded, time-expiring conversation
// transcript for each (chat, user) pair.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JillVernus/tc-relay/internal/store"
)

const (
	// MaxRounds 每段对话保留的轮数（一轮 = 一条用户消息 + 一条助手回复）
	MaxRounds = 10

	// TTL 对话过期时间，每次写入刷新
	TTL = 7 * 24 * time.Hour
)

// Turn is one message within a conversation
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Manager reads and writes conversation transcripts in the shared store
type Manager struct {
	store store.Store
}

// NewManager creates a history manager
func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

func historyKey(chatID, userID int64) string {
	return fmt.Sprintf("chat:%d:user:%d:history", chatID, userID)
}

// Read returns the transcript in chronological order, or an empty slice when
// the record is absent or has expired.
func (m *Manager) Read(chatID, userID int64) ([]Turn, error) {
	value, ok, err := m.store.Get(historyKey(chatID, userID))
	if err != nil || !ok {
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(value), &turns); err != nil {
		return nil, fmt.Errorf("corrupt history for chat %d user %d: %w", chatID, userID, err)
	}
	return turns, nil
}

// Append adds a turn, truncates to the most recent 2×MaxRounds entries and
// writes back with a fresh TTL. Refreshing on every append keeps active
// conversations alive while abandoned ones age out on their own.
func (m *Manager) Append(chatID, userID int64, turn Turn) error {
	turns, err := m.Read(chatID, userID)
	if err != nil {
		return err
	}

	turns = append(turns, turn)
	if max := 2 * MaxRounds; len(turns) > max {
		turns = turns[len(turns)-max:]
	}

	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return m.store.Put(historyKey(chatID, userID), string(data), TTL)
}

// Clear deletes the transcript. Clearing an absent record is not an error.
func (m *Manager) Clear(chatID, userID int64) error {
	return m.store.Delete(historyKey(chatID, userID))
}
