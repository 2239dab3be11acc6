package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/JillVernus/tc-relay/internal/store"
)

func TestAppend_TruncatesOldestRounds(t *testing.T) {
	m := NewManager(store.NewMemory())

	for i := 0; i < MaxRounds+1; i++ {
		if err := m.Append(1, 2, Turn{Role: "user", Content: fmt.Sprintf("q%d", i)}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if err := m.Append(1, 2, Turn{Role: "assistant", Content: fmt.Sprintf("a%d", i)}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	turns, err := m.Read(1, 2)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(turns) != 2*MaxRounds {
		t.Fatalf("expected %d turns, got %d", 2*MaxRounds, len(turns))
	}
	// The first round ("q0"/"a0") must have been dropped
	if turns[0].Content != "q1" || turns[1].Content != "a1" {
		t.Fatalf("expected oldest round dropped, head is %q/%q", turns[0].Content, turns[1].Content)
	}
	if last := turns[len(turns)-1]; last.Content != fmt.Sprintf("a%d", MaxRounds) {
		t.Fatalf("unexpected newest turn: %q", last.Content)
	}
}

func TestClear_ThenReadEmpty(t *testing.T) {
	m := NewManager(store.NewMemory())

	if err := m.Append(5, 6, Turn{Role: "user", Content: "hello"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := m.Clear(5, 6); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	turns, err := m.Read(5, 6)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty history after clear, got %d turns", len(turns))
	}

	// Clearing an absent record is fine
	if err := m.Clear(5, 6); err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
}

func TestAppend_RefreshesTTL(t *testing.T) {
	mem := store.NewMemory()
	current := time.Now()
	mem.Now = func() time.Time { return current }

	m := NewManager(mem)

	if err := m.Append(1, 1, Turn{Role: "user", Content: "first"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// Each append within the TTL window keeps the record alive
	current = current.Add(6 * 24 * time.Hour)
	if err := m.Append(1, 1, Turn{Role: "assistant", Content: "second"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	current = current.Add(6 * 24 * time.Hour)
	turns, err := m.Read(1, 1)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected refreshed history to survive, got %d turns", len(turns))
	}

	// With no further writes the record ages out
	current = current.Add(8 * 24 * time.Hour)
	turns, err = m.Read(1, 1)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected expired history to read empty, got %d turns", len(turns))
	}
}
