package coalesce

import (
	"strings"
	"testing"
	"time"
)

// fakeTransport records sends and edits, handing out sequential message ids
type fakeTransport struct {
	nextID int64
	// 每个 message id 当前可见的文本
	visible map[int64]string
	// 创建顺序
	order []int64
	sends int
	edits int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 100, visible: make(map[int64]string)}
}

func (f *fakeTransport) SendMessage(chatID int64, text string) (int64, error) {
	f.nextID++
	f.visible[f.nextID] = text
	f.order = append(f.order, f.nextID)
	f.sends++
	return f.nextID, nil
}

func (f *fakeTransport) EditMessageText(chatID, messageID int64, text string) error {
	f.visible[messageID] = text
	f.edits++
	return nil
}

func (f *fakeTransport) concatenated() string {
	var b strings.Builder
	for _, id := range f.order {
		b.WriteString(f.visible[id])
	}
	return b.String()
}

func testCoalescer(ft *fakeTransport) (*Coalescer, *time.Time) {
	current := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	now := &current
	c := New(ft, 1)
	c.now = func() time.Time { return *now }
	return c, now
}

func TestOnDelta_BatchesUntilFlush(t *testing.T) {
	ft := newFakeTransport()
	c, _ := testCoalescer(ft)

	ft.visible[100] = "..."
	ft.order = append(ft.order, 100)
	c.Start(100)

	// All deltas arrive inside the update interval: nothing visible changes
	for _, partial := range []string{"H", "He", "Hel", "Hello"} {
		if err := c.OnDelta(partial); err != nil {
			t.Fatalf("OnDelta failed: %v", err)
		}
	}
	if ft.edits != 0 || ft.sends != 0 {
		t.Fatalf("expected zero transport calls before flush, got %d edits %d sends", ft.edits, ft.sends)
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if ft.edits != 1 {
		t.Fatalf("expected exactly one edit at flush, got %d", ft.edits)
	}
	if ft.visible[100] != "Hello" {
		t.Fatalf("expected placeholder replaced with %q, got %q", "Hello", ft.visible[100])
	}
}

func TestOnDelta_EmitsAfterInterval(t *testing.T) {
	ft := newFakeTransport()
	c, now := testCoalescer(ft)
	ft.order = append(ft.order, 100)
	c.Start(100)

	if err := c.OnDelta("partial"); err != nil {
		t.Fatalf("OnDelta failed: %v", err)
	}
	if ft.edits != 0 {
		t.Fatalf("expected gated delta to stay invisible, got %d edits", ft.edits)
	}

	*now = now.Add(UpdateInterval + 100*time.Millisecond)
	if err := c.OnDelta("partial grown"); err != nil {
		t.Fatalf("OnDelta failed: %v", err)
	}
	if ft.edits != 1 {
		t.Fatalf("expected one edit after interval elapsed, got %d", ft.edits)
	}
	if ft.visible[100] != "partial grown" {
		t.Fatalf("unexpected visible text: %q", ft.visible[100])
	}
}

func TestOnDelta_SegmentOverflowStartsNewMessage(t *testing.T) {
	ft := newFakeTransport()
	c, now := testCoalescer(ft)
	ft.order = append(ft.order, 100)
	c.Start(100)

	first := strings.Repeat("a", MaxMessageLength-SafetyMargin-10)
	*now = now.Add(UpdateInterval + time.Millisecond)
	if err := c.OnDelta(first); err != nil {
		t.Fatalf("OnDelta failed: %v", err)
	}
	if ft.edits != 1 || ft.sends != 0 {
		t.Fatalf("expected in-place edit for first segment, got %d edits %d sends", ft.edits, ft.sends)
	}

	// The next chunk would push the active message past the ceiling: it must
	// open a new message instead of growing the old one.
	full := first + strings.Repeat("b", 200)
	*now = now.Add(UpdateInterval + time.Millisecond)
	if err := c.OnDelta(full); err != nil {
		t.Fatalf("OnDelta failed: %v", err)
	}
	if ft.sends != 1 {
		t.Fatalf("expected overflow to start a new message, got %d sends", ft.sends)
	}
	for _, text := range ft.visible {
		if len(text) > MaxMessageLength {
			t.Fatalf("visible message exceeds ceiling: %d chars", len(text))
		}
	}

	tail := strings.Repeat("c", 30)
	c.OnDelta(full + tail)
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// No character may be lost across segments
	if got := ft.concatenated(); got != full+tail {
		t.Fatalf("segment concatenation mismatch: got %d chars, want %d", len(got), len(full+tail))
	}
}

func TestFlush_NothingUnseenIsNoop(t *testing.T) {
	ft := newFakeTransport()
	c, now := testCoalescer(ft)
	ft.order = append(ft.order, 100)
	c.Start(100)

	*now = now.Add(UpdateInterval + time.Millisecond)
	if err := c.OnDelta("done"); err != nil {
		t.Fatalf("OnDelta failed: %v", err)
	}
	calls := ft.edits + ft.sends

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if ft.edits+ft.sends != calls {
		t.Fatalf("expected flush with no unseen text to emit nothing")
	}
}
