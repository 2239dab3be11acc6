// Package ratelimit enforces per-user and global usage caps on top of the
// shared key-value store.
//
// Counters live in the store, not in process memory, so they survive restarts
// and are shared across instances. The price is that check-then-increment is
// not atomic: two concurrent requests from the same user can both pass a check
// against the same stale counter. The overshoot is bounded by the number of
// genuinely concurrent requests and is an accepted limitation.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/JillVernus/tc-relay/internal/store"
)

const (
	globalCountKey = "usage:global:count"
	globalDateKey  = "usage:global:date"

	minuteWindow = 60 * time.Second
)

// Limiter checks and consumes usage quota against the shared store
type Limiter struct {
	store  store.Store
	limits func() Limits

	// now is injectable for tests
	now func() time.Time
}

// NewLimiter creates a Limiter reading its caps from the given config manager
func NewLimiter(st store.Store, cm *ConfigManager) *Limiter {
	return &Limiter{
		store:  st,
		limits: cm.Current,
		now:    time.Now,
	}
}

func userCountKey(userID int64) string {
	return fmt.Sprintf("usage:user:%d:count", userID)
}

func userDateKey(userID int64) string {
	return fmt.Sprintf("usage:user:%d:date", userID)
}

func userMinuteKey(userID int64) string {
	return fmt.Sprintf("usage:user:%d:minute", userID)
}

// CheckAndConsume applies the three usage caps in order (global daily,
// per-user daily, per-user minute) and on success consumes one unit from
// each counter.
//
// Daily counters reset lazily: whichever request first observes a stale
// reset date writes the zeroed counter for the new day. Admins bypass the
// cap checks but still perform rollover bookkeeping, so admin activity
// never leaves stale dates behind for the next non-admin request.
func (l *Limiter) CheckAndConsume(userID int64, isAdmin bool) (Decision, error) {
	now := l.now().UTC()
	today := now.Format("2006-01-02")
	limits := l.limits()

	// Global rollover
	globalCount, err := l.rollover(globalCountKey, globalDateKey, today)
	if err != nil {
		return Decision{}, err
	}

	// Per-user rollover
	userCount, err := l.rollover(userCountKey(userID), userDateKey(userID), today)
	if err != nil {
		return Decision{}, err
	}

	if !isAdmin && globalCount >= limits.TotalDailyLimit {
		return Decision{
			Scope:  ScopeGlobalDaily,
			Reason: "机器人已达到今日总请求上限，请明天再试。",
		}, nil
	}

	if !isAdmin && userCount >= limits.RequestsPerUser {
		return Decision{
			Scope:  ScopeUserDaily,
			Reason: fmt.Sprintf("您今日的请求次数（%d次）已用完，请明天再试。", limits.RequestsPerUser),
		}, nil
	}

	// Prune the minute window, then check it
	stamps, err := l.readStamps(userID)
	if err != nil {
		return Decision{}, err
	}
	cutoff := now.Add(-minuteWindow).UnixMilli()
	recent := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			recent = append(recent, ts)
		}
	}

	if !isAdmin && len(recent) >= limits.RequestsPerMinute {
		return Decision{
			Scope:  ScopeUserMinute,
			Reason: fmt.Sprintf("请求过于频繁，请稍后再试。每分钟最多 %d 次请求。", limits.RequestsPerMinute),
		}, nil
	}

	// Consume: bump both daily counters and record the request instant
	if err := l.putCount(userCountKey(userID), userCount+1); err != nil {
		return Decision{}, err
	}
	recent = append(recent, now.UnixMilli())
	if err := l.writeStamps(userID, recent); err != nil {
		return Decision{}, err
	}
	if err := l.putCount(globalCountKey, globalCount+1); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true}, nil
}

// Limits returns the caps currently in effect
func (l *Limiter) Limits() Limits {
	return l.limits()
}

// Status returns a read-only view of a user's daily usage without consuming
func (l *Limiter) Status(userID int64) (Status, error) {
	today := l.now().UTC().Format("2006-01-02")
	limits := l.limits()

	used, err := l.getCount(userCountKey(userID))
	if err != nil {
		return Status{}, err
	}
	date, _, err := l.getString(userDateKey(userID))
	if err != nil {
		return Status{}, err
	}
	// A stale date means the counter belongs to a previous day; report zero
	// without writing — rollover happens on the next consuming request.
	if date != today {
		used = 0
	}

	remaining := limits.RequestsPerUser - used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		DailyUsed:      used,
		DailyLimit:     limits.RequestsPerUser,
		DailyRemaining: remaining,
		MinuteLimit:    limits.RequestsPerMinute,
	}, nil
}

// rollover resets the counter under countKey when its stored date is not
// today, and returns the counter valid for today.
func (l *Limiter) rollover(countKey, dateKey, today string) (int, error) {
	date, _, err := l.getString(dateKey)
	if err != nil {
		return 0, err
	}
	if date != today {
		if err := l.putCount(countKey, 0); err != nil {
			return 0, err
		}
		if err := l.store.Put(dateKey, today, 0); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return l.getCount(countKey)
}

func (l *Limiter) getString(key string) (string, bool, error) {
	return l.store.Get(key)
}

func (l *Limiter) getCount(key string) (int, error) {
	value, ok, err := l.store.Get(key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter at %q: %w", key, err)
	}
	return n, nil
}

func (l *Limiter) putCount(key string, n int) error {
	return l.store.Put(key, strconv.Itoa(n), 0)
}

// readStamps returns the stored request instants (unix milliseconds)
func (l *Limiter) readStamps(userID int64) ([]int64, error) {
	value, ok, err := l.store.Get(userMinuteKey(userID))
	if err != nil || !ok {
		return nil, err
	}
	var stamps []int64
	if err := json.Unmarshal([]byte(value), &stamps); err != nil {
		return nil, fmt.Errorf("corrupt timestamp list for user %d: %w", userID, err)
	}
	return stamps, nil
}

func (l *Limiter) writeStamps(userID int64, stamps []int64) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return err
	}
	// The window is 60s; a generous TTL just keeps dead users from
	// accumulating rows forever.
	return l.store.Put(userMinuteKey(userID), string(data), 24*time.Hour)
}
