// Package store provides the shared key-value store backing usage counters,
// conversation history and per-user preferences.
//
// The store is intentionally a plain get/put/delete contract with optional
// expiry: no transactions, no compare-and-swap. Callers that read-modify-write
// (the rate limiter in particular) accept a small, bounded race between
// concurrent requests.
package store

import "time"

// Store is the key-value contract shared by all persisted state.
// Counter values are decimal-integer text; list values (timestamps,
// conversation history, admin set) are JSON arrays.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent
	// or its TTL has elapsed.
	Get(key string) (value string, ok bool, err error)
	// Put writes key=value. A ttl of 0 means the entry never expires;
	// a non-zero ttl replaces any previous expiry.
	Put(key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
