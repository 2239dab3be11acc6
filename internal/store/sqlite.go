package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed Store implementation
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	stopCleanup chan struct{}
}

// NewSQLite opens (and if needed creates) the SQLite-backed store
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ".config/tc-relay.db"
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	// _busy_timeout=5000 - wait up to 5 seconds when database is locked
	// _txlock=immediate - acquire write lock immediately in transactions
	connStr := dbPath + "?_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Limit to single connection to avoid lock contention
	// SQLite doesn't benefit from multiple write connections
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("⚠️ Failed to enable WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		log.Printf("⚠️ Failed to set busy timeout: %v", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		expires_at INTEGER
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	s := &SQLiteStore{
		db:          db,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go s.cleanupLoop()

	log.Printf("📦 SQLite store initialized: %s", dbPath)
	return s, nil
}

// Get implements Store. Expired entries are treated as absent; the row is
// left for the sweep goroutine to reclaim.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullInt64
	err := s.db.QueryRow("SELECT value, expires_at FROM kv WHERE key = ?", key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().Unix() {
		return "", false, nil
	}
	return value, true, nil
}

// Put implements Store
func (s *SQLiteStore) Put(key, value string, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at",
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// cleanupLoop periodically reclaims expired rows
func (s *SQLiteStore) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.db.Exec("DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now().Unix())
			if err != nil {
				log.Printf("⚠️ [Store] Failed to sweep expired keys: %v", err)
				continue
			}
			if n, _ := res.RowsAffected(); n > 0 {
				log.Printf("🗑️ [Store] Swept %d expired key(s)", n)
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// Close stops the sweep goroutine and closes the database
func (s *SQLiteStore) Close() error {
	close(s.stopCleanup)
	return s.db.Close()
}
