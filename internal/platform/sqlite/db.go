// Package sqlite opens and migrates SQLite databases via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Options tunes the SQLite connection.
type Options struct {
	// WALMode enables write-ahead logging for concurrent readers.
	WALMode bool
	// ForeignKeys enables foreign-key enforcement.
	ForeignKeys bool
	// BusyTimeout is how long a writer waits on SQLITE_BUSY.
	BusyTimeout time.Duration
	// MaxOpenConns caps the pool; SQLite writers serialize anyway.
	MaxOpenConns int
	// PingTimeout bounds the liveness check at open time.
	PingTimeout time.Duration
}

// DefaultOptions returns settings suited to a small API service.
func DefaultOptions() Options {
	return Options{
		WALMode:      true,
		ForeignKeys:  true,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
		PingTimeout:  5 * time.Second,
	}
}

// Open opens (creating if needed) the database at path with default options.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	return OpenWithOptions(ctx, path, DefaultOptions())
}

// OpenWithOptions opens the database at path with explicit options.
func OpenWithOptions(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout == 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a private in-memory database, mainly for tests.
func OpenInMemory(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open in-memory: %w", err)
	}
	// A shared-cache in-memory database disappears when the last connection
	// closes; a single connection keeps it alive.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping in-memory: %w", err)
	}
	return db, nil
}

func buildDSN(path string, opts Options) string {
	q := url.Values{}
	if opts.BusyTimeout > 0 {
		q.Add("_pragma", "busy_timeout("+strconv.Itoa(int(opts.BusyTimeout.Milliseconds()))+")")
	}
	if opts.WALMode {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	if opts.ForeignKeys {
		q.Add("_pragma", "foreign_keys(1)")
	}
	dsn := "file:" + filepath.ToSlash(path)
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}
