package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/notaro/notaro/internal/model"
)

// MemoryPath opens an ephemeral store that lives as long as the handle.
const MemoryPath = ":memory:"

// Clock supplies wall-clock time for created_at/updated_at stamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger sets the logger used for merge and migration events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock. Tests use a deterministic clock.
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// Store is the embedded note store for one replica.
//
// A Store holds a single SQLite connection guarded by one mutex. All access
// goes through withConn/withTx; a panic while the lock is held poisons the
// store and every later call fails with KindPoisoned.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	poisoned bool

	clock  Clock
	ids    model.IDGenerator
	logger *slog.Logger
}

// Open creates or opens the store at path and migrates it to the current
// schema before returning. Pass MemoryPath for an in-memory store.
//
// The database is configured with:
//   - WAL mode for file-backed stores
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Open never returns a partially initialized store: on any failure the
// connection is closed.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		clock:  systemClock{},
		ids:    model.UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, newError("open", KindIO, "", fmt.Errorf("create data directory: %w", err))
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, newError("open", KindStorage, "", fmt.Errorf("failed to open database: %w", err))
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// exists only as long as its connection does.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, newError("open", KindStorage, "", fmt.Errorf("failed to connect to database: %w", err))
	}

	if err := applyPragmas(db, path == MemoryPath); err != nil {
		db.Close()
		return nil, newError("open", KindStorage, "", fmt.Errorf("failed to apply pragmas: %w", err))
	}

	if err := runMigrations(db, s.logger); err != nil {
		db.Close()
		return nil, newError("open", KindStorage, "", fmt.Errorf("failed to run migrations: %w", err))
	}

	s.db = db
	return s, nil
}

// Close releases the connection. It is safe to call more than once; every
// operation after Close fails with KindNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// withConn runs fn with exclusive access to the connection. The lock is
// released on every exit path; a panic in fn poisons the store before it
// propagates.
func (s *Store) withConn(op string, fn func(db *sql.DB) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return newError(op, KindPoisoned, "", errPoisoned)
	}
	if s.db == nil {
		return newError(op, KindNotInitialized, "", errClosed)
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			s.logger.Error("store poisoned", "op", op, "panic", r)
			panic(r)
		}
	}()

	return classify(op, fn(s.db))
}

// withTx runs fn inside a transaction under the connection lock. The
// transaction commits only if fn returns nil.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return s.withConn(op, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() // no-op after Commit

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// applyPragmas sets required SQLite configuration. WAL is skipped for
// in-memory databases, which only support the memory journal.
func applyPragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	return s.withConn("verify pragma", func(db *sql.DB) error {
		var value string
		if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
			return fmt.Errorf("failed to query %s: %w", name, err)
		}
		if value != expected {
			return fmt.Errorf("%s = %q, expected %q", name, value, expected)
		}
		return nil
	})
}
