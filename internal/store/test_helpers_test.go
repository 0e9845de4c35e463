package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/notaro/notaro/internal/model"
	"github.com/notaro/notaro/internal/testutil"
)

// createTestStore opens a file-backed store in a temp dir with a
// deterministic clock and id sequence. opts override those defaults.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "notes.db"), opts...)
}

// createMemoryStore opens an in-memory store with deterministic defaults.
func createMemoryStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return openTestStore(t, MemoryPath, opts...)
}

func openTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	defaults := []Option{
		WithClock(testutil.NewFakeClock(testutil.Epoch, time.Second)),
		WithIDGenerator(testutil.NewSequenceGenerator("n")),
	}
	s, err := Open(path, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createDevice opens an in-memory replica whose ids carry the device name.
func createDevice(t *testing.T, name string) *Store {
	t.Helper()
	return createMemoryStore(t, WithIDGenerator(testutil.NewSequenceGenerator(name)))
}

// remoteNote builds a record as another replica would send it.
func remoteNote(id, title string, version int64) model.Note {
	at := testutil.Epoch.Add(time.Duration(version) * time.Hour)
	return model.Note{
		ID:        id,
		Title:     title,
		Content:   title + " body",
		CreatedAt: testutil.Epoch,
		UpdatedAt: at,
		Version:   version,
	}
}
