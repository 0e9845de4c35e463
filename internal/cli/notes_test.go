package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notaro/notaro/internal/model"
)

// createNote creates a note through the CLI and returns it.
func createNote(t *testing.T, db string, args ...string) model.Note {
	t.Helper()
	out := mustExecute(t, append([]string{"--db", db, "--format", "json", "create"}, args...)...)
	resp := decode[model.Note](t, out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestCreate_Text(t *testing.T) {
	db := tempDB(t, "notes")

	out := mustExecute(t, "--db", db, "create", "Meeting Notes", "--content", "Discuss sync logic")
	assert.Regexp(t, `^Created \S+ \(v1\)\n$`, out)
}

func TestCreate_JSON(t *testing.T) {
	db := tempDB(t, "notes")

	n := createNote(t, db, "Meeting Notes", "-c", "Discuss sync logic", "--folder", "Work")
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Meeting Notes", n.Title)
	assert.Equal(t, "Discuss sync logic", n.Content)
	require.NotNil(t, n.Folder)
	assert.Equal(t, "Work", *n.Folder)
	assert.Equal(t, int64(1), n.Version)
	assert.False(t, n.IsDeleted)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)
}

func TestCreate_ContentFromStdin(t *testing.T) {
	db := tempDB(t, "notes")

	out, err := execute(t, "line one\nline two\n", "--db", db, "--format", "json", "create", "Draft", "--content-file", "-")
	require.NoError(t, err)
	n := decode[model.Note](t, out).Data
	assert.Equal(t, "line one\nline two\n", n.Content)
	assert.Nil(t, n.Folder)
}

func TestCreate_ContentFlagsExclusive(t *testing.T) {
	_, err := execute(t, "", "--db", tempDB(t, "notes"), "create", "X", "--content", "a", "--content-file", "-")
	require.Error(t, err)
}

func TestList(t *testing.T) {
	db := tempDB(t, "notes")
	first := createNote(t, db, "First", "--folder", "Work")
	second := createNote(t, db, "Second")
	pinned := createNote(t, db, "Pinned")
	mustExecute(t, "--db", db, "update", pinned.ID, "--pinned")
	mustExecute(t, "--db", db, "delete", second.ID)

	out := mustExecute(t, "--db", db, "--format", "json", "list")
	notes := decode[[]model.Note](t, out).Data
	require.Len(t, notes, 2)
	assert.Equal(t, pinned.ID, notes[0].ID)
	assert.Equal(t, first.ID, notes[1].ID)

	out = mustExecute(t, "--db", db, "--format", "json", "list", "--deleted")
	assert.Len(t, decode[[]model.Note](t, out).Data, 3)

	out = mustExecute(t, "--db", db, "--format", "json", "list", "--folder", "Work")
	notes = decode[[]model.Note](t, out).Data
	require.Len(t, notes, 1)
	assert.Equal(t, first.ID, notes[0].ID)

	out = mustExecute(t, "--db", db, "list", "--deleted")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Pinned")
	assert.Contains(t, lines[0], "(pinned)")
	assert.Contains(t, out, "[Work]")
	assert.Contains(t, out, "(deleted)")
}

func TestList_Empty(t *testing.T) {
	out := mustExecute(t, "--db", tempDB(t, "notes"), "list")
	assert.Equal(t, "No notes\n", out)

	out = mustExecute(t, "--db", tempDB(t, "notes"), "--format", "json", "list")
	resp := decode[[]model.Note](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data)
}

func TestGet(t *testing.T) {
	db := tempDB(t, "notes")
	n := createNote(t, db, "Meeting Notes", "-c", "Discuss sync logic")

	out := mustExecute(t, "--db", db, "get", n.ID)
	assert.Contains(t, out, "ID:       "+n.ID)
	assert.Contains(t, out, "Title:    Meeting Notes")
	assert.Contains(t, out, "Version:  1")
	assert.Contains(t, out, "\nDiscuss sync logic\n")
	assert.NotContains(t, out, "Folder:")

	got := decode[model.Note](t, mustExecute(t, "--db", db, "--format", "json", "get", n.ID)).Data
	assert.Equal(t, n, got)
}

func TestGet_NotFound(t *testing.T) {
	db := tempDB(t, "notes")

	out, err := execute(t, "", "--db", db, "--format", "json", "get", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[any](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing")

	out, err = execute(t, "", "--db", db, "get", "missing")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}

func TestUpdate_OnlyNamedFieldsChange(t *testing.T) {
	db := tempDB(t, "notes")
	n := createNote(t, db, "Meeting Notes", "-c", "Discuss sync logic", "--folder", "Work")

	out := mustExecute(t, "--db", db, "update", n.ID, "--content", "Edited")
	assert.Equal(t, "Updated "+n.ID+" (v2)\n", out)

	got := decode[model.Note](t, mustExecute(t, "--db", db, "--format", "json", "get", n.ID)).Data
	assert.Equal(t, "Meeting Notes", got.Title)
	assert.Equal(t, "Edited", got.Content)
	require.NotNil(t, got.Folder)
	assert.Equal(t, "Work", *got.Folder)
	assert.False(t, got.IsPinned)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, n.CreatedAt, got.CreatedAt)

	out = mustExecute(t, "--db", db, "--format", "json", "update", n.ID, "--title", "Renamed", "--unfile", "--pinned")
	got = decode[model.Note](t, out).Data
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "Edited", got.Content)
	assert.Nil(t, got.Folder)
	assert.True(t, got.IsPinned)
	assert.Equal(t, int64(3), got.Version)

	got = decode[model.Note](t, mustExecute(t, "--db", db, "--format", "json", "update", n.ID, "--pinned=false")).Data
	assert.False(t, got.IsPinned)
	assert.Equal(t, int64(4), got.Version)
}

func TestUpdate_NotFound(t *testing.T) {
	_, err := execute(t, "", "--db", tempDB(t, "notes"), "update", "missing", "--title", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDelete_SoftThenPurge(t *testing.T) {
	db := tempDB(t, "notes")
	n := createNote(t, db, "Temp")

	out := mustExecute(t, "--db", db, "delete", n.ID)
	assert.Equal(t, "Deleted "+n.ID+" (v2)\n", out)

	got := decode[model.Note](t, mustExecute(t, "--db", db, "--format", "json", "get", n.ID)).Data
	assert.True(t, got.IsDeleted)

	out = mustExecute(t, "--db", db, "--format", "json", "delete", n.ID)
	change := decode[NoteChange](t, out).Data
	assert.Equal(t, NoteChange{ID: n.ID, Outcome: "purged"}, change)

	_, err := execute(t, "", "--db", db, "get", n.ID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRestore(t *testing.T) {
	db := tempDB(t, "notes")
	n := createNote(t, db, "Temp")
	mustExecute(t, "--db", db, "delete", n.ID)

	out := mustExecute(t, "--db", db, "--format", "json", "restore", n.ID)
	change := decode[NoteChange](t, out).Data
	assert.Equal(t, NoteChange{ID: n.ID, Outcome: "restored", Version: 3}, change)

	got := decode[model.Note](t, mustExecute(t, "--db", db, "--format", "json", "get", n.ID)).Data
	assert.False(t, got.IsDeleted)

	out = mustExecute(t, "--db", db, "restore", n.ID)
	assert.Equal(t, "Restored "+n.ID+" (v4)\n", out)
}

func TestRestore_NotFound(t *testing.T) {
	out, err := execute(t, "", "--db", tempDB(t, "notes"), "restore", "missing")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}
