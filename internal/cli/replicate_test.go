package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notaro/notaro/internal/model"
	"github.com/notaro/notaro/internal/replica"
	"github.com/notaro/notaro/internal/store"
	"github.com/notaro/notaro/internal/wire"
)

func statusOf(t *testing.T, db string) Status {
	t.Helper()
	return decode[Status](t, mustExecute(t, "--db", db, "--format", "json", "status")).Data
}

func TestChanges(t *testing.T) {
	db := tempDB(t, "a")
	first := createNote(t, db, "First")
	second := createNote(t, db, "Second")
	mustExecute(t, "--db", db, "update", second.ID, "--content", "edited")

	out := mustExecute(t, "--db", db, "--format", "json", "changes")
	result := decode[ChangesResult](t, out).Data
	assert.Equal(t, int64(0), result.SinceVersion)
	assert.Equal(t, int64(2), result.CurrentVersion)
	require.Len(t, result.Changes, 2)
	assert.Equal(t, first.ID, result.Changes[0].ID)
	assert.Equal(t, second.ID, result.Changes[1].ID)

	out = mustExecute(t, "--db", db, "--format", "json", "changes", "--since", "1")
	result = decode[ChangesResult](t, out).Data
	require.Len(t, result.Changes, 1)
	assert.Equal(t, second.ID, result.Changes[0].ID)

	out = mustExecute(t, "--db", db, "changes", "--since", "2")
	assert.Equal(t, "0 change(s) since v2 (current v2)\n", out)
}

func TestChanges_WireOutput(t *testing.T) {
	db := tempDB(t, "a")
	n := createNote(t, db, "First")

	out := mustExecute(t, "--db", db, "changes", "--wire")
	msg, err := wire.Unmarshal([]byte(out))
	require.NoError(t, err)
	resp, ok := msg.(wire.PullResponse)
	require.True(t, ok)
	assert.Equal(t, int64(1), resp.CurrentVersion)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, n.ID, resp.Changes[0].ID)
}

func TestChangesThenMerge_Converges(t *testing.T) {
	a := tempDB(t, "a")
	b := tempDB(t, "b")
	createNote(t, a, "One")
	n := createNote(t, a, "Two")
	mustExecute(t, "--db", a, "delete", n.ID)

	batch := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(batch, []byte(mustExecute(t, "--db", a, "changes", "--wire")), 0644))

	out := mustExecute(t, "--db", b, "merge", batch)
	assert.Equal(t, "Merged 2 record(s): 2 inserted, 0 updated, 0 skipped\n", out)

	out = mustExecute(t, "--db", b, "--format", "json", "merge", batch)
	assert.Equal(t, store.MergeResult{Skipped: 2}, decode[store.MergeResult](t, out).Data)

	assert.Equal(t, statusOf(t, a).Digest, statusOf(t, b).Digest)

	got := decode[model.Note](t, mustExecute(t, "--db", b, "--format", "json", "get", n.ID)).Data
	assert.True(t, got.IsDeleted)
	assert.Equal(t, int64(2), got.Version)
}

func TestMerge_BareArrayFromStdin(t *testing.T) {
	db := tempDB(t, "b")
	input := `[{"id":"r-1","title":"Remote","content":"","folder":null,"is_pinned":false,` +
		`"created_at":"2024-01-01T09:00:00Z","updated_at":"2024-01-01T10:00:00Z","version":3,"is_deleted":false}]`

	out, err := execute(t, input, "--db", db, "--format", "json", "merge")
	require.NoError(t, err)
	assert.Equal(t, store.MergeResult{Inserted: 1}, decode[store.MergeResult](t, out).Data)

	got := decode[model.Note](t, mustExecute(t, "--db", db, "--format", "json", "get", "r-1")).Data
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, "Remote", got.Title)
}

func TestMerge_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
		exit  int
	}{
		{"pull request", `{"type":"PullRequest","payload":{"since_version":0}}`, ErrCodeWire, ExitFailure},
		{"ack", `{"type":"Ack"}`, ErrCodeWire, ExitFailure},
		{"unknown type", `{"type":"gossip","payload":{}}`, ErrCodeWire, ExitFailure},
		{"missing id", `[{"id":"","created_at":"2024-01-01T09:00:00Z","updated_at":"2024-01-01T09:00:00Z","version":1}]`, ErrCodeWire, ExitFailure},
		{"zero version", `[{"id":"x","created_at":"2024-01-01T09:00:00Z","updated_at":"2024-01-01T09:00:00Z","version":0}]`, ErrCodeWire, ExitFailure},
		{"malformed", `{"type":`, ErrCodeGeneric, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := tempDB(t, "b")

			out, err := execute(t, tt.input, "--db", db, "--format", "json", "merge", "-")
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			resp := decode[any](t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestMerge_MissingFile(t *testing.T) {
	_, err := execute(t, "", "--db", tempDB(t, "b"), "merge", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSync(t *testing.T) {
	a := tempDB(t, "a")
	b := tempDB(t, "b")
	createNote(t, a, "From a")
	createNote(t, b, "From b")

	out := mustExecute(t, "--db", a, "--format", "json", "sync", b, "--peer", "b")
	report := decode[replica.Report](t, out).Data
	assert.Equal(t, replica.Report{
		Peer:          "b",
		Received:      1,
		Merge:         store.MergeResult{Inserted: 1},
		Sent:          2,
		RemoteVersion: 1,
		LocalVersion:  1,
	}, report)

	sa, sb := statusOf(t, a), statusOf(t, b)
	assert.Equal(t, sa.Digest, sb.Digest)
	assert.Equal(t, 2, sa.Notes)
	assert.Equal(t, []store.Watermarks{{Peer: "b", Pulled: 1, Pushed: 1}}, sa.Peers)
	assert.Empty(t, sb.Peers)

	out = mustExecute(t, "--db", a, "sync", b, "--peer", "b")
	assert.Contains(t, out, "Peer b\n")
	assert.Contains(t, out, "Pushed: 0 record(s)")
}

func TestSync_DefaultPeerNameIsAbsolutePath(t *testing.T) {
	a := tempDB(t, "a")
	b := tempDB(t, "b")
	createNote(t, b, "From b")

	mustExecute(t, "--db", a, "sync", b)

	abs, err := filepath.Abs(b)
	require.NoError(t, err)
	peers := statusOf(t, a).Peers
	require.Len(t, peers, 1)
	assert.Equal(t, abs, peers[0].Peer)
}

func TestSync_RejectsSelf(t *testing.T) {
	a := tempDB(t, "a")

	out, err := execute(t, "", "--db", a, "sync", a)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "peer store is the local store")
}

func TestPull_LeavesPeerUntouched(t *testing.T) {
	a := tempDB(t, "a")
	b := tempDB(t, "b")
	createNote(t, a, "Local")
	remote := createNote(t, b, "Remote")
	before := statusOf(t, b)

	out := mustExecute(t, "--db", a, "pull", b, "--peer", "b")
	assert.Contains(t, out, "Pulled: Merged 1 record(s): 1 inserted, 0 updated, 0 skipped")
	assert.NotContains(t, out, "Pushed")

	_ = decode[model.Note](t, mustExecute(t, "--db", a, "--format", "json", "get", remote.ID))
	assert.Equal(t, before.Digest, statusOf(t, b).Digest)
	assert.Equal(t, []store.Watermarks{{Peer: "b", Pulled: 1}}, statusOf(t, a).Peers)
}

func TestSync_FullPicksUpImportedLowVersions(t *testing.T) {
	a := tempDB(t, "a")
	b := tempDB(t, "b")
	n := createNote(t, a, "Busy")
	for i := 0; i < 3; i++ {
		mustExecute(t, "--db", a, "update", n.ID, "--content", strings.Repeat("x", i+1))
	}
	mustExecute(t, "--db", a, "sync", b, "--peer", "b")

	// A record imported at v1 sits below the push watermark of 4.
	input := `[{"id":"late","title":"Late","content":"","folder":null,"is_pinned":false,` +
		`"created_at":"2024-01-01T09:00:00Z","updated_at":"2024-01-01T09:00:00Z","version":1,"is_deleted":false}]`
	_, err := execute(t, input, "--db", a, "merge")
	require.NoError(t, err)

	out := mustExecute(t, "--db", a, "--format", "json", "sync", b, "--peer", "b")
	assert.Equal(t, 0, decode[replica.Report](t, out).Data.Sent)
	assert.NotEqual(t, statusOf(t, a).Digest, statusOf(t, b).Digest)

	out = mustExecute(t, "--db", a, "--format", "json", "sync", b, "--peer", "b", "--full")
	report := decode[replica.Report](t, out).Data
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, statusOf(t, a).Digest, statusOf(t, b).Digest)
}

func TestSync_PeerMustBeFile(t *testing.T) {
	_, err := execute(t, "", "--db", tempDB(t, "a"), "sync", store.MemoryPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatus_Text(t *testing.T) {
	db := tempDB(t, "a")
	n := createNote(t, db, "One")
	createNote(t, db, "Two")
	mustExecute(t, "--db", db, "delete", n.ID)

	out := mustExecute(t, "--db", db, "status")
	assert.Contains(t, out, "Store:    "+db)
	assert.Contains(t, out, "Version:  2")
	assert.Contains(t, out, "Notes:    1 (1 deleted)")
	assert.Contains(t, out, "Digest:   "+statusOf(t, db).Digest)
	assert.Contains(t, out, "Peers:    none")
}

func TestStatus_EmptyStoresShareDigest(t *testing.T) {
	a, b := statusOf(t, tempDB(t, "a")), statusOf(t, tempDB(t, "b"))
	assert.Equal(t, a.Digest, b.Digest)
	assert.Len(t, a.Digest, 64)
	assert.Equal(t, int64(0), a.CurrentVersion)
	assert.Equal(t, []store.Watermarks{}, a.Peers)
}

func TestChanges_HelpNamesEnvelopeTags(t *testing.T) {
	root := NewRootCommand()

	changes, _, err := root.Find([]string{"changes"})
	require.NoError(t, err)
	assert.Contains(t, changes.Long, string(wire.TypePullResponse))
	assert.Contains(t, changes.Flags().Lookup("wire").Usage, string(wire.TypePullResponse))

	merge, _, err := root.Find([]string{"merge"})
	require.NoError(t, err)
	assert.Contains(t, merge.Long, string(wire.TypePushUpdates))
	assert.Contains(t, merge.Long, string(wire.TypePullResponse))
}
