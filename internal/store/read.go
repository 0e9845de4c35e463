package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notaro/notaro/internal/model"
)

// noteColumns is the column list every note query selects, in scanNote order.
const noteColumns = `id, title, content, folder, is_pinned, created_at, updated_at, version, is_deleted`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// List returns every note, tombstones included, pinned first and then most
// recently updated first. Ties break on id so the order is total.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) List(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	err := s.withConn("list", func(db *sql.DB) error {
		var err error
		notes, err = queryNotes(ctx, db, `
			SELECT `+noteColumns+`
			FROM notes
			ORDER BY is_pinned DESC, updated_at DESC, id ASC
		`)
		return err
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// Get returns the note with the given id, tombstoned or not.
func (s *Store) Get(ctx context.Context, id string) (model.Note, error) {
	var note model.Note
	err := s.withConn("get", func(db *sql.DB) error {
		var err error
		note, err = getNote(ctx, db, "get", id)
		return err
	})
	if err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// ChangesSince returns every note whose version is strictly greater than
// version, tombstones included, in ascending version order (ties on id).
// This is the outbound delta for a peer whose watermark is version.
//
// Returns an empty slice (not nil) if nothing changed.
func (s *Store) ChangesSince(ctx context.Context, version int64) ([]model.Note, error) {
	var notes []model.Note
	err := s.withConn("changes since", func(db *sql.DB) error {
		var err error
		notes, err = queryNotes(ctx, db, `
			SELECT `+noteColumns+`
			FROM notes
			WHERE version > ?
			ORDER BY version ASC, id ASC
		`, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// CurrentVersion returns the highest version held by the store, or 0 when
// the store is empty.
func (s *Store) CurrentVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.withConn("current version", func(db *sql.DB) error {
		if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM notes`).Scan(&version); err != nil {
			return fmt.Errorf("query max version: %w", err)
		}
		return nil
	})
	return version, err
}

func getNote(ctx context.Context, q querier, op, id string) (model.Note, error) {
	row := q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, notFound(op, id)
	}
	return note, err
}

func queryNotes(ctx context.Context, q querier, query string, args ...any) ([]model.Note, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// scanNote decodes one row selected with noteColumns. A stored timestamp
// that does not parse is a serialization fault; it is never defaulted.
func scanNote(row rowScanner) (model.Note, error) {
	var (
		n         model.Note
		folder    sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &folder, &n.IsPinned,
		&createdAt, &updatedAt, &n.Version, &n.IsDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Note{}, err
		}
		return model.Note{}, fmt.Errorf("scan note: %w", err)
	}

	if folder.Valid {
		n.Folder = model.FolderOf(folder.String)
	}

	var err error
	if n.CreatedAt, err = model.ParseTime(createdAt); err != nil {
		return model.Note{}, newError("decode note", KindSerialization, n.ID, fmt.Errorf("created_at: %w", err))
	}
	if n.UpdatedAt, err = model.ParseTime(updatedAt); err != nil {
		return model.Note{}, newError("decode note", KindSerialization, n.ID, fmt.Errorf("updated_at: %w", err))
	}
	return n, nil
}

// folderArg converts an optional folder to a nullable SQL argument.
func folderArg(folder *string) any {
	if folder == nil {
		return nil
	}
	return *folder
}
