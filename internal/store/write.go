package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notaro/notaro/internal/model"
)

// Create stores a new note at version 1 with a freshly generated id and
// returns it.
func (s *Store) Create(ctx context.Context, title, content string, folder *string) (model.Note, error) {
	var note model.Note
	err := s.withConn("create", func(db *sql.DB) error {
		note = model.NewNote(s.ids.Generate(), title, content, folder, s.clock.Now())
		return insertNote(ctx, db, note)
	})
	if err != nil {
		return model.Note{}, err
	}
	return note.Clone(), nil
}

// Update replaces the mutable fields of an existing note, bumps its version
// and updated_at, and returns the stored result. Tombstoned notes can be
// updated; the flag is left as is.
func (s *Store) Update(ctx context.Context, id, title, content string, folder *string, pinned bool) (model.Note, error) {
	var note model.Note
	err := s.withTx(ctx, "update", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE notes
			SET title = ?, content = ?, folder = ?, is_pinned = ?, updated_at = ?, version = version + 1
			WHERE id = ?
		`, title, content, folderArg(folder), pinned, model.FormatTime(s.clock.Now()), id)
		if err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		if err := expectRow(res, "update", id); err != nil {
			return err
		}

		note, err = getNote(ctx, tx, "update", id)
		return err
	})
	if err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// Delete removes a note in two stages. A live note becomes a tombstone
// (is_deleted set, version bumped) so the deletion replicates. Deleting a
// tombstone removes the row for good; that removal is local only.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete", func(tx *sql.Tx) error {
		var deleted bool
		err := tx.QueryRowContext(ctx, `SELECT is_deleted FROM notes WHERE id = ?`, id).Scan(&deleted)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("delete", id)
		}
		if err != nil {
			return fmt.Errorf("query note: %w", err)
		}

		if deleted {
			if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
				return fmt.Errorf("hard delete: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE notes
			SET is_deleted = 1, updated_at = ?, version = version + 1
			WHERE id = ?
		`, model.FormatTime(s.clock.Now()), id)
		if err != nil {
			return fmt.Errorf("soft delete: %w", err)
		}
		return nil
	})
}

// Restore clears the tombstone flag. The version is bumped even when the
// note was not deleted, so a restore always wins against older peers.
func (s *Store) Restore(ctx context.Context, id string) error {
	return s.withConn("restore", func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE notes
			SET is_deleted = 0, updated_at = ?, version = version + 1
			WHERE id = ?
		`, model.FormatTime(s.clock.Now()), id)
		if err != nil {
			return fmt.Errorf("restore note: %w", err)
		}
		return expectRow(res, "restore", id)
	})
}

// insertNote writes n verbatim, every field included.
func insertNote(ctx context.Context, q querier, n model.Note) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Content, folderArg(n.Folder), n.IsPinned,
		model.FormatTime(n.CreatedAt), model.FormatTime(n.UpdatedAt), n.Version, n.IsDeleted)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// overwriteNote replaces every field of the row with id n.ID, created_at
// included.
func overwriteNote(ctx context.Context, q querier, n model.Note) error {
	_, err := q.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, folder = ?, is_pinned = ?,
		    created_at = ?, updated_at = ?, version = ?, is_deleted = ?
		WHERE id = ?
	`, n.Title, n.Content, folderArg(n.Folder), n.IsPinned,
		model.FormatTime(n.CreatedAt), model.FormatTime(n.UpdatedAt), n.Version, n.IsDeleted, n.ID)
	if err != nil {
		return fmt.Errorf("overwrite note: %w", err)
	}
	return nil
}

// expectRow turns a zero-row update into a not-found error.
func expectRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(op, id)
	}
	return nil
}
