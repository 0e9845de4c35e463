package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notaro/notaro/internal/model"
)

// MergeResult counts how each record of a batch was applied.
type MergeResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Applied returns the number of records that changed the store.
func (r MergeResult) Applied() int {
	return r.Inserted + r.Updated
}

// Merge applies a batch of remote records with last-write-wins on version:
//   - unknown id: inserted verbatim
//   - incoming version strictly greater: every local field overwritten
//   - otherwise: discarded, local wins (equal versions included)
//
// The batch is one transaction. If any record fails to apply, nothing in
// the batch is kept. Merging the same batch twice is a no-op the second
// time.
func (s *Store) Merge(ctx context.Context, batch []model.Note) (MergeResult, error) {
	var res MergeResult
	err := s.withTx(ctx, "merge", func(tx *sql.Tx) error {
		for i, incoming := range batch {
			var local int64
			err := tx.QueryRowContext(ctx, `SELECT version FROM notes WHERE id = ?`, incoming.ID).Scan(&local)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if err := insertNote(ctx, tx, incoming); err != nil {
					return fmt.Errorf("record %d (%s): %w", i, incoming.ID, err)
				}
				res.Inserted++
				s.logger.Debug("merge insert", "id", incoming.ID, "version", incoming.Version)
			case err != nil:
				return fmt.Errorf("record %d (%s): lookup: %w", i, incoming.ID, err)
			case incoming.Version > local:
				if err := overwriteNote(ctx, tx, incoming); err != nil {
					return fmt.Errorf("record %d (%s): %w", i, incoming.ID, err)
				}
				res.Updated++
				s.logger.Debug("merge overwrite", "id", incoming.ID, "local", local, "incoming", incoming.Version)
			default:
				res.Skipped++
				s.logger.Debug("merge skip", "id", incoming.ID, "local", local, "incoming", incoming.Version)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("merge rolled back", "records", len(batch), "error", err)
		return MergeResult{}, err
	}

	s.logger.Info("merge applied",
		"records", len(batch),
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
	)
	return res, nil
}
