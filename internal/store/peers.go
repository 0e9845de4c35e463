package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notaro/notaro/internal/model"
)

// Watermarks records how far replication with one peer has progressed.
//
// Pulled is the peer's current version as of the last successful pull.
// Pushed is the local current version as of the last successful push.
type Watermarks struct {
	Peer   string `json:"peer"`
	Pulled int64  `json:"pulled"`
	Pushed int64  `json:"pushed"`
}

// Watermarks returns the stored watermarks for peer. An unknown peer has
// both watermarks at 0.
func (s *Store) Watermarks(ctx context.Context, peer string) (Watermarks, error) {
	if peer == "" {
		return Watermarks{}, newError("watermarks", KindInvalid, "", errors.New("peer name is empty"))
	}

	w := Watermarks{Peer: peer}
	err := s.withConn("watermarks", func(db *sql.DB) error {
		err := db.QueryRowContext(ctx, `
			SELECT pulled, pushed FROM sync_peers WHERE peer = ?
		`, peer).Scan(&w.Pulled, &w.Pushed)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query watermarks: %w", err)
		}
		return nil
	})
	if err != nil {
		return Watermarks{}, err
	}
	return w, nil
}

// AdvanceWatermarks stores w, keeping the larger of the stored and given
// value for each watermark. Watermarks never move backwards.
func (s *Store) AdvanceWatermarks(ctx context.Context, w Watermarks) error {
	if w.Peer == "" {
		return newError("advance watermarks", KindInvalid, "", errors.New("peer name is empty"))
	}
	if w.Pulled < 0 || w.Pushed < 0 {
		return newError("advance watermarks", KindInvalid, "", fmt.Errorf("negative watermark %d/%d", w.Pulled, w.Pushed))
	}

	return s.withConn("advance watermarks", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO sync_peers (peer, pulled, pushed, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(peer) DO UPDATE SET
				pulled = MAX(sync_peers.pulled, excluded.pulled),
				pushed = MAX(sync_peers.pushed, excluded.pushed),
				updated_at = excluded.updated_at
		`, w.Peer, w.Pulled, w.Pushed, model.FormatTime(s.clock.Now()))
		if err != nil {
			return fmt.Errorf("upsert watermarks: %w", err)
		}
		return nil
	})
}

// Peers returns the watermarks of every known peer ordered by name.
func (s *Store) Peers(ctx context.Context) ([]Watermarks, error) {
	peers := []Watermarks{}
	err := s.withConn("peers", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT peer, pulled, pushed FROM sync_peers ORDER BY peer ASC`)
		if err != nil {
			return fmt.Errorf("query peers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var w Watermarks
			if err := rows.Scan(&w.Peer, &w.Pulled, &w.Pushed); err != nil {
				return fmt.Errorf("scan peer: %w", err)
			}
			peers = append(peers, w)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return peers, nil
}
