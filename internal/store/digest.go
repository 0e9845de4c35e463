package store

import (
	"context"
	"database/sql"

	"github.com/notaro/notaro/internal/canonical"
)

// DigestDomain separates replica digests from any other hash computed over
// canonical JSON.
const DigestDomain = "notaro/replica/v1"

// Digest returns a content hash of every record in the store, tombstones
// and timestamps included. Two replicas have equal digests exactly when they
// hold the same records byte for byte; strings are not normalised.
func (s *Store) Digest(ctx context.Context) (string, error) {
	var digest string
	err := s.withConn("digest", func(db *sql.DB) error {
		notes, err := queryNotes(ctx, db, `SELECT `+noteColumns+` FROM notes ORDER BY id ASC`)
		if err != nil {
			return err
		}

		records := make([]any, 0, len(notes))
		for _, n := range notes {
			records = append(records, canonical.NoteFields(n, true))
		}
		data, err := canonical.MarshalExact(records)
		if err != nil {
			return newError("digest", KindSerialization, "", err)
		}
		digest = canonical.Hash(DigestDomain, data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return digest, nil
}
