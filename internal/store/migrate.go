package store

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Schema version tracking (PRAGMA user_version):
// 0 - empty database
// 1 - notes table
// 2 - notes.folder and notes.is_pinned
// 3 - settings table
// 4 - sync_peers table
const currentSchemaVersion = 4

type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

// Migrations are additive and individually idempotent, so a database whose
// user_version lags its actual shape still migrates cleanly.
var migrations = []migration{
	{1, "create notes", migrateToV1},
	{2, "add folder and pin columns", migrateToV2},
	{3, "create settings", migrateToV3},
	{4, "create sync peers", migrateToV4},
}

// runMigrations applies every migration newer than the stored user_version,
// each in its own transaction.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		logger.Debug("schema migrated", "version", m.version, "name", m.name)
		version = m.version
	}

	if version != currentSchemaVersion {
		return fmt.Errorf("schema at version %d, want %d", version, currentSchemaVersion)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
	}
	return tx.Commit()
}

// migrateToV1 creates the notes table as first shipped: no folder, no pin.
// The CHECK constraints make a malformed merge record fail its transaction.
func migrateToV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY CHECK(length(id) > 0),
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			version    INTEGER NOT NULL CHECK(version >= 1),
			is_deleted BOOLEAN NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_notes_version ON notes(version);
	`)
	return err
}

// migrateToV2 adds the folder and pin columns. SQLite has no
// ADD COLUMN IF NOT EXISTS, so existing columns are detected first.
func migrateToV2(tx *sql.Tx) error {
	cols, err := tableColumns(tx, "notes")
	if err != nil {
		return err
	}
	if !cols["folder"] {
		if _, err := tx.Exec(`ALTER TABLE notes ADD COLUMN folder TEXT`); err != nil {
			return fmt.Errorf("add folder: %w", err)
		}
	}
	if !cols["is_pinned"] {
		if _, err := tx.Exec(`ALTER TABLE notes ADD COLUMN is_pinned BOOLEAN NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add is_pinned: %w", err)
		}
	}
	return nil
}

// migrateToV3 creates the single-row settings table.
func migrateToV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			id          INTEGER PRIMARY KEY CHECK(id = 1),
			theme_mode  TEXT NOT NULL,
			accent_hue  INTEGER NOT NULL,
			font_family TEXT NOT NULL,
			font_size   INTEGER NOT NULL
		)
	`)
	return err
}

// migrateToV4 creates per-peer replication watermarks.
func migrateToV4(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sync_peers (
			peer       TEXT PRIMARY KEY CHECK(length(peer) > 0),
			pulled     INTEGER NOT NULL DEFAULT 0,
			pushed     INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// tableColumns returns the set of column names of table.
func tableColumns(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info(%s): %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
