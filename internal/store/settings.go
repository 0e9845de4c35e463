package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notaro/notaro/internal/model"
)

// Settings returns the stored user settings. On first read the defaults are
// persisted and returned.
func (s *Store) Settings(ctx context.Context) (model.UserSettings, error) {
	var out model.UserSettings
	err := s.withConn("settings", func(db *sql.DB) error {
		var theme, font string
		err := db.QueryRowContext(ctx, `
			SELECT theme_mode, accent_hue, font_family, font_size
			FROM settings
			WHERE id = 1
		`).Scan(&theme, &out.AccentHue, &font, &out.FontSize)
		if errors.Is(err, sql.ErrNoRows) {
			out = model.DefaultSettings()
			return upsertSettings(ctx, db, out)
		}
		if err != nil {
			return fmt.Errorf("query settings: %w", err)
		}
		out.ThemeMode = model.ThemeMode(theme)
		out.FontFamily = model.FontFamily(font)
		return nil
	})
	if err != nil {
		return model.UserSettings{}, err
	}
	return out, nil
}

// UpdateSettings validates and stores settings, replacing the previous
// values. Settings never replicate.
func (s *Store) UpdateSettings(ctx context.Context, settings model.UserSettings) error {
	if err := model.ValidateSettings(settings); err != nil {
		return newError("update settings", KindInvalid, "", err)
	}
	return s.withConn("update settings", func(db *sql.DB) error {
		return upsertSettings(ctx, db, settings)
	})
}

func upsertSettings(ctx context.Context, q querier, st model.UserSettings) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (id, theme_mode, accent_hue, font_family, font_size)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			theme_mode = excluded.theme_mode,
			accent_hue = excluded.accent_hue,
			font_family = excluded.font_family,
			font_size = excluded.font_size
	`, string(st.ThemeMode), st.AccentHue, string(st.FontFamily), st.FontSize)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
