package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// ThemeMode selects the colour scheme.
type ThemeMode string

const (
	ThemeSystem ThemeMode = "system"
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
)

// FontFamily selects the editor typeface class.
type FontFamily string

const (
	FontSans  FontFamily = "sans"
	FontSerif FontFamily = "serif"
	FontMono  FontFamily = "mono"
)

// UserSettings is the per-store singleton preferences record.
// It is local-only: no version, no merge.
type UserSettings struct {
	ThemeMode  ThemeMode  `json:"theme_mode"`
	AccentHue  int        `json:"accent_hue"`
	FontFamily FontFamily `json:"font_family"`
	FontSize   int        `json:"font_size"`
}

// DefaultSettings returns the settings persisted on first read.
func DefaultSettings() UserSettings {
	return UserSettings{
		ThemeMode:  ThemeSystem,
		AccentHue:  250,
		FontFamily: FontSans,
		FontSize:   14,
	}
}

// ErrInvalidSettings is wrapped by every ValidateSettings failure.
var ErrInvalidSettings = errors.New("invalid settings")

// settingsSchema constrains UserSettings. The definition is closed, so a
// renamed or misspelled field fails validation instead of being ignored.
const settingsSchema = `
#Settings: {
	theme_mode:  "system" | "light" | "dark"
	accent_hue:  int & >=0 & <=360
	font_family: "sans" | "serif" | "mono"
	font_size:   int & >=8 & <=72
}
`

var schema struct {
	once sync.Once
	mu   sync.Mutex // cue values are not safe for concurrent unification
	ctx  *cue.Context
	def  cue.Value
	err  error
}

func settingsDefinition() (*cue.Context, cue.Value, error) {
	schema.once.Do(func() {
		schema.ctx = cuecontext.New()
		v := schema.ctx.CompileString(settingsSchema, cue.Filename("settings.cue"))
		if err := v.Err(); err != nil {
			schema.err = err
			return
		}
		schema.def = v.LookupPath(cue.ParsePath("#Settings"))
		schema.err = schema.def.Err()
	})
	return schema.ctx, schema.def, schema.err
}

// ValidateSettings checks s against the settings schema.
func ValidateSettings(s UserSettings) error {
	ctx, def, err := settingsDefinition()
	if err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}

	schema.mu.Lock()
	defer schema.mu.Unlock()

	v := def.Unify(ctx.Encode(map[string]any{
		"theme_mode":  string(s.ThemeMode),
		"accent_hue":  s.AccentHue,
		"font_family": string(s.FontFamily),
		"font_size":   s.FontSize,
	}))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
