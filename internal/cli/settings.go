package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notaro/notaro/internal/model"
)

// SettingsOptions holds flags for settings set.
type SettingsOptions struct {
	*RootOptions
	Theme      string
	AccentHue  int
	FontFamily string
	FontSize   int
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
		Long: `Show or change the store's user settings.

Settings are local to a store and never replicate.`,
	}

	cmd.AddCommand(newSettingsGetCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))

	return cmd
}

func newSettingsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get",
		Short:         "Show user settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsGet(rootOpts, cmd)
		},
	}
}

func runSettingsGet(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	settings, err := st.Settings(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}
	return outputSettings(formatter, settings)
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change user settings",
		Long: `Change user settings. Fields not named by a flag keep their values.

Example:
  notaro settings set --theme dark --font-size 16`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Theme, "theme", "", "system|light|dark")
	cmd.Flags().IntVar(&opts.AccentHue, "accent-hue", 0, "accent hue in degrees (0-360)")
	cmd.Flags().StringVar(&opts.FontFamily, "font-family", "", "sans|serif|mono")
	cmd.Flags().IntVar(&opts.FontSize, "font-size", 0, "editor font size (8-72)")

	return cmd
}

func runSettingsSet(opts *SettingsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	flags := cmd.Flags()

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	settings, err := st.Settings(ctx)
	if err != nil {
		return fail(formatter, err)
	}

	if flags.Changed("theme") {
		settings.ThemeMode = model.ThemeMode(opts.Theme)
	}
	if flags.Changed("accent-hue") {
		settings.AccentHue = opts.AccentHue
	}
	if flags.Changed("font-family") {
		settings.FontFamily = model.FontFamily(opts.FontFamily)
	}
	if flags.Changed("font-size") {
		settings.FontSize = opts.FontSize
	}

	if err := st.UpdateSettings(ctx, settings); err != nil {
		return fail(formatter, err)
	}
	return outputSettings(formatter, settings)
}

func outputSettings(formatter *OutputFormatter, s model.UserSettings) error {
	if formatter.Format == "json" {
		return formatter.Success(s)
	}
	fmt.Fprintf(formatter.Writer, "theme_mode:  %s\n", s.ThemeMode)
	fmt.Fprintf(formatter.Writer, "accent_hue:  %d\n", s.AccentHue)
	fmt.Fprintf(formatter.Writer, "font_family: %s\n", s.FontFamily)
	fmt.Fprintf(formatter.Writer, "font_size:   %d\n", s.FontSize)
	return nil
}
