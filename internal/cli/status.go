package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notaro/notaro/internal/store"
)

// Status is the JSON payload of the status command.
type Status struct {
	Store          string             `json:"store"`
	CurrentVersion int64              `json:"current_version"`
	Notes          int                `json:"notes"`
	Deleted        int                `json:"deleted"`
	Digest         string             `json:"digest"`
	Peers          []store.Watermarks `json:"peers"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store version, digest and peer watermarks",
		Long: `Show the store's current version, record counts, replica digest and the
watermarks kept for each peer.

Two stores hold the same records exactly when their digests are equal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path, err := opts.databasePath()
	if err != nil {
		return fail(formatter, err)
	}
	st, err := openStoreAt(opts, cmd, path)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	status := Status{Store: path}
	if status.CurrentVersion, err = st.CurrentVersion(ctx); err != nil {
		return fail(formatter, err)
	}
	notes, err := st.List(ctx)
	if err != nil {
		return fail(formatter, err)
	}
	for _, n := range notes {
		if n.IsDeleted {
			status.Deleted++
		} else {
			status.Notes++
		}
	}
	if status.Digest, err = st.Digest(ctx); err != nil {
		return fail(formatter, err)
	}
	if status.Peers, err = st.Peers(ctx); err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(status)
	}
	fmt.Fprintf(formatter.Writer, "Store:    %s\n", status.Store)
	fmt.Fprintf(formatter.Writer, "Version:  %d\n", status.CurrentVersion)
	fmt.Fprintf(formatter.Writer, "Notes:    %d (%d deleted)\n", status.Notes, status.Deleted)
	fmt.Fprintf(formatter.Writer, "Digest:   %s\n", status.Digest)
	if len(status.Peers) == 0 {
		fmt.Fprintln(formatter.Writer, "Peers:    none")
		return nil
	}
	fmt.Fprintln(formatter.Writer, "Peers:")
	for _, p := range status.Peers {
		fmt.Fprintf(formatter.Writer, "  %s  pulled v%d, pushed v%d\n", p.Peer, p.Pulled, p.Pushed)
	}
	return nil
}
