package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notaro/notaro/internal/replica"
	"github.com/notaro/notaro/internal/store"
)

// SyncOptions holds flags for the pull and sync commands.
type SyncOptions struct {
	*RootOptions
	Peer string
	Full bool
}

type syncFunc func(ctx context.Context, local *store.Store, remote replica.Peer, peer string, opts replica.Options) (replica.Report, error)

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull <peer-db>",
		Short: "Pull changes from another store",
		Long: `Pull every change the peer store made since the last pull and merge it.
The peer store is not modified.

Example:
  notaro --db phone.db pull laptop.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(opts, args[0], cmd, replica.Pull)
		},
	}

	addSyncFlags(cmd, opts)

	return cmd
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <peer-db>",
		Short: "Pull from and push to another store",
		Long: `Pull the peer's changes, then push local changes to it. Both stores end
with the same records unless both sides edited a note to the same version.

Watermarks are kept per peer name, so repeated runs exchange only deltas.
Use --full to exchange every record, for example after importing a batch
with merge.

Example:
  notaro --db phone.db sync laptop.db
  notaro --db phone.db sync laptop.db --peer laptop --full`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(opts, args[0], cmd, replica.Sync)
		},
	}

	addSyncFlags(cmd, opts)

	return cmd
}

func addSyncFlags(cmd *cobra.Command, opts *SyncOptions) {
	cmd.Flags().StringVar(&opts.Peer, "peer", "", "peer name for watermarks (default the peer store's absolute path)")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "ignore watermarks and exchange every record")
}

func runReplicate(opts *SyncOptions, peerPath string, cmd *cobra.Command, run syncFunc) error {
	formatter := opts.formatter(cmd)

	localPath, err := opts.databasePath()
	if err != nil {
		return fail(formatter, err)
	}
	peer, err := opts.peerName(localPath, peerPath)
	if err != nil {
		return fail(formatter, err)
	}

	local, err := openStoreAt(opts.RootOptions, cmd, localPath)
	if err != nil {
		return fail(formatter, err)
	}
	defer local.Close()

	remote, err := openStoreAt(opts.RootOptions, cmd, peerPath)
	if err != nil {
		return fail(formatter, err)
	}
	defer remote.Close()

	logger := opts.logger(cmd.ErrOrStderr()).With("peer", peer)
	handler := replica.NewHandler(remote, logger)
	report, err := run(cmd.Context(), local, replica.EncodedPeer{Handler: handler}, peer, replica.Options{
		Full:   opts.Full,
		Logger: logger,
	})
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "Peer %s\n", report.Peer)
	fmt.Fprintf(formatter.Writer, "  Pulled: %s\n", mergeSummary(report.Received, report.Merge))
	if cmd.Name() == "sync" {
		fmt.Fprintf(formatter.Writer, "  Pushed: %d record(s)\n", report.Sent)
	}
	fmt.Fprintf(formatter.Writer, "  Versions: local v%d, peer v%d\n", report.LocalVersion, report.RemoteVersion)
	return nil
}

// peerName returns --peer, or the peer store's absolute path.
func (o *SyncOptions) peerName(localPath, peerPath string) (string, error) {
	if peerPath == store.MemoryPath {
		return "", NewExitError(ExitCommandError, "peer store must be a file")
	}
	localAbs, err := filepath.Abs(localPath)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to resolve store path", err)
	}
	peerAbs, err := filepath.Abs(peerPath)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to resolve peer path", err)
	}
	if localAbs == peerAbs {
		return "", NewExitError(ExitCommandError, "peer store is the local store")
	}
	if o.Peer != "" {
		return o.Peer, nil
	}
	return peerAbs, nil
}
