package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notaro/notaro/internal/model"
	"github.com/notaro/notaro/internal/store"
	"github.com/notaro/notaro/internal/wire"
)

// ChangesOptions holds flags for the changes command.
type ChangesOptions struct {
	*RootOptions
	Since int64
	Wire  bool
}

// ChangesResult is the JSON payload of the changes command.
type ChangesResult struct {
	SinceVersion   int64        `json:"since_version"`
	CurrentVersion int64        `json:"current_version"`
	Changes        []model.Note `json:"changes"`
}

// NewChangesCommand creates the changes command.
func NewChangesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChangesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show records with a version above --since",
		Long: `Show every record, tombstones included, whose version is above --since.

With --wire the output is a PullResponse wire message that another store
can apply with merge.

Example:
  notaro --db laptop.db changes --since 0 --wire > batch.json
  notaro --db phone.db merge batch.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChanges(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "version watermark (exclusive)")
	cmd.Flags().BoolVar(&opts.Wire, "wire", false, "write a PullResponse wire message")

	return cmd
}

func runChanges(opts *ChangesOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	// Read the version first so concurrent writes are re-sent, not skipped.
	current, err := st.CurrentVersion(ctx)
	if err != nil {
		return fail(formatter, err)
	}
	changes, err := st.ChangesSince(ctx, opts.Since)
	if err != nil {
		return fail(formatter, err)
	}

	if opts.Wire {
		data, err := wire.Marshal(wire.PullResponse{Changes: changes, CurrentVersion: current})
		if err != nil {
			return fail(formatter, err)
		}
		_, err = fmt.Fprintf(formatter.Writer, "%s\n", data)
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(ChangesResult{
			SinceVersion:   opts.Since,
			CurrentVersion: current,
			Changes:        changes,
		})
	}
	fmt.Fprintf(formatter.Writer, "%d change(s) since v%d (current v%d)\n", len(changes), opts.Since, current)
	for _, n := range changes {
		fmt.Fprintln(formatter.Writer, noteLine(n))
	}
	return nil
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [file]",
		Short: "Merge a batch of records into the store",
		Long: `Merge a batch of records with last-write-wins.

The input is a PushUpdates or PullResponse wire message, or a bare JSON
array of notes. It is read from file, or stdin when file is "-" or omitted.
The batch is validated before any record is applied and is applied
atomically.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runMerge(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runMerge(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd, path)
	if err != nil {
		return fail(formatter, err)
	}
	batch, err := decodeBatch(data)
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Decoded %d record(s) from %s", len(batch), path)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	result, err := st.Merge(cmd.Context(), batch)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, mergeSummary(len(batch), result))
	return nil
}

// decodeBatch accepts a wire message carrying changes or a bare array of
// notes, validated either way.
func decodeBatch(data []byte) ([]model.Note, error) {
	var msg wire.Message
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var notes []model.Note
		if err := json.Unmarshal(trimmed, &notes); err != nil {
			return nil, fmt.Errorf("unmarshal notes: %w", err)
		}
		msg = wire.PushUpdates{Changes: notes}
	} else {
		var err error
		if msg, err = wire.Unmarshal(data); err != nil {
			return nil, err
		}
	}

	switch msg.(type) {
	case wire.PushUpdates, wire.PullResponse:
	default:
		return nil, fmt.Errorf("%w: %s carries no changes", wire.ErrInvalidMessage, msg.Type())
	}
	if err := wire.Validate(msg); err != nil {
		return nil, err
	}
	return wire.Changes(msg), nil
}

func mergeSummary(received int, r store.MergeResult) string {
	return fmt.Sprintf("Merged %d record(s): %d inserted, %d updated, %d skipped",
		received, r.Inserted, r.Updated, r.Skipped)
}
