package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notaro/notaro/internal/model"
)

// NoteOptions holds flags shared by create and update.
type NoteOptions struct {
	*RootOptions
	Title       string
	Content     string
	ContentFile string
	Folder      string
	Unfile      bool
	Pinned      bool
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a note",
		Long: `Create a new note at version 1.

Content comes from --content, or from --content-file ("-" reads stdin).

Example:
  notaro create "Meeting Notes" --content "Discuss sync logic" --folder Work
  cat draft.md | notaro create "Draft" --content-file -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	addContentFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Folder, "folder", "", "folder label (default unfiled)")

	return cmd
}

func runCreate(opts *NoteOptions, title string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	content, err := opts.content(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	var folder *string
	if cmd.Flags().Changed("folder") {
		folder = model.FolderOf(opts.Folder)
	}

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	n, err := st.Create(cmd.Context(), title, content, folder)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(n)
	}
	fmt.Fprintf(formatter.Writer, "Created %s (v%d)\n", n.ID, n.Version)
	return nil
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Deleted bool
	Folder  string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, pinned first then most recently updated",
		Long: `List notes, pinned first then most recently updated.

Deleted notes (tombstones) are hidden unless --deleted is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Deleted, "deleted", false, "include deleted notes")
	cmd.Flags().StringVar(&opts.Folder, "folder", "", "only notes in this folder")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	all, err := st.List(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}

	byFolder := cmd.Flags().Changed("folder")
	notes := make([]model.Note, 0, len(all))
	for _, n := range all {
		if n.IsDeleted && !opts.Deleted {
			continue
		}
		if byFolder && (n.Folder == nil || *n.Folder != opts.Folder) {
			continue
		}
		notes = append(notes, n)
	}

	if formatter.Format == "json" {
		return formatter.Success(notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(formatter.Writer, "No notes")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintln(formatter.Writer, noteLine(n))
	}
	return nil
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one note",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	n, err := st.Get(cmd.Context(), id)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(n)
	}
	writeNote(formatter.Writer, n)
	return nil
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a note",
		Long: `Edit a note and bump its version.

Only the fields named by flags change; the rest keep their stored values.

Example:
  notaro update 0192f0c4-... --content "Edited" --pinned
  notaro update 0192f0c4-... --unfile`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "new title")
	addContentFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Folder, "folder", "", "move to folder")
	cmd.Flags().BoolVar(&opts.Unfile, "unfile", false, "remove from its folder")
	cmd.Flags().BoolVar(&opts.Pinned, "pinned", false, "pin (--pinned=false to unpin)")
	cmd.MarkFlagsMutuallyExclusive("folder", "unfile")

	return cmd
}

func runUpdate(opts *NoteOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	flags := cmd.Flags()

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	cur, err := st.Get(ctx, id)
	if err != nil {
		return fail(formatter, err)
	}

	title, folder, pinned := cur.Title, cur.Folder, cur.IsPinned
	content := cur.Content
	if flags.Changed("title") {
		title = opts.Title
	}
	if flags.Changed("content") || flags.Changed("content-file") {
		if content, err = opts.content(cmd); err != nil {
			return fail(formatter, err)
		}
	}
	switch {
	case flags.Changed("folder"):
		folder = model.FolderOf(opts.Folder)
	case opts.Unfile:
		folder = nil
	}
	if flags.Changed("pinned") {
		pinned = opts.Pinned
	}

	n, err := st.Update(ctx, id, title, content, folder, pinned)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(n)
	}
	fmt.Fprintf(formatter.Writer, "Updated %s (v%d)\n", n.ID, n.Version)
	return nil
}

// NoteChange is the JSON payload of delete and restore.
type NoteChange struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"` // "deleted" | "purged" | "restored"
	Version int64  `json:"version,omitempty"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note (tombstone first, purge on second delete)",
		Long: `Delete a note.

The first delete marks the note deleted and bumps its version so the
deletion replicates. Deleting a note that is already deleted removes it
from this store only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	before, err := st.Get(ctx, id)
	if err != nil {
		return fail(formatter, err)
	}
	if err := st.Delete(ctx, id); err != nil {
		return fail(formatter, err)
	}

	change := NoteChange{ID: id, Outcome: "purged"}
	if !before.IsDeleted {
		after, err := st.Get(ctx, id)
		if err != nil {
			return fail(formatter, err)
		}
		change = NoteChange{ID: id, Outcome: "deleted", Version: after.Version}
	}

	if formatter.Format == "json" {
		return formatter.Success(change)
	}
	if change.Outcome == "purged" {
		fmt.Fprintf(formatter.Writer, "Purged %s\n", id)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Deleted %s (v%d)\n", id, change.Version)
	return nil
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "restore <id>",
		Short:         "Undelete a note",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runRestore(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(cmd)
	if err != nil {
		return fail(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if err := st.Restore(ctx, id); err != nil {
		return fail(formatter, err)
	}
	n, err := st.Get(ctx, id)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(NoteChange{ID: id, Outcome: "restored", Version: n.Version})
	}
	fmt.Fprintf(formatter.Writer, "Restored %s (v%d)\n", id, n.Version)
	return nil
}

func addContentFlags(cmd *cobra.Command, opts *NoteOptions) {
	cmd.Flags().StringVarP(&opts.Content, "content", "c", "", "note body")
	cmd.Flags().StringVar(&opts.ContentFile, "content-file", "", `read the body from a file ("-" for stdin)`)
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
}

// content returns the body from --content or --content-file.
func (o *NoteOptions) content(cmd *cobra.Command) (string, error) {
	if o.ContentFile == "" {
		return o.Content, nil
	}
	data, err := readInput(cmd, o.ContentFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return data, nil
}

// noteLine renders n on one line for list output.
func noteLine(n model.Note) string {
	var flags []string
	if n.IsPinned {
		flags = append(flags, "pinned")
	}
	if n.IsDeleted {
		flags = append(flags, "deleted")
	}
	line := fmt.Sprintf("%s  v%-3d %s", n.ID, n.Version, n.Title)
	if n.Folder != nil {
		line += fmt.Sprintf("  [%s]", *n.Folder)
	}
	if len(flags) > 0 {
		line += "  (" + strings.Join(flags, ", ") + ")"
	}
	return line
}

func writeNote(w io.Writer, n model.Note) {
	fmt.Fprintf(w, "ID:       %s\n", n.ID)
	fmt.Fprintf(w, "Title:    %s\n", n.Title)
	if n.Folder != nil {
		fmt.Fprintf(w, "Folder:   %s\n", *n.Folder)
	}
	fmt.Fprintf(w, "Version:  %d\n", n.Version)
	fmt.Fprintf(w, "Created:  %s\n", model.FormatTime(n.CreatedAt))
	fmt.Fprintf(w, "Updated:  %s\n", model.FormatTime(n.UpdatedAt))
	if n.IsPinned {
		fmt.Fprintln(w, "Pinned:   yes")
	}
	if n.IsDeleted {
		fmt.Fprintln(w, "Deleted:  yes")
	}
	if n.Content != "" {
		fmt.Fprintf(w, "\n%s\n", n.Content)
	}
}
