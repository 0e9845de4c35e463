package replica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/notaro/notaro/internal/store"
	"github.com/notaro/notaro/internal/wire"
)

// ErrUnexpectedReply is returned when a peer answers with the wrong
// message type.
var ErrUnexpectedReply = errors.New("unexpected reply")

// Peer is the remote side of an exchange. Transport is up to the
// implementation.
type Peer interface {
	Exchange(ctx context.Context, msg wire.Message) (wire.Message, error)
}

// Options control a Sync run.
type Options struct {
	// Full ignores stored watermarks and exchanges every record. Use it to
	// pick up records created on either side at versions at or below a
	// watermark.
	Full bool

	// Logger receives progress at Debug and a summary at Info.
	Logger *slog.Logger
}

// Report summarises one Sync run.
type Report struct {
	Peer          string            `json:"peer"`
	Received      int               `json:"received"`
	Merge         store.MergeResult `json:"merge"`
	Sent          int               `json:"sent"`
	RemoteVersion int64             `json:"remote_version"`
	LocalVersion  int64             `json:"local_version"`
}

// Sync pulls every remote change since the stored pull watermark and
// merges it, then pushes every local change since the stored push
// watermark. Watermarks are advanced only after each half succeeds.
func Sync(ctx context.Context, local *store.Store, remote Peer, peer string, opts Options) (Report, error) {
	logger := opts.logger()
	marks, err := opts.watermarks(ctx, local, peer)
	if err != nil {
		return Report{}, err
	}

	report := Report{Peer: peer}
	if err := pull(ctx, local, remote, marks, logger, &report); err != nil {
		return report, err
	}
	if err := push(ctx, local, remote, marks, logger, &report); err != nil {
		return report, err
	}

	logger.Info("sync complete",
		"peer", peer,
		"received", report.Received,
		"applied", report.Merge.Applied(),
		"sent", report.Sent,
	)
	return report, nil
}

// Pull runs only the pull half of Sync. Nothing is sent to the peer
// except the request.
func Pull(ctx context.Context, local *store.Store, remote Peer, peer string, opts Options) (Report, error) {
	logger := opts.logger()
	marks, err := opts.watermarks(ctx, local, peer)
	if err != nil {
		return Report{}, err
	}

	report := Report{Peer: peer}
	if err := pull(ctx, local, remote, marks, logger, &report); err != nil {
		return report, err
	}
	if report.LocalVersion, err = local.CurrentVersion(ctx); err != nil {
		return report, err
	}

	logger.Info("pull complete",
		"peer", peer,
		"received", report.Received,
		"applied", report.Merge.Applied(),
	)
	return report, nil
}

// Push runs only the push half of Sync.
func Push(ctx context.Context, local *store.Store, remote Peer, peer string, opts Options) (Report, error) {
	logger := opts.logger()
	marks, err := opts.watermarks(ctx, local, peer)
	if err != nil {
		return Report{}, err
	}

	report := Report{Peer: peer}
	if err := push(ctx, local, remote, marks, logger, &report); err != nil {
		return report, err
	}

	logger.Info("push complete", "peer", peer, "sent", report.Sent)
	return report, nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o Options) watermarks(ctx context.Context, local *store.Store, peer string) (store.Watermarks, error) {
	marks, err := local.Watermarks(ctx, peer)
	if err != nil {
		return store.Watermarks{}, err
	}
	if o.Full {
		marks.Pulled, marks.Pushed = 0, 0
	}
	return marks, nil
}

func pull(ctx context.Context, local *store.Store, remote Peer, marks store.Watermarks, logger *slog.Logger, report *Report) error {
	peer := marks.Peer
	logger.Debug("pull", "peer", peer, "since", marks.Pulled)
	reply, err := remote.Exchange(ctx, wire.PullRequest{SinceVersion: marks.Pulled})
	if err != nil {
		return fmt.Errorf("pull from %s: %w", peer, err)
	}
	resp, ok := reply.(wire.PullResponse)
	if !ok {
		return fmt.Errorf("pull from %s: %w: %s", peer, ErrUnexpectedReply, typeOf(reply))
	}
	if err := wire.Validate(resp); err != nil {
		return fmt.Errorf("pull from %s: %w", peer, err)
	}

	report.Received = len(resp.Changes)
	report.RemoteVersion = resp.CurrentVersion
	if report.Merge, err = local.Merge(ctx, resp.Changes); err != nil {
		return fmt.Errorf("merge from %s: %w", peer, err)
	}
	return local.AdvanceWatermarks(ctx, store.Watermarks{Peer: peer, Pulled: resp.CurrentVersion})
}

func push(ctx context.Context, local *store.Store, remote Peer, marks store.Watermarks, logger *slog.Logger, report *Report) error {
	peer := marks.Peer
	current, err := local.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	report.LocalVersion = current

	changes, err := local.ChangesSince(ctx, marks.Pushed)
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		logger.Debug("push", "peer", peer, "since", marks.Pushed, "records", len(changes))
		reply, err := remote.Exchange(ctx, wire.PushUpdates{Changes: changes})
		if err != nil {
			return fmt.Errorf("push to %s: %w", peer, err)
		}
		if _, ok := reply.(wire.Ack); !ok {
			return fmt.Errorf("push to %s: %w: %s", peer, ErrUnexpectedReply, typeOf(reply))
		}
		report.Sent = len(changes)
	}
	return local.AdvanceWatermarks(ctx, store.Watermarks{Peer: peer, Pushed: current})
}

func typeOf(msg wire.Message) string {
	if msg == nil {
		return "no reply"
	}
	return string(msg.Type())
}
