package replica

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/notaro/notaro/internal/model"
	"github.com/notaro/notaro/internal/store"
	"github.com/notaro/notaro/internal/wire"
)

// Handler answers wire messages against one store. It keeps no state of
// its own and is safe for concurrent use.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHandler creates a handler for s. A nil logger discards output.
func NewHandler(s *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{store: s, logger: logger}
}

// Handle applies msg and returns the reply:
//   - PullRequest: PullResponse with every newer record
//   - PushUpdates, PullResponse: records merged, then Ack
//   - Ack: no effect, nil reply
//
// Messages that fail validation are rejected before reaching the store.
func (h *Handler) Handle(ctx context.Context, msg wire.Message) (wire.Message, error) {
	if err := wire.Validate(msg); err != nil {
		return nil, err
	}

	h.logger.Debug("handling message", "type", msg.Type())
	r := wire.Visit[result](msg, handlerVisitor{ctx: ctx, h: h})
	if r.err != nil {
		return nil, fmt.Errorf("handle %s: %w", msg.Type(), r.err)
	}
	return r.reply, nil
}

// Exchange implements Peer so a local handler can stand in for a remote
// replica.
func (h *Handler) Exchange(ctx context.Context, msg wire.Message) (wire.Message, error) {
	return h.Handle(ctx, msg)
}

// HandleBytes decodes an encoded message, handles it and encodes the
// reply. A nil reply encodes as nil bytes.
func (h *Handler) HandleBytes(ctx context.Context, data []byte) ([]byte, error) {
	msg, err := wire.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	reply, err := h.Handle(ctx, msg)
	if err != nil || reply == nil {
		return nil, err
	}
	return wire.Marshal(reply)
}

type result struct {
	reply wire.Message
	err   error
}

type handlerVisitor struct {
	ctx context.Context
	h   *Handler
}

func (v handlerVisitor) PullRequest(m wire.PullRequest) result {
	// Read the version first: records written in between are sent now
	// and again next time, never skipped.
	current, err := v.h.store.CurrentVersion(v.ctx)
	if err != nil {
		return result{err: err}
	}
	changes, err := v.h.store.ChangesSince(v.ctx, m.SinceVersion)
	if err != nil {
		return result{err: err}
	}
	return result{reply: wire.PullResponse{Changes: changes, CurrentVersion: current}}
}

func (v handlerVisitor) PullResponse(m wire.PullResponse) result {
	return v.merge(m.Changes)
}

func (v handlerVisitor) PushUpdates(m wire.PushUpdates) result {
	return v.merge(m.Changes)
}

func (v handlerVisitor) Ack(wire.Ack) result {
	return result{}
}

func (v handlerVisitor) merge(changes []model.Note) result {
	if _, err := v.h.store.Merge(v.ctx, changes); err != nil {
		return result{err: err}
	}
	return result{reply: wire.Ack{}}
}
