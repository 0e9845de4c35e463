package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/notaro/notaro/internal/replica"
	"github.com/notaro/notaro/internal/store"
	"github.com/notaro/notaro/internal/testutil"
	"github.com/notaro/notaro/internal/wire"
)

// ClockStep is how far each device clock advances per read.
const ClockStep = time.Second

// Harness is the scenario execution engine.
// It holds one in-memory store per device, each with its own deterministic
// clock and id sequence.
type Harness struct {
	devices map[string]*store.Store
	aliases map[string]string
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh in-memory stores for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Open one store per device
// 2. Execute steps in order, recording a trace event per step
// 3. Capture every device's records
// 4. Evaluate assertions
//
// A step that fails with an error other than the expected one marks the
// result as failed; execution continues so the trace stays complete.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario.Devices)
	if err != nil {
		return nil, err
	}
	defer h.close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		ev.Step = i + 1
		ev.Device = step.Device
		ev.Op = step.Op
		if err != nil {
			ev.Error = errorKind(err)
		}
		result.addTrace(ev)

		switch {
		case err != nil && ev.Error != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s on %s: %v", i, step.Op, step.Device, err))
		case err == nil && step.ExpectError != "":
			result.AddError(fmt.Sprintf("steps[%d] %s on %s: expected %s, got success", i, step.Op, step.Device, step.ExpectError))
		}
	}

	for _, name := range scenario.Devices {
		notes, err := h.devices[name].List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", name, err)
		}
		sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
		result.Final[name] = notes
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Devices: h.devices,
		Aliases: h.aliases,
	}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(devices []string) (*Harness, error) {
	h := &Harness{
		devices: make(map[string]*store.Store, len(devices)),
		aliases: make(map[string]string),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, name := range devices {
		st, err := store.Open(store.MemoryPath,
			store.WithClock(testutil.NewFakeClock(testutil.Epoch, ClockStep)),
			store.WithIDGenerator(testutil.NewSequenceGenerator(name)),
			store.WithLogger(h.logger),
		)
		if err != nil {
			h.close()
			return nil, fmt.Errorf("failed to create store for device %s: %w", name, err)
		}
		h.devices[name] = st
	}
	return h, nil
}

func (h *Harness) close() {
	for _, st := range h.devices {
		st.Close()
	}
}

// resolve maps a name bound by a create step to its note id. Unbound names
// are used as literal ids.
func (h *Harness) resolve(name string) string {
	if id, ok := h.aliases[name]; ok {
		return id
	}
	return name
}

func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	st := h.devices[step.Device]
	var ev TraceEvent

	switch step.Op {
	case OpCreate:
		n, err := st.Create(ctx, step.Title, step.Content, step.Folder)
		if err != nil {
			return ev, err
		}
		if step.As != "" {
			h.aliases[step.As] = n.ID
		}
		ev.Note, ev.Version = n.ID, n.Version
		return ev, nil

	case OpUpdate:
		ev.Note = h.resolve(step.Note)
		n, err := st.Update(ctx, ev.Note, step.Title, step.Content, step.Folder, step.Pinned)
		if err != nil {
			return ev, err
		}
		ev.Version = n.Version
		return ev, nil

	case OpDelete, OpRestore:
		ev.Note = h.resolve(step.Note)
		var err error
		if step.Op == OpDelete {
			err = st.Delete(ctx, ev.Note)
		} else {
			err = st.Restore(ctx, ev.Note)
		}
		if err != nil {
			return ev, err
		}
		ev.Version, err = versionOf(ctx, st, ev.Note)
		return ev, err

	case OpTransfer:
		counts, err := h.transfer(ctx, st, h.devices[step.To], step.Since)
		ev.Exchange = counts
		return ev, err

	case OpSync:
		remote := replica.EncodedPeer{Handler: replica.NewHandler(h.devices[step.Peer], h.logger)}
		report, err := replica.Sync(ctx, st, remote, step.Peer, replica.Options{Full: step.Full, Logger: h.logger})
		if err != nil {
			return ev, err
		}
		ev.Exchange = &ExchangeCounts{
			Received: report.Received,
			Inserted: report.Merge.Inserted,
			Updated:  report.Merge.Updated,
			Skipped:  report.Merge.Skipped,
			Sent:     report.Sent,
		}
		return ev, nil
	}

	return ev, fmt.Errorf("unknown op %q", step.Op)
}

// transfer sends every change after since from one store to another as an
// encoded PushUpdates message.
func (h *Harness) transfer(ctx context.Context, from, to *store.Store, since int64) (*ExchangeCounts, error) {
	changes, err := from.ChangesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	data, err := wire.Marshal(wire.PushUpdates{Changes: changes})
	if err != nil {
		return nil, err
	}
	msg, err := wire.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := wire.Validate(msg); err != nil {
		return nil, err
	}

	res, err := to.Merge(ctx, wire.Changes(msg))
	if err != nil {
		return nil, err
	}
	return &ExchangeCounts{
		Received: len(changes),
		Inserted: res.Inserted,
		Updated:  res.Updated,
		Skipped:  res.Skipped,
		Sent:     len(changes),
	}, nil
}

// versionOf returns the note's version, or 0 if it no longer exists.
func versionOf(ctx context.Context, st *store.Store, id string) (int64, error) {
	n, err := st.Get(ctx, id)
	if store.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n.Version, nil
}

// errorKind names an error in traces: the store kind when there is one.
func errorKind(err error) string {
	if k := store.KindOf(err); k != "" {
		return string(k)
	}
	return "ERROR"
}
