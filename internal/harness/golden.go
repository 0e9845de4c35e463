package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/notaro/notaro/internal/canonical"
)

// Snapshot renders a scenario result as canonical JSON: the trace plus
// every device's final records (timestamps left out, ordered by id).
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"step":   ev.Step,
			"device": ev.Device,
			"op":     ev.Op,
		}
		if ev.Note != "" {
			m["note"] = ev.Note
		}
		if ev.Version != 0 {
			m["version"] = ev.Version
		}
		if ev.Exchange != nil {
			m["exchange"] = map[string]any{
				"received": ev.Exchange.Received,
				"inserted": ev.Exchange.Inserted,
				"updated":  ev.Exchange.Updated,
				"skipped":  ev.Exchange.Skipped,
				"sent":     ev.Exchange.Sent,
			}
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		trace[i] = m
	}

	final := make(map[string]any, len(result.Final))
	for device, notes := range result.Final {
		records := make([]any, len(notes))
		for i, n := range notes {
			records[i] = canonical.NoteFields(n, false)
		}
		final[device] = records
	}

	return canonical.Marshal(map[string]any{
		"scenario": name,
		"trace":    trace,
		"final":    final,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
