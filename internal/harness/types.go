package harness

import "github.com/notaro/notaro/internal/model"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Device string `json:"device"`
	Op     string `json:"op"`

	// Note and Version describe the note after a note operation. Version
	// is 0 when the note no longer exists.
	Note    string `json:"note,omitempty"`
	Version int64  `json:"version,omitempty"`

	// Exchange counts for transfer and sync.
	Exchange *ExchangeCounts `json:"exchange,omitempty"`

	// Error is the store error kind the step failed with.
	Error string `json:"error,omitempty"`
}

// ExchangeCounts summarises records moved by a transfer or sync.
type ExchangeCounts struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Sent     int `json:"sent"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace has one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final holds each device's records ordered by id.
	Final map[string][]model.Note `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  make(map[string][]model.Note),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
