package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a replication test: a set of devices, the operations
// run on them in order, and the assertions checked afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Devices names the replicas. Each gets a fresh in-memory store whose
	// note ids are prefixed with the device name.
	Devices []string `yaml:"devices"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state of the devices.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation on one device.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Device is the replica the operation runs on (the sender for transfer).
	Device string `yaml:"device"`

	// As names the note created by a create step so later steps can refer
	// to it.
	As string `yaml:"as,omitempty"`

	// Note is a name bound by As, or a literal note id.
	Note string `yaml:"note,omitempty"`

	// Title, Content, Folder and Pinned are the note fields for create and
	// update.
	Title   string  `yaml:"title,omitempty"`
	Content string  `yaml:"content,omitempty"`
	Folder  *string `yaml:"folder,omitempty"`
	Pinned  bool    `yaml:"pinned,omitempty"`

	// To is the receiving device of a transfer.
	To string `yaml:"to,omitempty"`

	// Since is the version a transfer sends changes after.
	Since int64 `yaml:"since,omitempty"`

	// Peer is the remote device of a sync.
	Peer string `yaml:"peer,omitempty"`

	// Full makes a sync ignore stored watermarks.
	Full bool `yaml:"full,omitempty"`

	// ExpectError is the store error kind the step must fail with
	// (e.g. NOT_FOUND). Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpRestore  = "restore"
	OpTransfer = "transfer"
	OpSync     = "sync"
)

// Assertion validates final device state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "note": the note exists on Device and matches Expect (subset match)
	// - "absent": the note does not exist on Device
	// - "count": Device holds exactly Count records, tombstones included
	// - "converged": all Devices have identical digests
	// - "diverged": the Devices do not all have identical digests
	Type string `yaml:"type"`

	// Device is the replica inspected by note, absent and count.
	Device string `yaml:"device,omitempty"`

	// Note is a name bound by a create step, or a literal id.
	Note string `yaml:"note,omitempty"`

	// Expect holds expected note fields by wire name (title, content,
	// folder, is_pinned, version, is_deleted).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of records (used by count).
	Count int `yaml:"count,omitempty"`

	// Devices are the replicas compared by converged and diverged.
	Devices []string `yaml:"devices,omitempty"`
}

// Assertion type constants.
const (
	AssertNote      = "note"
	AssertAbsent    = "absent"
	AssertCount     = "count"
	AssertConverged = "converged"
	AssertDiverged  = "diverged"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Devices) == 0 {
		return fmt.Errorf("devices list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	devices := make(map[string]bool, len(s.Devices))
	for _, d := range s.Devices {
		if d == "" {
			return fmt.Errorf("device names must be non-empty")
		}
		if devices[d] {
			return fmt.Errorf("duplicate device %q", d)
		}
		devices[d] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, devices); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, devices); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step, devices map[string]bool) error {
	if !devices[st.Device] {
		return fmt.Errorf("steps[%d]: unknown device %q", index, st.Device)
	}

	switch st.Op {
	case OpCreate:
		if st.Note != "" {
			return fmt.Errorf("steps[%d]: create takes as, not note", index)
		}
	case OpUpdate, OpDelete, OpRestore:
		if st.Note == "" {
			return fmt.Errorf("steps[%d]: note is required for %s", index, st.Op)
		}
	case OpTransfer:
		if !devices[st.To] {
			return fmt.Errorf("steps[%d]: transfer needs a known to device, got %q", index, st.To)
		}
		if st.To == st.Device {
			return fmt.Errorf("steps[%d]: transfer to self", index)
		}
		if st.Since < 0 {
			return fmt.Errorf("steps[%d]: since must be non-negative", index)
		}
	case OpSync:
		if !devices[st.Peer] {
			return fmt.Errorf("steps[%d]: sync needs a known peer, got %q", index, st.Peer)
		}
		if st.Peer == st.Device {
			return fmt.Errorf("steps[%d]: sync with self", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, devices map[string]bool) error {
	switch a.Type {
	case AssertNote:
		if !devices[a.Device] || a.Note == "" {
			return fmt.Errorf("assertions[%d]: note requires a known device and a note", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for note", index)
		}
	case AssertAbsent:
		if !devices[a.Device] || a.Note == "" {
			return fmt.Errorf("assertions[%d]: absent requires a known device and a note", index)
		}
	case AssertCount:
		if !devices[a.Device] {
			return fmt.Errorf("assertions[%d]: count requires a known device", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertConverged, AssertDiverged:
		if len(a.Devices) < 2 {
			return fmt.Errorf("assertions[%d]: %s needs at least two devices", index, a.Type)
		}
		for _, d := range a.Devices {
			if !devices[d] {
				return fmt.Errorf("assertions[%d]: unknown device %q", index, d)
			}
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
