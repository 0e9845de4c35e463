package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/notaro/notaro/internal/canonical"
	"github.com/notaro/notaro/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Device   string // Device inspected, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Device != "" {
		fmt.Fprintf(&buf, " on %s", e.Device)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	return buf.String()
}

// AssertionContext provides the devices assertions inspect.
type AssertionContext struct {
	Ctx     context.Context
	Devices map[string]*store.Store
	Aliases map[string]string
}

func (a *AssertionContext) resolve(name string) string {
	if id, ok := a.Aliases[name]; ok {
		return id
	}
	return name
}

// assertNote checks that a note exists and that every expected field
// matches (subset match).
func assertNote(actx *AssertionContext, assertion Assertion) error {
	id := actx.resolve(assertion.Note)
	n, err := actx.Devices[assertion.Device].Get(actx.Ctx, id)
	if err != nil {
		return &AssertionError{
			Type:     AssertNote,
			Device:   assertion.Device,
			Expected: fmt.Sprintf("note %s exists", id),
			Actual:   err.Error(),
		}
	}

	actual := canonical.NoteFields(n, false)
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, key := range keys {
		want := assertion.Expect[key]
		got := actual[key]
		if !fieldEqual(want, got) {
			mismatches = append(mismatches, fmt.Sprintf("%s=%v (want %v)", key, got, want))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertNote,
			Device:   assertion.Device,
			Expected: fmt.Sprintf("note %s matches %v", id, assertion.Expect),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

// assertAbsent checks that a note does not exist.
func assertAbsent(actx *AssertionContext, assertion Assertion) error {
	id := actx.resolve(assertion.Note)
	_, err := actx.Devices[assertion.Device].Get(actx.Ctx, id)
	if store.IsNotFound(err) {
		return nil
	}

	actual := "note exists"
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Device:   assertion.Device,
		Expected: fmt.Sprintf("note %s not found", id),
		Actual:   actual,
	}
}

// assertCount checks the number of records, tombstones included.
func assertCount(actx *AssertionContext, assertion Assertion) error {
	notes, err := actx.Devices[assertion.Device].List(actx.Ctx)
	if err != nil {
		return err
	}
	if len(notes) != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Device:   assertion.Device,
			Expected: fmt.Sprintf("%d records", assertion.Count),
			Actual:   fmt.Sprintf("%d records", len(notes)),
		}
	}
	return nil
}

// assertDigests checks that the devices' digests are all equal (converged)
// or not all equal (diverged).
func assertDigests(actx *AssertionContext, assertion Assertion) error {
	digests := make([]string, len(assertion.Devices))
	distinct := make(map[string]bool)
	for i, name := range assertion.Devices {
		d, err := actx.Devices[name].Digest(actx.Ctx)
		if err != nil {
			return err
		}
		digests[i] = d
		distinct[d] = true
	}

	converged := len(distinct) == 1
	if converged == (assertion.Type == AssertConverged) {
		return nil
	}

	parts := make([]string, len(digests))
	for i, d := range digests {
		parts[i] = fmt.Sprintf("%s=%s", assertion.Devices[i], d[:12])
	}
	expected := "identical digests"
	if assertion.Type == AssertDiverged {
		expected = "differing digests"
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: expected,
		Actual:   strings.Join(parts, ", "),
	}
}

// fieldEqual compares a YAML-decoded expected value with a note field.
// YAML integers decode as int while versions are int64, and an expected
// null matches an absent folder.
func fieldEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case int:
		if act, ok := actual.(int64); ok {
			return int64(exp) == act
		}
		return false
	case int64:
		if act, ok := actual.(int64); ok {
			return exp == act
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// EvaluateAssertions evaluates all assertions against the devices.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertNote:
			err = assertNote(actx, assertion)
		case AssertAbsent:
			err = assertAbsent(actx, assertion)
		case AssertCount:
			err = assertCount(actx, assertion)
		case AssertConverged, AssertDiverged:
			err = assertDigests(actx, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
