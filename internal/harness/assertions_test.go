package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"yaml int vs version", 2, int64(2), true},
		{"int mismatch", 2, int64(3), false},
		{"int64", int64(4), int64(4), true},
		{"int vs string", 2, "2", false},
		{"string", "a", "a", true},
		{"bool", true, true, true},
		{"bool mismatch", false, true, false},
		{"null matches absent", nil, nil, true},
		{"null vs value", nil, "inbox", false},
		{"value vs absent", "inbox", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldEqual(tt.expected, tt.actual))
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCount,
		Device:   "a",
		Expected: "2 records",
		Actual:   "1 records",
	}
	assert.Equal(t, "Assertion failed: count on a\n  Expected: 2 records\n  Actual: 1 records\n", err.Error())
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions([]Assertion{{Type: "vibes"}}, &AssertionContext{})
	assert.Equal(t, []string{`assertion[0]: unknown assertion type "vibes"`}, errs)
}
