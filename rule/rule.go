// Package rule evaluates diagram rule-sets against evaluation contexts.
//
// A Manager receives a Set and a Context describing one proposed change and
// answers with the violations it found. Rules are strategies: each one says
// which contexts it accepts and how it judges them. Rule checks never fail
// with a Go error; a broken rule is reported as a violation.
package rule

import (
	"fmt"
	"strings"
)

// ViolationType is the severity of a violation.
type ViolationType int

const (
	ViolationInfo ViolationType = iota
	ViolationWarning
	ViolationError
)

func (t ViolationType) String() string {
	switch t {
	case ViolationInfo:
		return "INFO"
	case ViolationWarning:
		return "WARNING"
	case ViolationError:
		return "ERROR"
	}
	return fmt.Sprintf("ViolationType(%d)", int(t))
}

func (t ViolationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ViolationType) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "INFO":
		*t = ViolationInfo
	case "WARNING", "WARN":
		*t = ViolationWarning
	case "ERROR":
		*t = ViolationError
	default:
		return fmt.Errorf("rule: unknown violation type %q", b)
	}
	return nil
}

// Violation is a single finding of a rule.
type Violation struct {
	Type    ViolationType `json:"type"`
	Rule    string        `json:"rule,omitempty"`
	Element string        `json:"element,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Type, v.Rule, v.Message)
}

// Violations is an ordered list of findings.
type Violations []Violation

// Max returns the highest severity in vs, or ViolationInfo when vs is empty.
func (vs Violations) Max() ViolationType {
	max := ViolationInfo
	for _, v := range vs {
		if v.Type > max {
			max = v.Type
		}
	}
	return max
}

// HasErrors reports whether any violation is an error.
func (vs Violations) HasErrors() bool {
	return vs.Max() == ViolationError
}

// Rule judges the contexts it accepts.
type Rule interface {
	Name() string
	Accepts(ctx Context) bool
	Evaluate(ctx Context) Violations
}

// Set is a named rule-set bound to a diagram.
type Set struct {
	Name  string
	Rules []Rule
}

// NewSet returns a rule-set holding rules in evaluation order.
func NewSet(name string, rules ...Rule) *Set {
	return &Set{Name: name, Rules: rules}
}

// Manager evaluates a rule-set against a context.
type Manager interface {
	Evaluate(set *Set, ctx Context) Violations
}
