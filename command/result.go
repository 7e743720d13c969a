package command

import (
	"fmt"
	"strings"

	"github.com/meikuraledutech/diagram/rule"
)

// Type is the outcome class of a command phase.
type Type int

const (
	Info Type = iota
	Warn
	Error
)

func (t Type) String() string {
	switch t {
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "INFO":
		*t = Info
	case "WARN", "WARNING":
		*t = Warn
	case "ERROR":
		*t = Error
	default:
		return fmt.Errorf("command: unknown result type %q", b)
	}
	return nil
}

// Result is what Allow, Execute and Undo return. Violations is empty when
// Type is Info.
type Result struct {
	Type       Type            `json:"type"`
	Violations rule.Violations `json:"violations"`
}

// NewResult derives the result type from the most severe violation.
// Violations of severity INFO are not kept.
func NewResult(vs rule.Violations) Result {
	r := Result{Type: Info, Violations: rule.Violations{}}
	for _, v := range vs {
		switch v.Type {
		case rule.ViolationError:
			r.Type = Error
		case rule.ViolationWarning:
			if r.Type == Info {
				r.Type = Warn
			}
		default:
			continue
		}
		r.Violations = append(r.Violations, v)
	}
	return r
}

// Success is the empty INFO result.
func Success() Result {
	return Result{Type: Info, Violations: rule.Violations{}}
}

// IsError reports whether the phase was rejected.
func (r Result) IsError() bool { return r.Type == Error }

// Merge combines r and other into one result.
func (r Result) Merge(other Result) Result {
	vs := make(rule.Violations, 0, len(r.Violations)+len(other.Violations))
	vs = append(vs, r.Violations...)
	vs = append(vs, other.Violations...)
	return Result{Type: max(r.Type, other.Type), Violations: vs}
}
