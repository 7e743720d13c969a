package rule

import (
	"fmt"

	"github.com/meikuraledutech/diagram"
)

// Permit is one allowed pair of source and target roles.
type Permit struct {
	From string
	To   string
}

// Connection restricts edges labeled Edge to the permitted role pairs.
// It only judges edges whose both ends are set.
type Connection struct {
	ID     string
	Edge   string
	Permit []Permit
}

func (r *Connection) Name() string { return r.ID }

func (r *Connection) Accepts(ctx Context) bool {
	c, ok := ctx.(*ConnectionContext)
	if !ok || c.Edge == nil || c.Source == nil || c.Target == nil {
		return false
	}
	return c.Edge.HasLabel(r.Edge)
}

func (r *Connection) Evaluate(ctx Context) Violations {
	c := ctx.(*ConnectionContext)
	for _, p := range r.Permit {
		if c.Source.HasLabel(p.From) && c.Target.HasLabel(p.To) {
			return nil
		}
	}
	return Violations{{
		Type:    ViolationError,
		Rule:    r.ID,
		Element: c.Edge.ID,
		Message: fmt.Sprintf("%s edge cannot connect %s to %s", r.Edge, roles(c.Source), roles(c.Target)),
	}}
}

func roles(n *diagram.Node) string {
	if len(n.Labels) == 0 {
		return n.ID
	}
	return fmt.Sprint(n.Labels)
}
