package rule

import (
	"fmt"

	"github.com/meikuraledutech/diagram"
)

// Unbounded is the Max of a cardinality rule without an upper limit.
const Unbounded = -1

// Cardinality bounds how many edges labeled Edge a node labeled Role may have
// in Direction. An empty Edge counts every edge.
type Cardinality struct {
	ID        string
	Role      string
	Edge      string
	Direction Direction
	Min       int
	Max       int
}

func (r *Cardinality) Name() string { return r.ID }

func (r *Cardinality) Accepts(ctx Context) bool {
	c, ok := ctx.(*ConnectorCardinalityContext)
	if !ok || c.Candidate == nil || c.Edge == nil {
		return false
	}
	if c.Direction != r.Direction || !c.Candidate.HasLabel(r.Role) {
		return false
	}
	return r.Edge == "" || c.Edge.HasLabel(r.Edge)
}

func (r *Cardinality) Evaluate(ctx Context) Violations {
	c := ctx.(*ConnectorCardinalityContext)
	var edges []*diagram.Edge
	if c.Direction == Outgoing {
		edges = diagram.OutEdgesLabeled(c.Index, c.Candidate, r.Edge)
	} else {
		edges = diagram.InEdgesLabeled(c.Index, c.Candidate, r.Edge)
	}
	count := len(edges)

	switch c.Operation {
	case Add:
		if r.Max != Unbounded && count+1 > r.Max {
			return Violations{{
				Type:    ViolationError,
				Rule:    r.ID,
				Element: c.Candidate.ID,
				Message: fmt.Sprintf("%s node accepts at most %d %s edge(s), has %d", r.Role, r.Max, r.Direction, count),
			}}
		}
	case Delete:
		if count-1 < r.Min {
			return Violations{{
				Type:    ViolationError,
				Rule:    r.ID,
				Element: c.Candidate.ID,
				Message: fmt.Sprintf("%s node needs at least %d %s edge(s), has %d", r.Role, r.Min, r.Direction, count),
			}}
		}
	}
	return nil
}
