package rule

import (
	"fmt"
	"strings"

	"github.com/meikuraledutech/diagram"
)

// Direction tells which end of the edge touches the candidate node.
type Direction int

const (
	Incoming Direction = iota
	Outgoing
)

func (d Direction) String() string {
	switch d {
	case Incoming:
		return "INCOMING"
	case Outgoing:
		return "OUTGOING"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "incoming"/"in" or "outgoing"/"out" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "incoming", "in":
		return Incoming, nil
	case "outgoing", "out":
		return Outgoing, nil
	}
	return 0, fmt.Errorf("rule: unknown direction %q", s)
}

// Operation is the change a cardinality context asks about.
type Operation int

const (
	Add Operation = iota
	Delete
)

func (o Operation) String() string {
	switch o {
	case Add:
		return "ADD"
	case Delete:
		return "DELETE"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Context describes what is being checked.
type Context interface {
	Name() string
}

// ConnectionContext asks whether Edge may run from Source to Target.
// Either endpoint may be nil.
type ConnectionContext struct {
	Index  diagram.Index
	Edge   *diagram.Edge
	Source *diagram.Node
	Target *diagram.Node
}

func (c *ConnectionContext) Name() string { return "connection" }

// ConnectorCardinalityContext asks whether Candidate may gain (Add) or lose
// (Delete) Edge in the given direction.
type ConnectorCardinalityContext struct {
	Index     diagram.Index
	Candidate *diagram.Node
	Edge      *diagram.Edge
	Direction Direction
	Operation Operation
}

func (c *ConnectorCardinalityContext) Name() string { return "connector-cardinality" }

// Graph returns the graph the context refers to.
func (c *ConnectionContext) Graph() *diagram.Graph { return c.Index.Graph() }

// Graph returns the graph the context refers to.
func (c *ConnectorCardinalityContext) Graph() *diagram.Graph { return c.Index.Graph() }
