package command

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/rule"
)

type end int

const (
	sourceEnd end = iota
	targetEnd
)

// Option configures a connection command.
type Option func(*setConnectionNode)

// WithMagnet requests that the edge's magnet at the rewired end be set to m.
// A nil m clears the magnet. Without this option the magnet is left as is.
func WithMagnet(m *diagram.Magnet) Option {
	return func(c *setConnectionNode) {
		c.magnet = m
		c.setMagnet = true
	}
}

// setConnectionNode rewires one end of an edge. The exported source and
// target commands differ only in the end they touch.
type setConnectionNode struct {
	end       end
	nodeID    string
	edgeID    string
	magnet    *diagram.Magnet
	setMagnet bool

	executed   bool
	lastNodeID string
	lastMagnet *diagram.Magnet
}

func newSetConnectionNode(e end, node *diagram.Node, edge *diagram.Edge, opts []Option) (setConnectionNode, error) {
	if edge == nil {
		return setConnectionNode{}, fmt.Errorf("%w: edge is required", diagram.ErrInvalidArgument)
	}
	c := setConnectionNode{end: e, edgeID: edge.ID}
	if node != nil {
		c.nodeID = node.ID
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// EdgeID is the edge the command rewires.
func (c *setConnectionNode) EdgeID() string { return c.edgeID }

// resolved holds the elements a phase works on.
type resolved struct {
	edge *diagram.Edge
	node *diagram.Node
	last *diagram.Node
}

func (c *setConnectionNode) direction() rule.Direction {
	if c.end == sourceEnd {
		return rule.Outgoing
	}
	return rule.Incoming
}

func (c *setConnectionNode) endpoint(e *diagram.Edge) string {
	if c.end == sourceEnd {
		return e.SourceID
	}
	return e.TargetID
}

func (c *setConnectionNode) otherEndpoint(e *diagram.Edge) string {
	if c.end == sourceEnd {
		return e.TargetID
	}
	return e.SourceID
}

func (c *setConnectionNode) resolve(idx diagram.Index) (resolved, rule.Violations) {
	var r resolved
	r.edge = idx.GetEdge(c.edgeID)
	if r.edge == nil {
		return r, rule.Violations{missing("edge", c.edgeID)}
	}
	if c.nodeID != "" {
		r.node = idx.GetNode(c.nodeID)
		if r.node == nil {
			return r, rule.Violations{missing("node", c.nodeID)}
		}
	}
	r.last = idx.GetNode(c.endpoint(r.edge))
	return r, nil
}

func missing(kind, id string) rule.Violation {
	return rule.Violation{
		Type:    rule.ViolationError,
		Element: id,
		Message: fmt.Sprintf("%s %s not found in graph", kind, id),
	}
}

// changes reports whether the end moves to a different node.
func (r resolved) changes() bool {
	switch {
	case r.last == nil:
		return r.node != nil
	case r.node == nil:
		return true
	default:
		return r.last.ID != r.node.ID
	}
}

func (c *setConnectionNode) check(ec *ExecutionContext) (resolved, Result) {
	r, vs := c.resolve(ec.Index)
	if len(vs) > 0 {
		return r, NewResult(vs)
	}
	if ec.Rules == nil {
		return r, Success()
	}

	conn := &rule.ConnectionContext{Index: ec.Index, Edge: r.edge}
	if r.node != nil {
		other := ec.Index.GetNode(c.otherEndpoint(r.edge))
		if c.end == sourceEnd {
			conn.Source, conn.Target = r.node, other
		} else {
			conn.Source, conn.Target = other, r.node
		}
	}
	vs = append(vs, ec.evaluate(conn)...)

	if r.changes() {
		if r.last != nil {
			vs = append(vs, ec.evaluate(&rule.ConnectorCardinalityContext{
				Index:     ec.Index,
				Candidate: r.last,
				Edge:      r.edge,
				Direction: c.direction(),
				Operation: rule.Delete,
			})...)
		}
		if r.node != nil {
			vs = append(vs, ec.evaluate(&rule.ConnectorCardinalityContext{
				Index:     ec.Index,
				Candidate: r.node,
				Edge:      r.edge,
				Direction: c.direction(),
				Operation: rule.Add,
			})...)
		}
	}
	return r, NewResult(vs)
}

func (c *setConnectionNode) allow(ec *ExecutionContext) Result {
	_, res := c.check(ec)
	return res
}

func (c *setConnectionNode) execute(ec *ExecutionContext, name string) Result {
	r, res := c.check(ec)
	if res.IsError() {
		ec.logger().Info("command rejected",
			zap.String("command", name),
			zap.String("edge", c.edgeID),
			zap.Int("violations", len(res.Violations)),
		)
		return res
	}

	from := c.endpoint(r.edge)
	// A repeated Execute keeps the state seen before the first one.
	if !c.executed {
		c.lastNodeID = from
		c.lastMagnet = c.currentMagnet(r.edge)
	}

	if r.changes() {
		if r.last != nil {
			c.detach(r.last, r.edge)
		}
		if r.node != nil {
			c.attach(r.node, r.edge)
		}
	}
	if c.setMagnet {
		c.applyMagnet(r.edge, c.magnet)
	}
	if c.end == sourceEnd {
		r.edge.SourceID = c.nodeID
	} else {
		r.edge.TargetID = c.nodeID
	}
	c.executed = true

	ec.logger().Info("command executed",
		zap.String("command", name),
		zap.String("edge", c.edgeID),
		zap.String("from", from),
		zap.String("to", c.nodeID),
		zap.Stringer("result", res.Type),
	)
	return res
}

// inverse returns the command that restores the state seen before the first
// Execute.
func (c *setConnectionNode) inverse() setConnectionNode {
	return setConnectionNode{
		end:       c.end,
		nodeID:    c.lastNodeID,
		edgeID:    c.edgeID,
		magnet:    c.lastMagnet,
		setMagnet: c.setMagnet,
	}
}

func (c *setConnectionNode) undo(ec *ExecutionContext, name string) Result {
	if !c.executed {
		return Success()
	}
	inv := c.inverse()
	res := inv.execute(ec, name+".undo")
	if !res.IsError() {
		c.executed = false
	}
	return res
}

func (c *setConnectionNode) attach(n *diagram.Node, e *diagram.Edge) {
	if c.end == sourceEnd {
		n.AddOutEdge(e)
	} else {
		n.AddInEdge(e)
	}
}

func (c *setConnectionNode) detach(n *diagram.Node, e *diagram.Edge) {
	if c.end == sourceEnd {
		n.RemoveOutEdge(e)
	} else {
		n.RemoveInEdge(e)
	}
}

func (c *setConnectionNode) currentMagnet(e *diagram.Edge) *diagram.Magnet {
	vc, ok := e.Content.(*diagram.ViewConnector)
	if !ok {
		return nil
	}
	if c.end == sourceEnd {
		return vc.SourceMagnet
	}
	return vc.TargetMagnet
}

// applyMagnet only affects view connectors; other contents carry no magnets.
func (c *setConnectionNode) applyMagnet(e *diagram.Edge, m *diagram.Magnet) {
	vc, ok := e.Content.(*diagram.ViewConnector)
	if !ok {
		return
	}
	if c.end == sourceEnd {
		vc.SourceMagnet = m
	} else {
		vc.TargetMagnet = m
	}
}

// SetConnectionSourceNode moves the source end of an edge to a node, or
// disconnects it when the node is nil.
type SetConnectionSourceNode struct {
	setConnectionNode
}

// NewSetConnectionSourceNode fails with diagram.ErrInvalidArgument when edge
// is nil.
func NewSetConnectionSourceNode(node *diagram.Node, edge *diagram.Edge, opts ...Option) (*SetConnectionSourceNode, error) {
	c, err := newSetConnectionNode(sourceEnd, node, edge, opts)
	if err != nil {
		return nil, err
	}
	return &SetConnectionSourceNode{c}, nil
}

func (c *SetConnectionSourceNode) Name() string { return "set-connection-source" }

func (c *SetConnectionSourceNode) Allow(ec *ExecutionContext) Result { return c.allow(ec) }

func (c *SetConnectionSourceNode) Execute(ec *ExecutionContext) Result {
	return c.execute(ec, c.Name())
}

func (c *SetConnectionSourceNode) Undo(ec *ExecutionContext) Result { return c.undo(ec, c.Name()) }

// SetConnectionTargetNode moves the target end of an edge to a node, or
// disconnects it when the node is nil.
type SetConnectionTargetNode struct {
	setConnectionNode
}

// NewSetConnectionTargetNode fails with diagram.ErrInvalidArgument when edge
// is nil.
func NewSetConnectionTargetNode(node *diagram.Node, edge *diagram.Edge, opts ...Option) (*SetConnectionTargetNode, error) {
	c, err := newSetConnectionNode(targetEnd, node, edge, opts)
	if err != nil {
		return nil, err
	}
	return &SetConnectionTargetNode{c}, nil
}

func (c *SetConnectionTargetNode) Name() string { return "set-connection-target" }

func (c *SetConnectionTargetNode) Allow(ec *ExecutionContext) Result { return c.allow(ec) }

func (c *SetConnectionTargetNode) Execute(ec *ExecutionContext) Result {
	return c.execute(ec, c.Name())
}

func (c *SetConnectionTargetNode) Undo(ec *ExecutionContext) Result { return c.undo(ec, c.Name()) }
