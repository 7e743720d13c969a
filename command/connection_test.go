package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/rule"
)

const (
	nodeID       = "nodeUUID"
	lastSourceID = "lastSourceNodeUUID"
	targetID     = "nodeTargetUUID"
	edgeID       = "edgeUUID"
)

type mockRuleManager struct {
	mock.Mock
}

func (m *mockRuleManager) Evaluate(set *rule.Set, ctx rule.Context) rule.Violations {
	args := m.Called(set, ctx)
	if v := args.Get(0); v != nil {
		return v.(rule.Violations)
	}
	return nil
}

// contexts returns the evaluation contexts in call order.
func (m *mockRuleManager) contexts() []rule.Context {
	out := make([]rule.Context, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.Arguments.Get(1).(rule.Context))
	}
	return out
}

// countingIndex records calls to the index mutation methods.
type countingIndex struct {
	*diagram.MapIndex
	mutations int
}

func (c *countingIndex) AddNode(n *diagram.Node)    { c.mutations++; c.MapIndex.AddNode(n) }
func (c *countingIndex) RemoveNode(n *diagram.Node) { c.mutations++; c.MapIndex.RemoveNode(n) }
func (c *countingIndex) AddEdge(e *diagram.Edge)    { c.mutations++; c.MapIndex.AddEdge(e) }
func (c *countingIndex) RemoveEdge(e *diagram.Edge) { c.mutations++; c.MapIndex.RemoveEdge(e) }

type fixture struct {
	node       *diagram.Node
	lastSource *diagram.Node
	target     *diagram.Node
	edge       *diagram.Edge
	content    *diagram.ViewConnector
	index      *countingIndex
	rules      *mockRuleManager
	ruleSet    *rule.Set
	ec         *ExecutionContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		node:       &diagram.Node{ID: nodeID},
		lastSource: &diagram.Node{ID: lastSourceID, OutEdges: []string{edgeID}},
		target:     &diagram.Node{ID: targetID, InEdges: []string{edgeID}},
		content:    &diagram.ViewConnector{SourceMagnet: diagram.NewMagnet(0, 0)},
		rules:      &mockRuleManager{},
		ruleSet:    rule.NewSet("test"),
	}
	f.edge = &diagram.Edge{
		ID:       edgeID,
		SourceID: lastSourceID,
		TargetID: targetID,
		Content:  f.content,
	}
	g := &diagram.Graph{
		ID:    "graph",
		Nodes: []*diagram.Node{f.node, f.lastSource, f.target},
		Edges: []*diagram.Edge{f.edge},
	}
	f.index = &countingIndex{MapIndex: diagram.NewIndex(g)}
	require.NoError(t, f.index.Validate())
	f.ec = NewExecutionContext(f.index, f.rules, f.ruleSet, zap.NewNop())
	return f
}

func (f *fixture) passAll() {
	f.rules.On("Evaluate", f.ruleSet, mock.Anything).Return(nil)
}

func assertConnection(t *testing.T, ctx rule.Context, edge *diagram.Edge, source, target *diagram.Node) {
	t.Helper()
	c, ok := ctx.(*rule.ConnectionContext)
	require.True(t, ok, "expected connection context, got %T", ctx)
	assert.Same(t, edge, c.Edge)
	assert.Equal(t, source, c.Source)
	assert.Equal(t, target, c.Target)
}

func assertCardinality(t *testing.T, ctx rule.Context, candidate *diagram.Node, edge *diagram.Edge, dir rule.Direction, op rule.Operation) {
	t.Helper()
	c, ok := ctx.(*rule.ConnectorCardinalityContext)
	require.True(t, ok, "expected cardinality context, got %T", ctx)
	assert.Same(t, candidate, c.Candidate)
	assert.Same(t, edge, c.Edge)
	assert.Equal(t, dir, c.Direction)
	assert.Equal(t, op, c.Operation)
}

func TestSetConnectionSourceNode_Allow(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Allow(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Empty(t, res.Violations)
	f.rules.AssertNumberOfCalls(t, "Evaluate", 3)
	contexts := f.rules.contexts()
	require.Len(t, contexts, 3)
	assertConnection(t, contexts[0], f.edge, f.node, f.target)
	assertCardinality(t, contexts[1], f.lastSource, f.edge, rule.Outgoing, rule.Delete)
	assertCardinality(t, contexts[2], f.node, f.edge, rule.Outgoing, rule.Add)

	// Allow leaves the graph alone.
	assert.Equal(t, lastSourceID, f.edge.SourceID)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Empty(t, f.node.OutEdges)
}

func TestSetConnectionSourceNode_AllowNoRules(t *testing.T) {
	f := newFixture(t)
	f.ec.Rules = nil
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Allow(f.ec)

	assert.Equal(t, Info, res.Type)
	f.rules.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
}

func TestSetConnectionSourceNode_ExecuteNoRules(t *testing.T) {
	f := newFixture(t)
	f.ec.Rules = nil
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Empty(t, res.Violations)
	f.rules.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
	assert.Equal(t, nodeID, f.edge.SourceID)
	assert.Empty(t, f.lastSource.OutEdges)
	assert.Equal(t, []string{edgeID}, f.node.OutEdges)
	assert.Equal(t, "(15, 0)", f.content.SourceMagnet.String())
	assert.NoError(t, f.index.Validate())
}

func TestSetConnectionSourceNode_AllowNoSourceConnection(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(nil, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Allow(f.ec)

	assert.Equal(t, Info, res.Type)
	contexts := f.rules.contexts()
	require.Len(t, contexts, 2)
	assertConnection(t, contexts[0], f.edge, nil, nil)
	assertCardinality(t, contexts[1], f.lastSource, f.edge, rule.Outgoing, rule.Delete)
}

func TestSetConnectionSourceNode_Execute(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	contexts := f.rules.contexts()
	require.Len(t, contexts, 3)
	assertConnection(t, contexts[0], f.edge, f.node, f.target)
	assertCardinality(t, contexts[1], f.lastSource, f.edge, rule.Outgoing, rule.Delete)
	assertCardinality(t, contexts[2], f.node, f.edge, rule.Outgoing, rule.Add)

	assert.Empty(t, f.lastSource.OutEdges)
	assert.Equal(t, []string{edgeID}, f.node.OutEdges)
	assert.Equal(t, []string{edgeID}, f.target.InEdges)
	assert.Equal(t, nodeID, f.edge.SourceID)
	require.NotNil(t, f.content.SourceMagnet)
	assert.Equal(t, 15.0, f.content.SourceMagnet.X())
	assert.Equal(t, 0.0, f.content.SourceMagnet.Y())
	assert.Zero(t, f.index.mutations)
	assert.NoError(t, f.index.Validate())
}

func TestSetConnectionSourceNode_ExecuteNoMagnets(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	before := f.content.SourceMagnet
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge)
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	f.rules.AssertNumberOfCalls(t, "Evaluate", 3)
	assert.Empty(t, f.lastSource.OutEdges)
	assert.Equal(t, []string{edgeID}, f.node.OutEdges)
	assert.Equal(t, nodeID, f.edge.SourceID)
	assert.Same(t, before, f.content.SourceMagnet)
	assert.Zero(t, f.index.mutations)
}

func TestSetConnectionSourceNode_ExecuteMissingMagnet(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	f.content.SourceMagnet = nil
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Equal(t, "(15, 0)", f.content.SourceMagnet.String())
}

func TestSetConnectionSourceNode_ExecuteClearsConnection(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(nil, f.edge)
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	f.rules.AssertNumberOfCalls(t, "Evaluate", 2)
	assert.Empty(t, f.edge.SourceID)
	assert.Empty(t, f.lastSource.OutEdges)
	assert.Empty(t, f.node.OutEdges)
	assert.Equal(t, []string{edgeID}, f.target.InEdges)
}

func TestSetConnectionSourceNode_ExecuteRejected(t *testing.T) {
	f := newFixture(t)
	tooMany := rule.Violation{Type: rule.ViolationError, Rule: "max-out", Message: "too many"}
	f.rules.On("Evaluate", f.ruleSet, mock.MatchedBy(func(c rule.Context) bool {
		cc, ok := c.(*rule.ConnectorCardinalityContext)
		return ok && cc.Operation == rule.Add
	})).Return(rule.Violations{tooMany})
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Error, res.Type)
	assert.Equal(t, rule.Violations{tooMany}, res.Violations)
	// All three contexts are evaluated even though one fails.
	f.rules.AssertNumberOfCalls(t, "Evaluate", 3)
	assert.Equal(t, lastSourceID, f.edge.SourceID)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Empty(t, f.node.OutEdges)
	assert.Equal(t, "(0, 0)", f.content.SourceMagnet.String())
}

func TestSetConnectionSourceNode_ExecuteWithWarning(t *testing.T) {
	f := newFixture(t)
	warn := rule.Violation{Type: rule.ViolationWarning, Message: "unusual"}
	f.rules.On("Evaluate", f.ruleSet, mock.AnythingOfType("*rule.ConnectionContext")).Return(rule.Violations{warn})
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge)
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Warn, res.Type)
	assert.Len(t, res.Violations, 1)
	assert.Equal(t, nodeID, f.edge.SourceID)
}

func TestSetConnectionSourceNode_ExecuteSameNode(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.lastSource, f.edge, WithMagnet(diagram.NewMagnet(3, 4)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	f.rules.AssertNumberOfCalls(t, "Evaluate", 1)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Empty(t, f.node.OutEdges)
	assert.Equal(t, "(3, 4)", f.content.SourceMagnet.String())
}

func TestSetConnectionSourceNode_ExecuteSameNodeRejected(t *testing.T) {
	f := newFixture(t)
	denied := rule.Violation{Type: rule.ViolationError, Rule: "no-shape", Message: "denied"}
	f.rules.On("Evaluate", f.ruleSet, mock.Anything).Return(rule.Violations{denied})
	cmd, err := NewSetConnectionSourceNode(f.lastSource, f.edge, WithMagnet(diagram.NewMagnet(3, 4)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Error, res.Type)
	f.rules.AssertNumberOfCalls(t, "Evaluate", 1)
	assert.Equal(t, lastSourceID, f.edge.SourceID)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Equal(t, []string{edgeID}, f.target.InEdges)
	assert.Empty(t, f.node.OutEdges)
	assert.Equal(t, "(0, 0)", f.content.SourceMagnet.String())
}

func TestSetConnectionSourceNode_ExecuteTwice(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)

	require.Equal(t, Info, cmd.Execute(f.ec).Type)
	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Empty(t, f.lastSource.OutEdges)
	assert.Equal(t, []string{edgeID}, f.node.OutEdges)
	assert.Equal(t, nodeID, f.edge.SourceID)
}

func TestSetConnectionSourceNode_ExecuteTwiceThenUndo(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)
	require.Equal(t, Info, cmd.Execute(f.ec).Type)
	require.Equal(t, Info, cmd.Execute(f.ec).Type)

	res := cmd.Undo(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Equal(t, lastSourceID, f.edge.SourceID)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Empty(t, f.node.OutEdges)
	assert.Equal(t, "(0, 0)", f.content.SourceMagnet.String())
	assert.NoError(t, f.index.Validate())
}

func TestSetConnectionSourceNode_Undo(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	f.content.SourceMagnet = nil
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(15, 0)))
	require.NoError(t, err)
	require.Equal(t, Info, cmd.Execute(f.ec).Type)

	res := cmd.Undo(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Equal(t, lastSourceID, f.edge.SourceID)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Empty(t, f.node.OutEdges)
	assert.Nil(t, f.content.SourceMagnet)
	assert.NoError(t, f.index.Validate())
}

func TestSetConnectionSourceNode_UndoBeforeExecute(t *testing.T) {
	f := newFixture(t)
	cmd, err := NewSetConnectionSourceNode(f.node, f.edge)
	require.NoError(t, err)

	res := cmd.Undo(f.ec)

	assert.Equal(t, Info, res.Type)
	f.rules.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
	assert.Equal(t, lastSourceID, f.edge.SourceID)
}

func TestSetConnectionSourceNode_NilEdge(t *testing.T) {
	f := newFixture(t)

	cmd, err := NewSetConnectionSourceNode(f.node, nil)

	assert.ErrorIs(t, err, diagram.ErrInvalidArgument)
	assert.Nil(t, cmd)
}

func TestSetConnectionSourceNode_UnknownNode(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	stranger := &diagram.Node{ID: "stranger"}
	cmd, err := NewSetConnectionSourceNode(stranger, f.edge)
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Error, res.Type)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "stranger", res.Violations[0].Element)
	f.rules.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
	assert.Equal(t, lastSourceID, f.edge.SourceID)
}

func TestSetConnectionTargetNode_Execute(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	f.content.TargetMagnet = diagram.NewMagnet(1, 1)
	cmd, err := NewSetConnectionTargetNode(f.node, f.edge, WithMagnet(diagram.NewMagnet(0, 20)))
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	contexts := f.rules.contexts()
	require.Len(t, contexts, 3)
	assertConnection(t, contexts[0], f.edge, f.lastSource, f.node)
	assertCardinality(t, contexts[1], f.target, f.edge, rule.Incoming, rule.Delete)
	assertCardinality(t, contexts[2], f.node, f.edge, rule.Incoming, rule.Add)

	assert.Empty(t, f.target.InEdges)
	assert.Equal(t, []string{edgeID}, f.node.InEdges)
	assert.Equal(t, []string{edgeID}, f.lastSource.OutEdges)
	assert.Equal(t, nodeID, f.edge.TargetID)
	assert.Equal(t, "(0, 20)", f.content.TargetMagnet.String())
	assert.Equal(t, "(0, 0)", f.content.SourceMagnet.String())
	assert.Zero(t, f.index.mutations)
}

func TestSetConnectionTargetNode_AllowNoTargetConnection(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	cmd, err := NewSetConnectionTargetNode(nil, f.edge)
	require.NoError(t, err)

	res := cmd.Allow(f.ec)

	assert.Equal(t, Info, res.Type)
	contexts := f.rules.contexts()
	require.Len(t, contexts, 2)
	assertConnection(t, contexts[0], f.edge, nil, nil)
	assertCardinality(t, contexts[1], f.target, f.edge, rule.Incoming, rule.Delete)
}

func TestSetConnectionTargetNode_NewConnection(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	f.edge.TargetID = ""
	f.target.InEdges = nil
	cmd, err := NewSetConnectionTargetNode(f.node, f.edge)
	require.NoError(t, err)

	res := cmd.Execute(f.ec)

	assert.Equal(t, Info, res.Type)
	contexts := f.rules.contexts()
	require.Len(t, contexts, 2)
	assertConnection(t, contexts[0], f.edge, f.lastSource, f.node)
	assertCardinality(t, contexts[1], f.node, f.edge, rule.Incoming, rule.Add)
	assert.Equal(t, []string{edgeID}, f.node.InEdges)
}

func TestSetConnectionTargetNode_UndoRestoresMagnet(t *testing.T) {
	f := newFixture(t)
	f.passAll()
	f.content.TargetMagnet = diagram.NewMagnet(1, 1)
	cmd, err := NewSetConnectionTargetNode(f.node, f.edge, WithMagnet(nil))
	require.NoError(t, err)
	require.Equal(t, Info, cmd.Execute(f.ec).Type)
	require.Nil(t, f.content.TargetMagnet)

	res := cmd.Undo(f.ec)

	assert.Equal(t, Info, res.Type)
	assert.Equal(t, targetID, f.edge.TargetID)
	assert.Equal(t, "(1, 1)", f.content.TargetMagnet.String())
	assert.Equal(t, []string{edgeID}, f.target.InEdges)
	assert.Empty(t, f.node.InEdges)
}
