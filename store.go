package diagram

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDiagramNotFound = errors.New("diagram: diagram not found")
	ErrNodeNotFound    = errors.New("diagram: node not found")
	ErrEdgeNotFound    = errors.New("diagram: edge not found")
	ErrInvalidArgument = errors.New("diagram: invalid argument")
)

// Store defines the contract for persisting and retrieving diagrams.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Diagram (bulk operations)
	CreateDiagram(ctx context.Context, g *Graph) (*Graph, error)
	GetDiagram(ctx context.Context, diagramID string) (*Graph, error)
	DeleteDiagram(ctx context.Context, diagramID string) error

	// UpdateConnection persists a rewired edge together with the edge lists
	// of the nodes whose connections changed. It fails with ErrDiagramNotFound
	// or ErrEdgeNotFound when either is unknown.
	UpdateConnection(ctx context.Context, diagramID string, edge *Edge, nodes ...*Node) error
}

// Prepare assigns ids to nodes and edges that lack one and rebuilds every
// node's OutEdges and InEdges from the edge endpoints. It fails with
// ErrNodeNotFound when an endpoint does not name a node of the graph.
// Stores call it before persisting a new diagram.
func Prepare(g *Graph) error {
	if g.ID == "" {
		g.ID = NewID()
	}
	byID := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			n.ID = NewID()
		}
		n.OutEdges, n.InEdges = nil, nil
		byID[n.ID] = n
	}
	for _, e := range g.Edges {
		if e.ID == "" {
			e.ID = NewID()
		}
		if e.SourceID != "" {
			src, ok := byID[e.SourceID]
			if !ok {
				return fmt.Errorf("%w: unknown source %q on edge %s", ErrNodeNotFound, e.SourceID, e.ID)
			}
			src.AddOutEdge(e)
		}
		if e.TargetID != "" {
			dst, ok := byID[e.TargetID]
			if !ok {
				return fmt.Errorf("%w: unknown target %q on edge %s", ErrNodeNotFound, e.TargetID, e.ID)
			}
			dst.AddInEdge(e)
		}
	}
	return nil
}
