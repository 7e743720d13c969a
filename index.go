package diagram

import (
	"fmt"
	"slices"
)

// Index resolves element ids of one graph.
//
// Graph commands only look elements up; the mutation methods exist for the
// authoring layer that creates and destroys nodes and edges.
type Index interface {
	Graph() *Graph
	GetNode(id string) *Node
	GetEdge(id string) *Edge

	AddNode(n *Node)
	RemoveNode(n *Node)
	AddEdge(e *Edge)
	RemoveEdge(e *Edge)
}

// MapIndex is the map-backed Index. It keeps the graph's Nodes and Edges
// slices in step with its maps.
type MapIndex struct {
	graph *Graph
	nodes map[string]*Node
	edges map[string]*Edge
}

// NewIndex builds an index over g.
func NewIndex(g *Graph) *MapIndex {
	idx := &MapIndex{
		graph: g,
		nodes: make(map[string]*Node, len(g.Nodes)),
		edges: make(map[string]*Edge, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		idx.nodes[n.ID] = n
	}
	for _, e := range g.Edges {
		idx.edges[e.ID] = e
	}
	return idx
}

func (idx *MapIndex) Graph() *Graph { return idx.graph }

// GetNode returns nil if no node has the id.
func (idx *MapIndex) GetNode(id string) *Node {
	if id == "" {
		return nil
	}
	return idx.nodes[id]
}

// GetEdge returns nil if no edge has the id.
func (idx *MapIndex) GetEdge(id string) *Edge {
	if id == "" {
		return nil
	}
	return idx.edges[id]
}

func (idx *MapIndex) AddNode(n *Node) {
	if _, ok := idx.nodes[n.ID]; ok {
		return
	}
	idx.nodes[n.ID] = n
	idx.graph.Nodes = append(idx.graph.Nodes, n)
}

func (idx *MapIndex) RemoveNode(n *Node) {
	if _, ok := idx.nodes[n.ID]; !ok {
		return
	}
	delete(idx.nodes, n.ID)
	idx.graph.Nodes = slices.DeleteFunc(idx.graph.Nodes, func(x *Node) bool { return x.ID == n.ID })
}

func (idx *MapIndex) AddEdge(e *Edge) {
	if _, ok := idx.edges[e.ID]; ok {
		return
	}
	idx.edges[e.ID] = e
	idx.graph.Edges = append(idx.graph.Edges, e)
}

func (idx *MapIndex) RemoveEdge(e *Edge) {
	if _, ok := idx.edges[e.ID]; !ok {
		return
	}
	delete(idx.edges, e.ID)
	idx.graph.Edges = slices.DeleteFunc(idx.graph.Edges, func(x *Edge) bool { return x.ID == e.ID })
}

// Validate checks that every edge endpoint resolves to an indexed node and
// that the node's edge list mentions the edge.
func (idx *MapIndex) Validate() error {
	for _, e := range idx.graph.Edges {
		if e.SourceID != "" {
			src := idx.GetNode(e.SourceID)
			if src == nil {
				return fmt.Errorf("%w: edge %s source %s", ErrNodeNotFound, e.ID, e.SourceID)
			}
			if !slices.Contains(src.OutEdges, e.ID) {
				return fmt.Errorf("diagram: edge %s missing from out edges of %s", e.ID, src.ID)
			}
		}
		if e.TargetID != "" {
			dst := idx.GetNode(e.TargetID)
			if dst == nil {
				return fmt.Errorf("%w: edge %s target %s", ErrNodeNotFound, e.ID, e.TargetID)
			}
			if !slices.Contains(dst.InEdges, e.ID) {
				return fmt.Errorf("diagram: edge %s missing from in edges of %s", e.ID, dst.ID)
			}
		}
	}
	return nil
}
