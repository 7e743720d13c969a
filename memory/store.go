// Package memory is an in-process diagram.Store. Diagrams are copied on the
// way in and out, so callers never share graph values with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/meikuraledutech/diagram"
)

// Store keeps diagrams in a map guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	diagrams map[string]*diagram.Graph
}

// New returns an empty Store.
func New() *Store {
	return &Store{diagrams: make(map[string]*diagram.Graph)}
}

// CreateSchema is a no-op; the map needs no schema.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema forgets every diagram.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagrams = make(map[string]*diagram.Graph)
	return nil
}

// CreateDiagram stores a copy of g, replacing any diagram with the same ID.
func (s *Store) CreateDiagram(ctx context.Context, g *diagram.Graph) (*diagram.Graph, error) {
	if err := diagram.Prepare(g); err != nil {
		return nil, err
	}
	cp, err := clone(g)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagrams[g.ID] = cp
	return g, nil
}

// GetDiagram returns nil, nil if the diagram doesn't exist.
func (s *Store) GetDiagram(ctx context.Context, diagramID string) (*diagram.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.diagrams[diagramID]
	if !ok {
		return nil, nil
	}
	return clone(g)
}

// DeleteDiagram is a no-op for unknown IDs.
func (s *Store) DeleteDiagram(ctx context.Context, diagramID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.diagrams, diagramID)
	return nil
}

// UpdateConnection copies the edge's endpoints and content and the nodes'
// edge lists into the stored diagram.
func (s *Store) UpdateConnection(ctx context.Context, diagramID string, edge *diagram.Edge, nodes ...*diagram.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.diagrams[diagramID]
	if !ok {
		return diagram.ErrDiagramNotFound
	}
	idx := diagram.NewIndex(g)

	stored := idx.GetEdge(edge.ID)
	if stored == nil {
		return diagram.ErrEdgeNotFound
	}
	for _, n := range nodes {
		if n != nil && idx.GetNode(n.ID) == nil {
			return fmt.Errorf("%w: %s", diagram.ErrNodeNotFound, n.ID)
		}
	}

	content, err := cloneEdge(edge)
	if err != nil {
		return err
	}
	stored.SourceID, stored.TargetID, stored.Content = content.SourceID, content.TargetID, content.Content
	for _, n := range nodes {
		if n == nil {
			continue
		}
		sn := idx.GetNode(n.ID)
		sn.OutEdges = append([]string(nil), n.OutEdges...)
		sn.InEdges = append([]string(nil), n.InEdges...)
	}
	return nil
}

func clone(g *diagram.Graph) (*diagram.Graph, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("diagram: copy diagram: %w", err)
	}
	out := &diagram.Graph{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("diagram: copy diagram: %w", err)
	}
	return out, nil
}

func cloneEdge(e *diagram.Edge) (*diagram.Edge, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("diagram: copy edge: %w", err)
	}
	out := &diagram.Edge{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("diagram: copy edge: %w", err)
	}
	return out, nil
}
