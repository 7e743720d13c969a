package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/diagram"
)

// CreateDiagram saves a full diagram (nodes + edges) in one transaction.
// Elements without IDs get auto-generated UUIDs and node edge lists are
// rebuilt from the edge endpoints. Returns the diagram with all IDs filled in.
func (s *PGStore) CreateDiagram(ctx context.Context, g *diagram.Graph) (*diagram.Graph, error) {
	if err := diagram.Prepare(g); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: an existing diagram with the same ID is dropped.
	if _, err := tx.Exec(ctx, `DELETE FROM diagrams WHERE id = $1`, g.ID); err != nil {
		return nil, fmt.Errorf("diagram: delete diagram: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO diagrams (id, rule_set) VALUES ($1, $2)`, g.ID, g.RuleSet,
	); err != nil {
		return nil, fmt.Errorf("diagram: insert diagram: %w", err)
	}

	for i, n := range g.Nodes {
		if err := insertNode(ctx, tx, g.ID, i, n); err != nil {
			return nil, err
		}
	}
	for i, e := range g.Edges {
		if err := insertEdge(ctx, tx, g.ID, i, e); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("diagram: commit: %w", err)
	}
	return g, nil
}

// GetDiagram retrieves a full diagram by its ID.
// Returns nil, nil if the diagram doesn't exist.
func (s *PGStore) GetDiagram(ctx context.Context, diagramID string) (*diagram.Graph, error) {
	g := &diagram.Graph{ID: diagramID}
	err := s.db.QueryRow(ctx,
		`SELECT rule_set FROM diagrams WHERE id = $1`, diagramID,
	).Scan(&g.RuleSet)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("diagram: get diagram: %w", err)
	}

	if g.Nodes, err = s.listNodes(ctx, diagramID); err != nil {
		return nil, err
	}
	if g.Edges, err = s.listEdges(ctx, diagramID); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteDiagram removes a diagram with its nodes and edges.
// No error if the diagramID doesn't exist.
func (s *PGStore) DeleteDiagram(ctx context.Context, diagramID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM diagrams WHERE id = $1`, diagramID); err != nil {
		return fmt.Errorf("diagram: delete diagram: %w", err)
	}
	return nil
}
