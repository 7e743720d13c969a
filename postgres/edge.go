package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/diagram"
)

func insertEdge(ctx context.Context, tx pgx.Tx, diagramID string, pos int, e *diagram.Edge) error {
	kind, content, err := diagram.EncodeContent(e.Content)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO diagram_edges
		 (id, diagram_id, position, labels, source_node_id, target_node_id, content_type, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, diagramID, pos, nonNil(e.Labels), nullable(e.SourceID), nullable(e.TargetID), kind, content,
	)
	if err != nil {
		return fmt.Errorf("diagram: insert edge %s: %w", e.ID, err)
	}
	return nil
}

// listEdges returns all edges of a diagram in insertion order.
func (s *PGStore) listEdges(ctx context.Context, diagramID string) ([]*diagram.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, labels, source_node_id, target_node_id, content_type, content
		 FROM diagram_edges WHERE diagram_id = $1 ORDER BY position`, diagramID)
	if err != nil {
		return nil, fmt.Errorf("diagram: list edges: %w", err)
	}
	defer rows.Close()

	edges := []*diagram.Edge{}
	for rows.Next() {
		var (
			e        = &diagram.Edge{}
			src, dst *string
			kind     string
			raw      json.RawMessage
		)
		if err := rows.Scan(&e.ID, &e.Labels, &src, &dst, &kind, &raw); err != nil {
			return nil, fmt.Errorf("diagram: scan edge: %w", err)
		}
		e.SourceID, e.TargetID = deref(src), deref(dst)
		if e.Content, err = diagram.DecodeContent(kind, raw); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("diagram: rows edges: %w", err)
	}
	return edges, nil
}

// UpdateConnection stores the edge's endpoints and content together with the
// edge lists of the given nodes, in one transaction.
// Returns ErrEdgeNotFound if the edge isn't part of the diagram.
func (s *PGStore) UpdateConnection(ctx context.Context, diagramID string, edge *diagram.Edge, nodes ...*diagram.Node) error {
	kind, content, err := diagram.EncodeContent(edge.Content)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("diagram: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE diagram_edges
		 SET source_node_id = $1, target_node_id = $2, content_type = $3, content = $4
		 WHERE id = $5 AND diagram_id = $6`,
		nullable(edge.SourceID), nullable(edge.TargetID), kind, content, edge.ID, diagramID,
	)
	if err != nil {
		return fmt.Errorf("diagram: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM diagrams WHERE id = $1)`, diagramID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("diagram: check diagram: %w", err)
		}
		if !exists {
			return diagram.ErrDiagramNotFound
		}
		return diagram.ErrEdgeNotFound
	}

	for _, n := range nodes {
		if n == nil {
			continue
		}
		if err := updateNodeEdges(ctx, tx, diagramID, n); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("diagram: commit: %w", err)
	}
	return nil
}
