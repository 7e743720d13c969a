package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/diagram"
)

func insertNode(ctx context.Context, tx pgx.Tx, diagramID string, pos int, n *diagram.Node) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO diagram_nodes (id, diagram_id, position, labels, out_edges, in_edges, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, diagramID, pos, nonNil(n.Labels), nonNil(n.OutEdges), nonNil(n.InEdges), n.Data,
	)
	if err != nil {
		return fmt.Errorf("diagram: insert node %s: %w", n.ID, err)
	}
	return nil
}

// listNodes returns all nodes of a diagram in insertion order.
func (s *PGStore) listNodes(ctx context.Context, diagramID string) ([]*diagram.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, labels, out_edges, in_edges, data FROM diagram_nodes
		 WHERE diagram_id = $1 ORDER BY position`, diagramID)
	if err != nil {
		return nil, fmt.Errorf("diagram: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*diagram.Node{}
	for rows.Next() {
		n := &diagram.Node{}
		if err := rows.Scan(&n.ID, &n.Labels, &n.OutEdges, &n.InEdges, &n.Data); err != nil {
			return nil, fmt.Errorf("diagram: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("diagram: rows nodes: %w", err)
	}
	return nodes, nil
}

// updateNodeEdges writes back a node's edge lists.
func updateNodeEdges(ctx context.Context, tx pgx.Tx, diagramID string, n *diagram.Node) error {
	ct, err := tx.Exec(ctx,
		`UPDATE diagram_nodes SET out_edges = $1, in_edges = $2 WHERE id = $3 AND diagram_id = $4`,
		nonNil(n.OutEdges), nonNil(n.InEdges), n.ID, diagramID,
	)
	if err != nil {
		return fmt.Errorf("diagram: update node %s: %w", n.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", diagram.ErrNodeNotFound, n.ID)
	}
	return nil
}

// nonNil keeps NOT NULL array columns happy.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
