package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS diagrams (
    id         TEXT PRIMARY KEY,
    rule_set   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS diagram_nodes (
    id         TEXT PRIMARY KEY,
    diagram_id TEXT NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
    position   INT NOT NULL,
    labels     TEXT[] NOT NULL DEFAULT '{}',
    out_edges  TEXT[] NOT NULL DEFAULT '{}',
    in_edges   TEXT[] NOT NULL DEFAULT '{}',
    data       JSONB
);

CREATE TABLE IF NOT EXISTS diagram_edges (
    id             TEXT PRIMARY KEY,
    diagram_id     TEXT NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
    position       INT NOT NULL,
    labels         TEXT[] NOT NULL DEFAULT '{}',
    source_node_id TEXT REFERENCES diagram_nodes(id) ON DELETE SET NULL,
    target_node_id TEXT REFERENCES diagram_nodes(id) ON DELETE SET NULL,
    content_type   TEXT NOT NULL DEFAULT '',
    content        JSONB
);

CREATE INDEX IF NOT EXISTS idx_diagram_nodes_diagram_id ON diagram_nodes(diagram_id);
CREATE INDEX IF NOT EXISTS idx_diagram_edges_diagram_id ON diagram_edges(diagram_id);
CREATE INDEX IF NOT EXISTS idx_diagram_edges_source     ON diagram_edges(source_node_id);
CREATE INDEX IF NOT EXISTS idx_diagram_edges_target     ON diagram_edges(target_node_id);
`

// CreateSchema creates the diagram tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the diagram tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS diagram_edges, diagram_nodes, diagrams CASCADE;`)
	return err
}
