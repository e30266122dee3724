package pgstore

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS graph_vertices (
    graph_id   TEXT NOT NULL,
    id         TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    properties JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS graph_edges (
    graph_id   TEXT NOT NULL,
    id         TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    out_id     TEXT NOT NULL,
    in_id      TEXT NOT NULL,
    label      TEXT NOT NULL,
    properties JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (graph_id, id),
    FOREIGN KEY (graph_id, out_id) REFERENCES graph_vertices(graph_id, id) ON DELETE CASCADE,
    FOREIGN KEY (graph_id, in_id)  REFERENCES graph_vertices(graph_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS graph_snapshots (
    id         UUID PRIMARY KEY,
    graph_id   TEXT NOT NULL,
    name       TEXT NOT NULL,
    vertices   INTEGER NOT NULL,
    edges      INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_out ON graph_edges(graph_id, out_id);
CREATE INDEX IF NOT EXISTS idx_graph_edges_in  ON graph_edges(graph_id, in_id);
CREATE INDEX IF NOT EXISTS idx_graph_snapshots_graph ON graph_snapshots(graph_id, created_at);
`

// CreateSchema creates the graph tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the graph tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS graph_edges, graph_vertices, graph_snapshots CASCADE;`)
	return err
}
