// Package pgstore persists graph snapshots in PostgreSQL.
//
// A graph is stored as rows of graph_vertices and graph_edges keyed by a
// caller-chosen graph id. Every Save replaces the stored rows and records a
// graph_snapshots row. Property values are kept as typed JSON so numeric
// widths survive a round trip.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads and writes graphs through a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

// New creates a Store backed by db.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Open connects to the database at url.
func Open(ctx context.Context, url string) (*Store, error) {
	db, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return New(db), nil
}

// Close closes the pool.
func (s *Store) Close() { s.db.Close() }

// SnapshotInfo describes one recorded save.
type SnapshotInfo struct {
	ID        uuid.UUID
	GraphID   string
	Vertices  int
	Edges     int
	CreatedAt time.Time
}

// Save replaces the stored graph graphID with the contents of h in one
// transaction and returns the id of the recorded snapshot.
func (s *Store) Save(ctx context.Context, graphID string, h graph.Handle) (uuid.UUID, error) {
	vs, es := h.Vertices(), h.Edges()

	vrows := make([][]any, len(vs))
	for i, v := range vs {
		props, err := encodeProps(v.Properties())
		if err != nil {
			return uuid.Nil, fmt.Errorf("pgstore: vertex %s: %w", v.ID(), err)
		}
		vrows[i] = []any{graphID, v.ID(), i, props}
	}
	erows := make([][]any, len(es))
	for i, e := range es {
		props, err := encodeProps(e.Properties())
		if err != nil {
			return uuid.Nil, fmt.Errorf("pgstore: edge %s: %w", e.ID(), err)
		}
		erows[i] = []any{graphID, e.ID(), i, e.OutID(), e.InID(), e.Label(), props}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// replace semantics
	if _, err := tx.Exec(ctx, `DELETE FROM graph_edges WHERE graph_id = $1`, graphID); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph_vertices WHERE graph_id = $1`, graphID); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: delete vertices: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"graph_vertices"},
		[]string{"graph_id", "id", "seq", "properties"}, pgx.CopyFromRows(vrows)); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: insert vertices: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"graph_edges"},
		[]string{"graph_id", "id", "seq", "out_id", "in_id", "label", "properties"}, pgx.CopyFromRows(erows)); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: insert edges: %w", err)
	}

	id := uuid.New()
	if _, err := tx.Exec(ctx,
		`INSERT INTO graph_snapshots (id, graph_id, name, vertices, edges) VALUES ($1, $2, $3, $4, $5)`,
		id, graphID, h.Name(), len(vs), len(es),
	); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: record snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: commit: %w", err)
	}
	return id, nil
}

// Load adds the stored graph graphID to w, in the order it was saved. It
// returns a map from stored vertex ids to the ids assigned by w. A graph
// that was never saved loads as empty.
func (s *Store) Load(ctx context.Context, graphID string, w graph.Writer) (map[string]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, properties FROM graph_vertices WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query vertices: %w", err)
	}
	type vertexRow struct {
		id    string
		props []byte
	}
	vrows, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (vertexRow, error) {
		var v vertexRow
		err := r.Scan(&v.id, &v.props)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan vertex: %w", err)
	}

	ids := make(map[string]string, len(vrows))
	for _, r := range vrows {
		props, err := decodeProps(r.props)
		if err != nil {
			return nil, fmt.Errorf("pgstore: vertex %s: %w", r.id, err)
		}
		v, err := w.AddVertex(props)
		if err != nil {
			return nil, fmt.Errorf("pgstore: add vertex %s: %w", r.id, err)
		}
		ids[r.id] = v.ID()
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, out_id, in_id, label, properties FROM graph_edges WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query edges: %w", err)
	}
	type edgeRow struct {
		id, out, in, label string
		props              []byte
	}
	erows, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (edgeRow, error) {
		var e edgeRow
		err := r.Scan(&e.id, &e.out, &e.in, &e.label, &e.props)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan edge: %w", err)
	}
	for _, r := range erows {
		outID, ok1 := ids[r.out]
		inID, ok2 := ids[r.in]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("pgstore: edge %s references a missing vertex", r.id)
		}
		props, err := decodeProps(r.props)
		if err != nil {
			return nil, fmt.Errorf("pgstore: edge %s: %w", r.id, err)
		}
		out, err := w.Vertex(outID)
		if err != nil {
			return nil, err
		}
		in, err := w.Vertex(inID)
		if err != nil {
			return nil, err
		}
		if _, err := w.AddEdge(out, in, r.label, props); err != nil {
			return nil, fmt.Errorf("pgstore: add edge %s: %w", r.id, err)
		}
	}
	return ids, nil
}

// Snapshots lists the recorded saves of graphID, newest first.
func (s *Store) Snapshots(ctx context.Context, graphID string) ([]SnapshotInfo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, graph_id, vertices, edges, created_at FROM graph_snapshots WHERE graph_id = $1 ORDER BY created_at DESC`, graphID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query snapshots: %w", err)
	}
	infos, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (SnapshotInfo, error) {
		var i SnapshotInfo
		err := r.Scan(&i.ID, &i.GraphID, &i.Vertices, &i.Edges, &i.CreatedAt)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan snapshot: %w", err)
	}
	return infos, nil
}

// CommitHook returns a graph commit hook saving each committed snapshot as
// graphID. A failed save aborts the commit.
func (s *Store) CommitHook(graphID string, timeout time.Duration) func(*graph.Snapshot) error {
	return func(snap *graph.Snapshot) error {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		_, err := s.Save(ctx, graphID, snap)
		return err
	}
}
