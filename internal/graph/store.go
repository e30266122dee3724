package graph

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Options configures a Store.
//
// Defaults:
// - Kind:     "MemoryGraph"
// - Location: "memory"
type Options struct {
	Kind     string
	Location string

	// CommitHook runs with the writer lock held before a snapshot is
	// published. An error aborts the commit.
	CommitHook func(*Snapshot) error
}

type Option func(*Options)

func WithName(kind string) Option         { return func(o *Options) { o.Kind = kind } }
func WithLocation(location string) Option { return func(o *Options) { o.Location = location } }
func WithCommitHook(h func(*Snapshot) error) Option {
	return func(o *Options) { o.CommitHook = h }
}

// Store is an in-memory property graph with copy-on-write snapshots.
// Readers never block; writers are serialized by a single lock.
type Store struct {
	opts    Options
	current atomic.Pointer[Snapshot]
	writeMu sync.Mutex
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	o := Options{Kind: "MemoryGraph", Location: "memory"}
	for _, f := range opts {
		f(&o)
	}
	s := &Store{opts: o}
	s.current.Store(emptySnapshot(fmt.Sprintf("%s [%s]", o.Kind, o.Location)))
	return s
}

// Name returns the display identity of the graph.
func (s *Store) Name() string { return s.current.Load().name }

// Snapshot returns the latest committed state.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// Begin starts a transaction reading the latest committed state. The
// transaction takes the writer lock on its first mutation.
func (s *Store) Begin() *Tx {
	return &Tx{store: s, view: s.current.Load()}
}

// Update runs fn in a transaction and commits when fn returns nil.
func (s *Store) Update(fn func(*Tx) error) error {
	tx := s.Begin()
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
