// Package meta persists per-class canvas positions in a JSON side file.
//
// The file holds a single object keyed by class id, each value an {x, y}
// position. Every change rewrites the whole mapping atomically; an absent
// file is an empty mapping.
package meta

import (
	"context"
	"encoding/json"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/fsutil"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/pathlock"
)

// Store is the in-memory mapping plus its backing file.
type Store struct {
	path   string
	locks  *pathlock.Locker
	logger *zap.SugaredLogger

	mu        sync.Mutex
	positions map[string]model.Position
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.logger = l }
}

// WithLocker shares a per-path lock set with other writers.
func WithLocker(l *pathlock.Locker) Option {
	return func(s *Store) { s.locks = l }
}

// Open returns a store backed by path, loading its current content.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:      path,
		logger:    zap.NewNop().Sugar(),
		positions: make(map[string]model.Position),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = &pathlock.Locker{}
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the side file's location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory mapping with the file's content.
func (s *Store) Load() error {
	data, ok, err := fsutil.ReadFile(s.path)
	if err != nil {
		return err
	}
	positions := make(map[string]model.Position)
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &positions); err != nil {
			return errors.Wrapf(err, "decode metadata %s", s.path)
		}
	}
	s.mu.Lock()
	s.positions = positions
	s.mu.Unlock()
	s.logger.Debugw("Loaded metadata", "path", s.path, "classes", len(positions))
	return nil
}

// All returns a copy of the mapping.
func (s *Store) All() map[string]model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.positions)
}

// Get returns classID's position.
func (s *Store) Get(classID string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[classID]
	return p, ok
}

// Set records classID's position and persists the mapping.
func (s *Store) Set(ctx context.Context, classID string, pos model.Position) error {
	return s.update(ctx, func(m map[string]model.Position) bool {
		if old, ok := m[classID]; ok && old == pos {
			return false
		}
		m[classID] = pos
		return true
	})
}

// Delete removes classID and persists the mapping. Deleting an absent id
// writes nothing.
func (s *Store) Delete(ctx context.Context, classID string) error {
	return s.update(ctx, func(m map[string]model.Position) bool {
		if _, ok := m[classID]; !ok {
			return false
		}
		delete(m, classID)
		return true
	})
}

// Rename moves the position recorded for from to to.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	return s.update(ctx, func(m map[string]model.Position) bool {
		pos, ok := m[from]
		if !ok || from == to {
			return false
		}
		delete(m, from)
		m[to] = pos
		return true
	})
}

// update applies fn to a copy of the mapping under the file lock and, when
// fn reports a change, writes the whole mapping before publishing it.
func (s *Store) update(ctx context.Context, fn func(map[string]model.Position) bool) error {
	return s.locks.Do(ctx, s.path, func() error {
		s.mu.Lock()
		next := maps.Clone(s.positions)
		s.mu.Unlock()

		if !fn(next) {
			return nil
		}
		data, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode metadata")
		}
		if err := fsutil.WriteAtomic(s.path, append(data, '\n')); err != nil {
			return err
		}

		s.mu.Lock()
		s.positions = next
		s.mu.Unlock()
		s.logger.Debugw("Wrote metadata", "path", s.path, "classes", len(next))
		return nil
	})
}
