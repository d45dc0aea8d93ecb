// Package watch keeps an in-memory mirror of the class directory.
//
// A Set scans the directory once at startup, then patches its cache from
// fsnotify events. Each change is re-extracted and compared by value with
// the cached record; only real differences produce an Event. Removing a
// class file drops its cache entry, its canvas position and its entry-file
// registration together.
package watch

import (
	"context"
	"maps"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/entry"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/fsutil"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/meta"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/parse"
)

const (
	defaultCacheSize = 512
	defaultBuffer    = 64
)

// EventKind says what happened to a class.
type EventKind int

const (
	// Update means the class appeared or its record changed.
	Update EventKind = iota
	// Delete means the class file is gone.
	Delete
)

func (k EventKind) String() string {
	if k == Delete {
		return "delete"
	}
	return "update"
}

// Event reports one class change. Record is nil for deletes.
type Event struct {
	Kind    EventKind
	ClassID string
	Record  *model.ClassRecord
}

// Set is the watched class set.
type Set struct {
	filter   *discover.Filter
	meta     *meta.Store
	registry *entry.Registry
	logger   *zap.SugaredLogger

	cacheSize int
	analysed  *lru.Cache[string, *model.ClassRecord]
	events    chan Event
	ready     chan struct{}

	mu      sync.RWMutex
	records map[string]*model.ClassRecord
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the set's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Set) { s.logger = l }
}

// WithCacheSize bounds how many analysed file contents are remembered.
func WithCacheSize(n int) Option {
	return func(s *Set) { s.cacheSize = n }
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(s *Set) { s.events = make(chan Event, n) }
}

// New returns a set over the directory of filter. Deletions are mirrored
// into store and registry.
func New(filter *discover.Filter, store *meta.Store, registry *entry.Registry, opts ...Option) (*Set, error) {
	s := &Set{
		filter:    filter,
		meta:      store,
		registry:  registry,
		logger:    zap.NewNop().Sugar(),
		cacheSize: defaultCacheSize,
		ready:     make(chan struct{}),
		records:   make(map[string]*model.ClassRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = make(chan Event, defaultBuffer)
	}
	cache, err := lru.New[string, *model.ClassRecord](s.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create analysis cache")
	}
	s.analysed = cache
	return s, nil
}

// Events returns the change stream. It is closed when Run returns.
func (s *Set) Events() <-chan Event {
	return s.events
}

// Ready is closed once the startup scan has finished.
func (s *Set) Ready() <-chan struct{} {
	return s.ready
}

// Snapshot returns a copy of every cached record.
func (s *Set) Snapshot() map[string]*model.ClassRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*model.ClassRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.Clone()
	}
	return out
}

// Get returns a copy of one cached record.
func (s *Set) Get(classID string) (*model.ClassRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[classID]
	return rec.Clone(), ok
}

// IDs returns the cached class ids in sorted order.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.records))
}

// Scan rebuilds the cache from disk and brings the entry file in line with
// the class files present. Files that fail to extract are logged and left
// out of the cache but stay registered.
func (s *Set) Scan(ctx context.Context) error {
	files, err := s.filter.Files()
	if err != nil {
		return err
	}

	records := make(map[string]*model.ClassRecord, len(files))
	ids := make([]string, 0, len(files))
	for _, fe := range files {
		ids = append(ids, fe.ClassID)
		rec, err := s.analyse(fe)
		if err != nil {
			s.logger.Warnw("Skipping class", "path", fe.Path, "error", err)
			continue
		}
		records[fe.ClassID] = rec
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Infow("Scanned class directory", "dir", s.filter.Dir(), "classes", len(records))
	return s.registry.Sync(ctx, ids)
}

// Run scans the directory and then applies file system events until ctx is
// done. The event channel is closed on return.
func (s *Set) Run(ctx context.Context) error {
	defer close(s.events)

	if err := fsutil.EnsureDir(s.filter.Dir()); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapFS(err, "create watcher")
	}
	defer w.Close()
	if err := w.Add(s.filter.Dir()); err != nil {
		return errors.WrapFS(err, "watch %s", s.filter.Dir())
	}

	if err := s.Scan(ctx); err != nil {
		return err
	}
	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.Handle(ctx, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warnw("Watcher error", "error", err)
		}
	}
}

// Handle applies one file system event. Paths that are not class files are
// ignored. A rename resolves to a create when the path still exists and to a
// delete otherwise.
func (s *Set) Handle(ctx context.Context, ev fsnotify.Event) {
	fe, ok := s.filter.Match(ev.Name)
	if !ok {
		return
	}
	s.logger.Debugw("File event", "path", ev.Name, "op", ev.Op.String())

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		s.refresh(ctx, fe)
	case ev.Has(fsnotify.Remove):
		s.remove(ctx, fe.ClassID)
	case ev.Has(fsnotify.Rename):
		if fsutil.Exists(fe.Path) {
			s.refresh(ctx, fe)
		} else {
			s.remove(ctx, fe.ClassID)
		}
	}
}

func (s *Set) refresh(ctx context.Context, fe discover.FileEntry) {
	if !fsutil.Exists(fe.Path) {
		s.remove(ctx, fe.ClassID)
		return
	}
	rec, err := s.analyse(fe)
	if err != nil {
		// Half-saved files are expected; the next event retries.
		s.logger.Debugw("Extraction failed", "path", fe.Path, "error", err)
		return
	}

	s.mu.Lock()
	prev, existed := s.records[fe.ClassID]
	changed := !existed || !prev.Equal(rec)
	if changed {
		s.records[fe.ClassID] = rec
	}
	s.mu.Unlock()

	if !existed {
		if err := s.registry.AddClass(ctx, fe.ClassID); err != nil {
			s.logger.Warnw("Failed to register class", "classId", fe.ClassID, "error", err)
		}
	}
	if changed {
		s.emit(ctx, Event{Kind: Update, ClassID: fe.ClassID, Record: rec.Clone()})
	}
}

func (s *Set) remove(ctx context.Context, classID string) {
	s.mu.Lock()
	_, existed := s.records[classID]
	delete(s.records, classID)
	s.mu.Unlock()

	if err := s.meta.Delete(ctx, classID); err != nil {
		s.logger.Warnw("Failed to delete position", "classId", classID, "error", err)
	}
	if err := s.registry.RemoveClass(ctx, classID); err != nil {
		s.logger.Warnw("Failed to unregister class", "classId", classID, "error", err)
	}
	if existed {
		s.logger.Infow("Class removed", "classId", classID)
		s.emit(ctx, Event{Kind: Delete, ClassID: classID})
	}
}

// analyse extracts the record of fe, reusing an earlier extraction of the
// same content.
func (s *Set) analyse(fe discover.FileEntry) (*model.ClassRecord, error) {
	data, ok, err := fsutil.ReadFile(fe.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WrapFS(os.ErrNotExist, "read %s", fe.Path)
	}

	key := contentKey(fe.ClassID, fe.Language, data)
	if rec, ok := s.analysed.Get(key); ok {
		return rec.Clone(), nil
	}
	rec, err := parse.ExtractClass(lang.Languages[fe.Language], data, fe.ClassID)
	if err != nil {
		return nil, err
	}
	s.analysed.Add(key, rec.Clone())
	return rec, nil
}

func (s *Set) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func contentKey(classID, language string, data []byte) string {
	return classID + "\x00" + language + "\x00" + strconv.FormatUint(xxhash.Sum64(data), 16)
}
