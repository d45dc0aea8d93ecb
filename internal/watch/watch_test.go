package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/entry"
	"github.com/phobologic/classgraph/internal/meta"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/mutate"
	"github.com/phobologic/classgraph/internal/pathlock"
)

type fixture struct {
	dir      string
	set      *Set
	meta     *meta.Store
	registry *entry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "classes")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	log := zaptest.NewLogger(t).Sugar()
	locks := &pathlock.Locker{}
	store, err := meta.Open(filepath.Join(root, "metadata.json"), meta.WithLocker(locks), meta.WithLogger(log))
	require.NoError(t, err)
	registry, err := entry.New(filepath.Join(dir, "index.ts"), entry.WithLocker(locks), entry.WithLogger(log))
	require.NoError(t, err)
	set, err := New(discover.NewFilter(dir, discover.Options{}), store, registry, WithLogger(log), WithCacheSize(8))
	require.NoError(t, err)
	return &fixture{dir: dir, set: set, meta: store, registry: registry}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) registered(t *testing.T) []string {
	t.Helper()
	state, err := f.registry.State()
	require.NoError(t, err)
	return state.Classes
}

// drain returns the events buffered so far.
func (f *fixture) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-f.set.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestScan(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "Foo.ts", string(mutate.NewClassSource("Foo")))
	f.write(t, "Bar.ts", "export class Bar {\n  count = 0;\n}\n")
	f.write(t, "Broken.ts", "export class Broken {\n")
	f.write(t, "Foo.test.ts", "export class Foo {}\n")

	require.NoError(t, f.set.Scan(ctx))

	assert.Equal(t, []string{"Bar", "Foo"}, f.set.IDs())
	rec, ok := f.set.Get("Bar")
	require.True(t, ok)
	assert.Equal(t, []model.Member{{Name: "count", Role: model.Plain}}, rec.Properties)

	// Unparsable files stay registered: they are class files on disk.
	assert.ElementsMatch(t, []string{"Bar", "Broken", "Foo"}, f.registered(t))
	assert.Empty(t, f.drain(), "scan emits no events")
}

func TestHandleUpdateDiffsByValue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.set.Scan(ctx))

	path := f.write(t, "Foo.ts", string(mutate.NewClassSource("Foo")))
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create})

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, Update, events[0].Kind)
	assert.Equal(t, "Foo", events[0].ClassID)
	assert.Equal(t, []string{"Foo"}, f.registered(t))

	// Same structure, different bytes: no event.
	f.write(t, "Foo.ts", "// note\n"+string(mutate.NewClassSource("Foo")))
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Empty(t, f.drain())

	f.write(t, "Foo.ts", "export class Foo {\n  count = 0;\n}\n")
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	events = f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, []model.Member{{Name: "count", Role: model.Plain}}, events[0].Record.Properties)
}

func TestHandleSwallowsExtractionErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	path := f.write(t, "Foo.ts", string(mutate.NewClassSource("Foo")))
	require.NoError(t, f.set.Scan(ctx))

	f.write(t, "Foo.ts", "export class Foo {\n  static id = \n")
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Empty(t, f.drain())
	_, ok := f.set.Get("Foo")
	assert.True(t, ok, "last good record is kept")

	f.write(t, "Foo.ts", "export class Bar {}\n")
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Empty(t, f.drain(), "class not found is swallowed too")
}

func TestHandleIgnoresNonClassFiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.set.Scan(ctx))

	for _, name := range []string{"index.ts", "Foo.test.ts", "notes.md", ".Foo.ts.123.tmp"} {
		path := f.write(t, name, "export class Foo {}\n")
		f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create})
		f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Remove})
	}
	assert.Empty(t, f.drain())
	assert.Empty(t, f.set.IDs())
}

func TestHandleDeleteInLockstep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	path := f.write(t, "C.ts", string(mutate.NewClassSource("C")))
	f.write(t, "D.ts", string(mutate.NewClassSource("D")))
	require.NoError(t, f.set.Scan(ctx))
	require.NoError(t, f.meta.Set(ctx, "C", model.Position{X: 1, Y: 2}))
	require.NoError(t, f.meta.Set(ctx, "D", model.Position{X: 3, Y: 4}))

	require.NoError(t, os.Remove(path))
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Remove})
	// A second notification for the same file is harmless.
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Rename})

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, Event{Kind: Delete, ClassID: "C"}, events[0])
	_, ok := f.meta.Get("C")
	assert.False(t, ok)
	_, ok = f.meta.Get("D")
	assert.True(t, ok)
	assert.Equal(t, []string{"D"}, f.registered(t))
	assert.Equal(t, []string{"D"}, f.set.IDs())
}

func TestHandleRenameOfExistingFileIsCreate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.set.Scan(ctx))

	path := f.write(t, "Foo.ts", string(mutate.NewClassSource("Foo")))
	f.set.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Rename})

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, Update, events[0].Kind)
}

func TestAnalyseReusesCachedContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(t, "Foo.ts", string(mutate.NewClassSource("Foo")))
	fe, ok := f.set.filter.Match(filepath.Join(f.dir, "Foo.ts"))
	require.True(t, ok)

	first, err := f.set.analyse(fe)
	require.NoError(t, err)
	assert.Equal(t, 1, f.set.analysed.Len())

	first.Mixins = append(first.Mixins, model.View)
	second, err := f.set.analyse(fe)
	require.NoError(t, err)
	assert.Empty(t, second.Mixins, "cached records are not aliased")
	assert.Equal(t, 1, f.set.analysed.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(t, "Foo.ts", string(mutate.NewClassSource("Foo")))
	require.NoError(t, f.set.Scan(context.Background()))

	snap := f.set.Snapshot()
	snap["Foo"].Mixins = append(snap["Foo"].Mixins, model.View)
	rec, _ := f.set.Get("Foo")
	assert.Empty(t, rec.Mixins)
}

func TestRunExternalDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := f.write(t, "C.ts", string(mutate.NewClassSource("C")))
	require.NoError(t, f.meta.Set(ctx, "C", model.Position{X: 10, Y: 20}))

	done := make(chan error, 1)
	go func() { done <- f.set.Run(ctx) }()
	select {
	case <-f.set.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}
	assert.Equal(t, []string{"C"}, f.registered(t))

	require.NoError(t, os.Remove(path))

	var deletes []Event
	require.Eventually(t, func() bool {
		for _, ev := range f.drain() {
			if ev.Kind == Delete {
				deletes = append(deletes, ev)
			}
		}
		return len(deletes) > 0
	}, 5*time.Second, 20*time.Millisecond)

	// Let any trailing notifications settle before counting.
	time.Sleep(100 * time.Millisecond)
	for _, ev := range f.drain() {
		if ev.Kind == Delete {
			deletes = append(deletes, ev)
		}
	}
	assert.Equal(t, []Event{{Kind: Delete, ClassID: "C"}}, deletes)
	_, ok := f.meta.Get("C")
	assert.False(t, ok)
	assert.Empty(t, f.registered(t))

	cancel()
	require.NoError(t, <-done)
	for range f.set.Events() {
	}
}

func TestRunPicksUpNewFiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = f.set.Run(ctx) }()
	<-f.set.Ready()

	f.write(t, "Foo.ts", "export class Foo {\n  count = 0;\n}\n")
	require.Eventually(t, func() bool {
		rec, ok := f.set.Get("Foo")
		return ok && len(rec.Properties) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"Foo"}, f.registered(t))
}
