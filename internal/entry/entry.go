// Package entry maintains the bootstrap file that imports every class and
// registers it with the runtime container.
//
//	import { Container } from "reactive-app";
//	import { Foo } from "./Foo";
//
//	export const container = new Container({
//	  Foo,
//	});
//
// Each change is a structural edit of the existing file, so hand-written
// code in the entry file survives.
package entry

import (
	"bytes"
	"context"
	"slices"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/fsutil"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/mutate"
	"github.com/phobologic/classgraph/internal/pathlock"
	"github.com/phobologic/classgraph/internal/source"
)

// Registry edits the entry file at a fixed path.
type Registry struct {
	path   string
	module string
	lang   *lang.Language
	locks  *pathlock.Locker
	logger *zap.SugaredLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithLocker shares a per-path lock set with other writers.
func WithLocker(l *pathlock.Locker) Option {
	return func(r *Registry) { r.locks = l }
}

// WithModule sets the module the container is imported from.
func WithModule(module string) Option {
	return func(r *Registry) { r.module = module }
}

// New returns a registry for the entry file at path. The file's extension
// selects the grammar.
func New(path string, opts ...Option) (*Registry, error) {
	l := lang.ForPath(path)
	if l == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unsupported entry file %s", path)
	}
	r := &Registry{
		path:   path,
		module: framework.DefaultModule,
		lang:   l,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locks == nil {
		r.locks = &pathlock.Locker{}
	}
	return r, nil
}

// Path returns the entry file's location.
func (r *Registry) Path() string {
	return r.path
}

// Template is the content of a freshly scaffolded entry file.
func (r *Registry) Template() []byte {
	return []byte("import { " + framework.Container + " } from \"" + r.module + "\";\n\n" +
		"export const container = new " + framework.Container + "({});\n")
}

// EnsureEntryFile writes the template when the entry file does not exist.
func (r *Registry) EnsureEntryFile(ctx context.Context) error {
	return r.locks.Do(ctx, r.path, func() error {
		if fsutil.Exists(r.path) {
			return nil
		}
		r.logger.Infow("Creating entry file", "path", r.path)
		return fsutil.WriteAtomic(r.path, r.Template())
	})
}

// AddClass imports classID and registers it with the container.
func (r *Registry) AddClass(ctx context.Context, classID string) error {
	return r.edit(ctx, func(doc *source.Document) error {
		return addClass(doc, classID)
	})
}

// RemoveClass drops classID's registration and import.
func (r *Registry) RemoveClass(ctx context.Context, classID string) error {
	return r.edit(ctx, func(doc *source.Document) error {
		return removeClass(doc, classID)
	})
}

// RenameClass replaces from's registration and import with to's.
func (r *Registry) RenameClass(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	return r.edit(ctx, func(doc *source.Document) error {
		if err := removeClass(doc, from); err != nil {
			return err
		}
		return addClass(doc, to)
	})
}

// Sync makes the registered set equal classIDs in one write: missing ids
// are added, extra ones removed.
func (r *Registry) Sync(ctx context.Context, classIDs []string) error {
	return r.edit(ctx, func(doc *source.Document) error {
		obj, err := containerObject(doc)
		if err != nil {
			return err
		}
		for _, p := range doc.ObjectProps(obj) {
			if !slices.Contains(classIDs, p.Key) {
				if err := removeClass(doc, p.Key); err != nil {
					return err
				}
			}
		}
		for _, id := range classIDs {
			if err := addClass(doc, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// State reads the entry file's imports and registered classes. A missing
// file yields an empty state.
func (r *Registry) State() (model.EntryFileState, error) {
	state := model.EntryFileState{Imports: map[string][]string{}, Classes: []string{}}
	src, ok, err := fsutil.ReadFile(r.path)
	if err != nil || !ok {
		return state, err
	}
	doc, err := source.Parse(r.lang, src)
	if err != nil {
		return state, errors.Wrapf(err, "entry file %s", r.path)
	}
	defer doc.Close()

	for _, imp := range doc.Imports() {
		names := state.Imports[imp.Module]
		for _, s := range imp.Specs {
			names = append(names, s.Name)
		}
		state.Imports[imp.Module] = names
	}
	obj, err := containerObject(doc)
	if err != nil {
		return state, err
	}
	for _, p := range doc.ObjectProps(obj) {
		state.Classes = append(state.Classes, p.Key)
	}
	return state, nil
}

// edit runs fn over the entry file (scaffolding it first if absent) and
// writes the result when it changed.
func (r *Registry) edit(ctx context.Context, fn func(*source.Document) error) error {
	return r.locks.Do(ctx, r.path, func() error {
		src, ok, err := fsutil.ReadFile(r.path)
		if err != nil {
			return err
		}
		if !ok {
			src = r.Template()
		}
		doc, err := source.Parse(r.lang, src)
		if err != nil {
			return errors.Wrapf(err, "entry file %s", r.path)
		}
		defer doc.Close()

		if err := fn(doc); err != nil {
			return err
		}
		out, err := doc.Bytes()
		if err != nil {
			return err
		}
		if ok && bytes.Equal(out, src) {
			return nil
		}
		r.logger.Debugw("Writing entry file", "path", r.path)
		return fsutil.WriteAtomic(r.path, out)
	})
}

func addClass(doc *source.Document, classID string) error {
	if err := mutate.AddImport(doc, "./"+classID, classID, false); err != nil {
		return err
	}
	obj, err := containerObject(doc)
	if err != nil {
		return err
	}
	if _, ok := mutate.FindProp(doc, obj, classID); ok {
		return nil
	}
	return mutate.AddObjectEntry(doc, obj, classID)
}

func removeClass(doc *source.Document, classID string) error {
	obj, err := containerObject(doc)
	if err != nil {
		return err
	}
	if p, ok := mutate.FindProp(doc, obj, classID); ok {
		if err := mutate.RemoveObjectEntry(doc, obj, p.Node); err != nil {
			return err
		}
	}
	return mutate.RemoveImport(doc, "./"+classID, classID)
}

// containerObject finds the object literal passed to `new Container(...)`.
func containerObject(doc *source.Document) (*sitter.Node, error) {
	var obj *sitter.Node
	source.Walk(doc.Root(), func(n *sitter.Node) bool {
		if obj != nil {
			return false
		}
		if n.Type() != "new_expression" {
			return true
		}
		ctor := n.ChildByFieldName("constructor")
		if ctor == nil || doc.Text(ctor) != framework.Container {
			return true
		}
		for _, arg := range source.NamedChildren(n.ChildByFieldName("arguments")) {
			if arg.Type() == "object" {
				obj = arg
				return false
			}
		}
		return true
	})
	if obj == nil {
		return nil, errors.Wrapf(errors.ErrParse, "no new %s({...}) registration", framework.Container)
	}
	return obj, nil
}
