// Package session turns editor intents into source edits and class changes
// into editor notifications.
//
// Every class-file edit runs under that file's lock: read, parse, chain the
// mutate primitives the intent needs, serialize once, write once. Nothing
// is written when any step fails. The resulting class changes reach the
// editor through the watcher, which re-reads what was written.
package session

import (
	"context"
	"os"
	"os/exec"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/entry"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/fsutil"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/meta"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/mutate"
	"github.com/phobologic/classgraph/internal/pathlock"
	"github.com/phobologic/classgraph/internal/source"
	"github.com/phobologic/classgraph/internal/watch"
)

const defaultBuffer = 64

// Classes is a read-only view of the analysed class set.
type Classes interface {
	Snapshot() map[string]*model.ClassRecord
}

// Opener shows a class file to the user, typically in an external editor.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// CommandOpener opens files by running Name with the path appended to Args.
type CommandOpener struct {
	Name string
	Args []string
}

// Open starts the command without waiting for it to exit.
func (o CommandOpener) Open(ctx context.Context, path string) error {
	if o.Name == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "no editor command configured")
	}
	cmd := exec.CommandContext(ctx, o.Name, append(slices.Clone(o.Args), path)...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %s", o.Name)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Session is the orchestrator between the editor and the core components.
type Session struct {
	filter   *discover.Filter
	editor   *mutate.Editor
	meta     *meta.Store
	registry *entry.Registry
	classes  Classes
	opener   Opener
	locks    *pathlock.Locker
	logger   *zap.SugaredLogger

	out chan Notification
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Session) { s.logger = l }
}

// WithLocker shares a per-path lock set with the stores.
func WithLocker(l *pathlock.Locker) Option {
	return func(s *Session) { s.locks = l }
}

// WithOpener sets how class-open is served.
func WithOpener(o Opener) Option {
	return func(s *Session) { s.opener = o }
}

// WithEditor sets the source editor, and with it the framework module.
func WithEditor(e *mutate.Editor) Option {
	return func(s *Session) { s.editor = e }
}

// WithBuffer sets the capacity of the notification channel.
func WithBuffer(n int) Option {
	return func(s *Session) { s.out = make(chan Notification, n) }
}

// New returns a session editing the classes of filter's directory.
func New(filter *discover.Filter, store *meta.Store, registry *entry.Registry, classes Classes, opts ...Option) *Session {
	s := &Session{
		filter:   filter,
		meta:     store,
		registry: registry,
		classes:  classes,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.editor == nil {
		s.editor = mutate.New("")
	}
	if s.locks == nil {
		s.locks = &pathlock.Locker{}
	}
	if s.out == nil {
		s.out = make(chan Notification, defaultBuffer)
	}
	return s
}

// Notifications returns the outbound stream.
func (s *Session) Notifications() <-chan Notification {
	return s.out
}

// Handle performs one intent. A failure is both returned and sent as an
// error notification.
func (s *Session) Handle(ctx context.Context, in Intent) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	log := s.logger.With("intent", in.Type, "id", in.ID)
	log.Debugw("Handling intent", "classId", in.ClassID)

	err := s.dispatch(ctx, in)
	if err != nil {
		log.Warnw("Intent failed", "error", err)
		s.send(ctx, Notification{
			Type:    NotifyError,
			ID:      in.ID,
			Intent:  in.Type,
			ClassID: intentClass(in),
			Kind:    errors.Kind(err),
			Message: err.Error(),
		})
	}
	return err
}

func (s *Session) dispatch(ctx context.Context, in Intent) error {
	switch in.Type {
	case IntentInit:
		return s.Init(ctx, in.ID)
	case IntentClassNew:
		return s.NewClass(ctx, in.ClassID, in.Mixins, model.Position{X: in.X, Y: in.Y})
	case IntentClassUpdate:
		if err := validID(in.ClassID); err != nil {
			return err
		}
		return s.meta.Set(ctx, in.ClassID, model.Position{X: in.X, Y: in.Y})
	case IntentInject:
		mode := model.SingletonMode
		if in.AsFactory {
			mode = model.FactoryMode
		}
		return s.Inject(ctx, in.ToClassID, in.FromClassID, mode)
	case IntentInjectReplace:
		return s.ReplaceInjection(ctx, in.ClassID, in.PropertyName, in.InjectClassID, in.InjectorType)
	case IntentClassOpen:
		return s.Open(ctx, in.ClassID)
	case IntentToggleMixin:
		return s.ToggleMixin(ctx, in.ClassID, in.Mixin)
	case IntentClassDelete:
		return s.DeleteClass(ctx, in.ClassID)
	case IntentClassRename:
		return s.RenameClass(ctx, in.ClassID, in.ToClassID)
	case IntentToggleObservable:
		return s.SetRole(ctx, in.ClassID, in.Name, model.Observable, in.IsActive)
	case IntentToggleComputed:
		return s.SetRole(ctx, in.ClassID, in.Name, model.Computed, in.IsActive)
	case IntentToggleAction:
		return s.SetRole(ctx, in.ClassID, in.Name, model.Action, in.IsActive)
	default:
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown intent %q", in.Type)
	}
}

// Init answers an editor that connected: its status, then every class with
// its position.
func (s *Session) Init(ctx context.Context, id string) error {
	s.send(ctx, Notification{Type: NotifyInit, ID: id, Status: StatusReady})

	records := s.classes.Snapshot()
	nodes := make(map[string]model.ClassNode, len(records))
	for classID, rec := range records {
		nodes[classID] = s.node(rec)
	}
	s.send(ctx, Notification{Type: NotifyClasses, ID: id, Classes: nodes})
	return nil
}

// NewClass creates the file of classID with mixins, places it at pos and
// registers it in the entry file. An existing class is an error.
func (s *Session) NewClass(ctx context.Context, classID string, mixins []model.Mixin, pos model.Position) error {
	if err := validID(classID); err != nil {
		return err
	}
	for _, m := range mixins {
		if _, ok := model.ParseMixin(string(m)); !ok {
			return errors.Wrapf(errors.ErrInvalidRequest, "unknown mixin %q", m)
		}
	}
	if _, ok := s.filter.Locate(classID); ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "class %q already exists", classID)
	}
	path := s.filter.PathFor(classID)

	err := s.locks.Do(ctx, path, func() error {
		if fsutil.Exists(path) {
			return errors.Wrapf(errors.ErrInvalidRequest, "class %q already exists", classID)
		}
		out, err := s.render(path, mutate.NewClassSource(classID), func(doc *source.Document) error {
			for _, m := range mixins {
				if err := s.editor.SetMixin(doc, classID, m, true); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return fsutil.WriteAtomic(path, out)
	})
	if err != nil {
		return err
	}
	s.logger.Infow("Created class", "classId", classID, "path", path)

	if err := s.meta.Set(ctx, classID, pos); err != nil {
		return err
	}
	return s.registry.AddClass(ctx, classID)
}

// Inject makes target depend on dep. dep need not exist yet.
func (s *Session) Inject(ctx context.Context, target, dep string, mode model.InjectorMode) error {
	if err := validID(dep); err != nil {
		return err
	}
	return s.editClass(ctx, target, func(doc *source.Document) error {
		return s.editor.Inject(doc, target, dep, mode)
	})
}

// ReplaceInjection points the injector at prop of classID to dep.
func (s *Session) ReplaceInjection(ctx context.Context, classID, prop, dep string, mode model.InjectorMode) error {
	if err := validID(dep); err != nil {
		return err
	}
	if mode == "" {
		mode = model.SingletonMode
	}
	if mode != model.SingletonMode && mode != model.FactoryMode {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown injector type %q", mode)
	}
	return s.editClass(ctx, classID, func(doc *source.Document) error {
		return s.editor.ReplaceInjection(doc, classID, prop, dep, mode)
	})
}

// ToggleMixin adds or removes mixin on classID.
func (s *Session) ToggleMixin(ctx context.Context, classID string, mixin model.Mixin) error {
	return s.editClass(ctx, classID, func(doc *source.Document) error {
		return s.editor.ToggleMixin(doc, classID, mixin)
	})
}

// SetRole marks member of classID with role, or clears its role when
// active is false.
func (s *Session) SetRole(ctx context.Context, classID, member string, role model.Role, active bool) error {
	if member == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "missing member name")
	}
	if !active {
		role = ""
	}
	return s.editClass(ctx, classID, func(doc *source.Document) error {
		return s.editor.ToggleObservableRole(doc, classID, member, role)
	})
}

// Open shows the file of classID through the configured opener.
func (s *Session) Open(ctx context.Context, classID string) error {
	if s.opener == nil {
		return errors.Wrap(errors.ErrInvalidRequest, "class-open is not configured")
	}
	path, err := s.locate(classID)
	if err != nil {
		return err
	}
	return s.opener.Open(ctx, path)
}

// DeleteClass removes the file of classID together with its position and
// entry-file registration.
func (s *Session) DeleteClass(ctx context.Context, classID string) error {
	path, err := s.locate(classID)
	if err != nil {
		return err
	}
	err = s.locks.Do(ctx, path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.WrapFS(err, "remove %s", path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Infow("Deleted class", "classId", classID)

	if err := s.meta.Delete(ctx, classID); err != nil {
		return err
	}
	return s.registry.RemoveClass(ctx, classID)
}

// RenameClass renames classID to to: the declarations inside its file, the
// file itself, its position and its registration.
func (s *Session) RenameClass(ctx context.Context, classID, to string) error {
	if err := validID(to); err != nil {
		return err
	}
	if classID == to {
		return nil
	}
	from, err := s.locate(classID)
	if err != nil {
		return err
	}
	if _, ok := s.filter.Locate(to); ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "class %q already exists", to)
	}
	dest := s.filter.PathFor(to)

	err = s.locks.Do(ctx, from, func() error {
		src, ok, err := fsutil.ReadFile(from)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(errors.ErrClassNotFound, "class %q has no file", classID)
		}
		out, err := s.render(from, src, func(doc *source.Document) error {
			return mutate.RenameClass(doc, classID, to)
		})
		if err != nil {
			return err
		}
		return s.locks.Do(ctx, dest, func() error {
			if fsutil.Exists(dest) {
				return errors.Wrapf(errors.ErrInvalidRequest, "class %q already exists", to)
			}
			if err := fsutil.WriteAtomic(dest, out); err != nil {
				return err
			}
			// The position moves before the old file goes, so the
			// watcher's delete of the old id finds nothing to drop.
			if err := s.meta.Rename(ctx, classID, to); err != nil {
				_ = os.Remove(dest)
				return err
			}
			if err := os.Remove(from); err != nil {
				_ = s.meta.Rename(context.WithoutCancel(ctx), to, classID)
				_ = os.Remove(dest)
				return errors.WrapFS(err, "remove %s", from)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.logger.Infow("Renamed class", "from", classID, "to", to)
	return s.registry.RenameClass(ctx, classID, to)
}

// Forward turns class set events into notifications until events is
// closed or ctx is done.
func (s *Session) Forward(ctx context.Context, events <-chan watch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case watch.Delete:
				s.send(ctx, Notification{Type: NotifyClassDelete, ClassID: ev.ClassID})
			default:
				node := s.node(ev.Record)
				s.send(ctx, Notification{Type: NotifyClassUpdate, ClassID: ev.ClassID, Class: &node})
			}
		}
	}
}

// editClass runs fn over the parsed file of classID and writes the result
// once, under the file's lock. An unchanged result is not written.
func (s *Session) editClass(ctx context.Context, classID string, fn func(*source.Document) error) error {
	path, err := s.locate(classID)
	if err != nil {
		return err
	}
	return s.locks.Do(ctx, path, func() error {
		src, ok, err := fsutil.ReadFile(path)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(errors.ErrClassNotFound, "class %q has no file", classID)
		}
		out, err := s.render(path, src, fn)
		if err != nil {
			return err
		}
		if string(out) == string(src) {
			return nil
		}
		return fsutil.WriteAtomic(path, out)
	})
}

// render parses src as the language of path, applies fn and serializes.
func (s *Session) render(path string, src []byte, fn func(*source.Document) error) ([]byte, error) {
	l := lang.ForPath(path)
	if l == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unsupported file %s", path)
	}
	doc, err := source.Parse(l, src)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	defer doc.Close()
	if err := fn(doc); err != nil {
		return nil, err
	}
	return doc.Bytes()
}

func (s *Session) locate(classID string) (string, error) {
	if err := validID(classID); err != nil {
		return "", err
	}
	path, ok := s.filter.Locate(classID)
	if !ok {
		return "", errors.Wrapf(errors.ErrClassNotFound, "class %q has no file", classID)
	}
	return path, nil
}

func (s *Session) node(rec *model.ClassRecord) model.ClassNode {
	n := model.ClassNode{ClassRecord: *rec.Clone()}
	if pos, ok := s.meta.Get(rec.ID); ok {
		n.Position = &pos
	}
	return n
}

func (s *Session) send(ctx context.Context, n Notification) {
	select {
	case s.out <- n:
	case <-ctx.Done():
	}
}

func validID(classID string) error {
	if !discover.ValidClassID(classID) {
		return errors.Wrapf(errors.ErrInvalidRequest, "invalid class id %q", classID)
	}
	return nil
}

// intentClass is the class an intent is about, for error reports.
func intentClass(in Intent) string {
	if in.Type == IntentInject {
		return in.ToClassID
	}
	return in.ClassID
}
