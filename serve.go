package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/classgraph/internal/config"
	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/entry"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/logger"
	"github.com/phobologic/classgraph/internal/meta"
	"github.com/phobologic/classgraph/internal/mutate"
	"github.com/phobologic/classgraph/internal/pathlock"
	"github.com/phobologic/classgraph/internal/server"
	"github.com/phobologic/classgraph/internal/session"
	"github.com/phobologic/classgraph/internal/watch"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the class directory and serve the editor socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// engine is the wired set of long-running components.
type engine struct {
	set     *watch.Set
	session *session.Session
	server  *server.Server
}

// newEngine builds every component over one shared lock table, so the
// metadata file, the entry file and class files are each edited by one
// writer at a time no matter which component asks.
func newEngine(cfg *config.Config) (*engine, error) {
	locks := &pathlock.Locker{}
	filter := discover.NewFilter(cfg.Classes.Dir, cfg.DiscoverOptions())

	store, err := meta.Open(cfg.Metadata.Path,
		meta.WithLogger(logger.Named("meta")),
		meta.WithLocker(locks))
	if err != nil {
		return nil, err
	}
	registry, err := entry.New(filter.EntryPath(),
		entry.WithLogger(logger.Named("entry")),
		entry.WithLocker(locks),
		entry.WithModule(cfg.Framework.Module))
	if err != nil {
		return nil, err
	}
	editorName, editorArgs, err := cfg.EditorCommand()
	if err != nil {
		return nil, err
	}
	set, err := watch.New(filter, store, registry,
		watch.WithLogger(logger.Named("watch")),
		watch.WithCacheSize(cfg.Cache.Size))
	if err != nil {
		return nil, err
	}
	sess := session.New(filter, store, registry, set,
		session.WithLogger(logger.Named("session")),
		session.WithLocker(locks),
		session.WithEditor(mutate.New(cfg.Framework.Module)),
		session.WithOpener(session.CommandOpener{Name: editorName, Args: editorArgs}))
	srv := server.New(sess,
		server.WithLogger(logger.Named("server")),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		server.WithIntentRate(cfg.Server.IntentRate, cfg.Server.IntentBurst))

	return &engine{set: set, session: sess, server: srv}, nil
}

// serve runs the engine until ctx is done or a component fails. When ln is
// nil it listens on cfg.Server.Addr. The socket opens only after the initial
// scan so the first snapshot an editor sees is complete.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	log := logger.Named("serve")
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.set.Run(ctx)
	})
	g.Go(func() error {
		e.session.Forward(ctx, e.set.Events())
		return nil
	})
	g.Go(func() error {
		e.server.Broadcast(ctx, e.session.Notifications())
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-e.set.Ready():
		}
		if ln == nil {
			var lc net.ListenConfig
			l, err := lc.Listen(ctx, "tcp", cfg.Server.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", cfg.Server.Addr)
			}
			ln = l
		}
		httpSrv := &http.Server{
			Handler:           e.server.Handler(ctx),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		log.Infow("Serving class editor",
			"addr", ln.Addr().String(),
			"classes", cfg.Classes.Dir,
			"classCount", len(e.set.IDs()))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})

	err = g.Wait()
	log.Infow("Stopped")
	return err
}
