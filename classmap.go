package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/classgraph/internal/config"
	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/graph"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/meta"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/parse"
	"github.com/phobologic/classgraph/internal/ranking"
	"github.com/phobologic/classgraph/internal/toon"
)

type mapFlags struct {
	maxClasses int
	class      string
	mixin      string
	members    bool
}

func newMapCmd(g *globalFlags) *cobra.Command {
	f := &mapFlags{}
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print a ranked TOON map of the classes and their injections",
		Long: `Print a ranked map of the class directory in TOON format: every class with
its mixins, rank and canvas position, every injected property, and the
dependency edges between classes. Classes are ranked by PageRank over the
injection graph, most injected first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, dir, err := g.load()
			if err != nil {
				return err
			}
			return runMap(cmd.Context(), cfg, dir, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().IntVarP(&f.maxClasses, "max-classes", "n", 0, "maximum number of classes to include")
	cmd.Flags().StringVar(&f.class, "class", "", "only classes whose id contains this text, with their neighbours")
	cmd.Flags().StringVar(&f.mixin, "mixin", "", "only classes carrying this mixin")
	cmd.Flags().BoolVar(&f.members, "members", false, "include properties and methods with their roles")
	return cmd
}

func runMap(ctx context.Context, cfg *config.Config, dir string, f *mapFlags, stdout, stderr io.Writer) error {
	var mixin model.Mixin
	if f.mixin != "" {
		m, ok := model.ParseMixin(f.mixin)
		if !ok {
			return errors.Wrapf(errors.ErrInvalidRequest, "unknown mixin %q", f.mixin)
		}
		mixin = m
	}

	files, err := discover.Files(cfg.Classes.Dir, cfg.DiscoverOptions())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Newf("no class files found in %s", cfg.Classes.Dir)
	}

	records, err := analyseFiles(ctx, cfg.Classes.Dir, files, stderr)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no class files could be parsed")
	}

	store, err := meta.Open(cfg.Metadata.Path)
	if err != nil {
		return err
	}
	nodes := make([]model.ClassNode, len(records))
	for i, rec := range records {
		nodes[i] = model.ClassNode{ClassRecord: *rec}
		if pos, ok := store.Get(rec.ID); ok {
			nodes[i].Position = &pos
		}
	}

	deps := graph.BuildGraph(nodes)
	graph.Rank(nodes, deps)

	cm := &model.ClassMap{
		Name:         filepath.Base(dir),
		Root:         relativeTo(dir, cfg.Classes.Dir),
		Classes:      nodes,
		Dependencies: deps,
	}
	if mixin != "" {
		cm = ranking.FilterByMixin(cm, mixin)
	}
	if f.class != "" {
		cm = ranking.FilterByClass(cm, f.class)
		if len(cm.Classes) == 0 {
			return errors.Newf("no classes match %q", f.class)
		}
	}
	if f.maxClasses > 0 {
		cm = ranking.SelectClasses(cm, f.maxClasses)
	}

	_, err = fmt.Fprintln(stdout, toon.Encode(cm, toon.Options{Members: f.members}))
	return err
}

// analyseFiles extracts every class file on a bounded pool of workers and
// returns the records in discovery order. Files that cannot be read or
// parsed are reported on stderr and skipped.
func analyseFiles(ctx context.Context, dir string, files []discover.FileEntry, stderr io.Writer) ([]*model.ClassRecord, error) {
	results := make([]*model.ClassRecord, len(files))
	var stderrMu sync.Mutex
	warn := func(path string, err error) {
		stderrMu.Lock()
		defer stderrMu.Unlock()
		_, _ = fmt.Fprintf(stderr, "Warning: %s: %v\n", path, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(f.Path)
			if err != nil {
				warn(relativeTo(dir, f.Path), errors.WrapFS(err, "read"))
				return nil
			}
			rec, err := parse.ExtractClass(lang.Languages[f.Language], src, f.ClassID)
			if err != nil {
				warn(relativeTo(dir, f.Path), err)
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []*model.ClassRecord
	for _, rec := range results {
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
