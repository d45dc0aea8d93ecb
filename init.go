package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/classgraph/internal/config"
	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/entry"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/fsutil"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/logger"
)

const (
	sentinelStart = "# classgraph:start"
	sentinelEnd   = "# classgraph:end"
)

type initFlags struct {
	dryRun     bool
	classesDir string
	ext        string
	module     string
}

func newInitCmd(g *globalFlags) *cobra.Command {
	f := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold the class directory, entry file and metadata file",
		Long: `Write a classgraph section to classgraph.toml and create the class directory,
the entry file and the metadata file when they are missing. The section is
wrapped in sentinel comments so it can be updated in place on subsequent
runs without touching surrounding settings. Classes already in the directory
are registered in the entry file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), g, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the config file that would be written without modifying anything")
	cmd.Flags().StringVar(&f.classesDir, "classes-dir", "src/classes", "class directory, relative to the project")
	cmd.Flags().StringVar(&f.ext, "ext", ".ts", "class file extension (.ts or .tsx)")
	cmd.Flags().StringVar(&f.module, "module", framework.DefaultModule, "module specifier of the framework runtime")
	return cmd
}

func runInit(ctx context.Context, g *globalFlags, f *initFlags, stdout, stderr io.Writer) error {
	if lang.ForExtension(f.ext) == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "unsupported class file extension %q", f.ext)
	}
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return errors.Wrap(err, "resolve project dir")
	}
	path := g.configPath
	if path == "" {
		path = filepath.Join(dir, config.FileName)
	}

	existing, _, err := fsutil.ReadFile(path)
	if err != nil {
		return err
	}
	updated := applySection(string(existing), generateSection(f))

	if f.dryRun {
		_, err := fmt.Fprint(stdout, updated)
		return err
	}

	if updated != string(existing) {
		if err := fsutil.WriteAtomic(path, []byte(updated)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "wrote classgraph section to %s\n", path)
	}

	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	return scaffold(ctx, cfg, stderr)
}

// scaffold creates the class directory, the metadata file and the entry
// file, then registers the classes already present.
func scaffold(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	if err := fsutil.EnsureDir(cfg.Classes.Dir); err != nil {
		return err
	}
	if !fsutil.Exists(cfg.Metadata.Path) {
		if err := fsutil.WriteAtomic(cfg.Metadata.Path, []byte("{}\n")); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "created %s\n", cfg.Metadata.Path)
	}

	filter := discover.NewFilter(cfg.Classes.Dir, cfg.DiscoverOptions())
	registry, err := entry.New(filter.EntryPath(),
		entry.WithLogger(logger.Named("entry")),
		entry.WithModule(cfg.Framework.Module))
	if err != nil {
		return err
	}
	created := !fsutil.Exists(registry.Path())
	if err := registry.EnsureEntryFile(ctx); err != nil {
		return err
	}
	if created {
		_, _ = fmt.Fprintf(stderr, "created %s\n", registry.Path())
	}

	files, err := filter.Files()
	if err != nil {
		return err
	}
	ids := make([]string, len(files))
	for i, fe := range files {
		ids[i] = fe.ClassID
	}
	return registry.Sync(ctx, ids)
}

// generateSection returns the sentinel-wrapped config block.
func generateSection(f *initFlags) string {
	body := `# Managed by "classgraph init". Edits inside this block are replaced on the
# next run; use CLASSGRAPH_* environment variables for local overrides.

[classes]
dir = ` + strconv.Quote(f.classesDir) + `
ext = ` + strconv.Quote(f.ext) + `
entry = ` + strconv.Quote(framework.EntryBase) + `

[metadata]
path = ".classgraph/metadata.json"

[framework]
module = ` + strconv.Quote(f.module)

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if len(content) == 0 {
		return section + "\n"
	}
	// Append, ensuring a blank line separator.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
