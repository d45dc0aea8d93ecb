// classgraph keeps a directory of framework class files and a visual class
// editor in sync.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/classgraph/internal/config"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dir        string
}

// load reads the project configuration and initialises the process logger.
func (g *globalFlags) load() (*config.Config, string, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, "", errors.Wrap(err, "resolve project dir")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, "", errors.WrapFS(err, "project dir")
	}
	if !info.IsDir() {
		return nil, "", errors.Newf("%s: not a directory", dir)
	}
	cfg, err := config.Load(g.configPath, dir)
	if err != nil {
		return nil, "", err
	}
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return nil, "", errors.Wrap(err, "initialize logger")
	}
	return cfg, dir, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "classgraph",
		Short: "Keep framework class files and the class editor in sync",
		Long: `classgraph watches a directory of TypeScript class files written against the
reactive-app runtime, keeps the entry file and the canvas metadata file in
step with it, and applies structural edits requested by the class editor.

Commands:
  serve    - watch the class directory and serve the editor socket
  map      - print a ranked TOON map of the classes and their injections
  init     - scaffold the class directory, entry file and metadata file
  version  - print the version`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default <dir>/"+config.FileName+")")
	root.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "project directory")

	root.AddCommand(newServeCmd(g))
	root.AddCommand(newMapCmd(g))
	root.AddCommand(newInitCmd(g))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "classgraph %s\n", version)
			return err
		},
	}
}
