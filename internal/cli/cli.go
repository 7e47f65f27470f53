// Package cli implements the sealevel command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sealevel/pkg/buildinfo"
	"github.com/matzehuels/sealevel/pkg/cache"
	"github.com/matzehuels/sealevel/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "sealevel"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Sealevel animates coastal flooding over elevation data",
		Long: `Sealevel floods a digital elevation model at a sweep of sea levels and
renders each level as a 2D map and a 3D terrain view, then assembles both
series into looping GIF animations.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.levelsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheOpts selects the grid cache backend.
type cacheOpts struct {
	disabled bool
	dir      string // file cache directory; empty uses cacheDir()
	redis    string // Redis address; takes precedence over the file cache
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, opts cacheOpts) (*pipeline.Runner, error) {
	gc, err := c.newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(gc, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, opts cacheOpts) (cache.Cache, error) {
	if opts.disabled {
		return cache.NewNullCache(), nil
	}
	if opts.redis != "" {
		rc, err := cache.NewRedisCache(ctx, opts.redis)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir, err := resolveCacheDir(opts.dir)
	if err != nil {
		c.Logger.Warn("grid cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/sealevel/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// resolveCacheDir returns dir, or cacheDir() when dir is empty.
func resolveCacheDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return cacheDir()
}
