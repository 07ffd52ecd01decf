package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fastfind/internal/config"
	"github.com/standardbeagle/fastfind/internal/debug"
	"github.com/standardbeagle/fastfind/internal/engine"
	"github.com/standardbeagle/fastfind/internal/types"
	"github.com/standardbeagle/fastfind/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag
// overrides on top.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if roots := c.StringSlice("root"); len(roots) > 0 {
		cfg.Index.Roots = roots
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Index.ExcludedPaths = append(cfg.Index.ExcludedPaths, excludes...)
	}
	if c.IsSet("hidden") {
		cfg.Index.IncludeHidden = c.Bool("hidden")
	}
	if c.IsSet("threads") {
		cfg.Index.ParallelThreads = c.Int("threads")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	return cfg, nil
}

// newEngine builds an engine from config, attaching persistence when a
// storage path is configured.
func newEngine(cfg *config.Config) *engine.Engine {
	var opts []engine.Option
	if cfg.Storage.Path != "" {
		opts = append(opts, engine.WithPersistence(cfg.PersistenceOptions()))
	}
	return engine.New(opts...)
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	app := &cli.App{
		Name:                   "fastfind",
		Usage:                  "High-throughput filesystem search",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml)",
				Value:   ".fastfind.kdl",
			},
			&cli.StringSliceFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Root directories to index (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude paths by prefix, segment, or glob (e.g. --exclude node_modules)",
			},
			&cli.BoolFlag{
				Name:  "hidden",
				Usage: "Include hidden entries",
			},
			&cli.IntFlag{
				Name:  "threads",
				Usage: "Enumerator worker count (0 = auto)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Persistent index file path",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug traces to a temp log file",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				path, err := debug.InitLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "debug log: %s\n", path)
			}
			return nil
		},
		After: func(*cli.Context) error {
			debug.Close()
			return nil
		},
		Commands: []*cli.Command{
			indexCommand(),
			searchCommand(),
			watchCommand(),
			statusCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fastfind: %v\n", err)
		os.Exit(1)
	}
}

// runIndex is shared by the index and watch commands.
func runIndex(ctx context.Context, eng *engine.Engine, opts *types.IndexingOptions, quiet bool) error {
	if !quiet {
		eng.OnProgress(func(p types.IndexingProgress) {
			switch p.Phase {
			case types.PhaseIndexing:
				fmt.Fprintf(os.Stderr, "\rindexed %d entries (%s)", p.Count, p.Elapsed.Round(timeRound))
			case types.PhaseCompleted:
				fmt.Fprintf(os.Stderr, "\rindexed %d entries in %s\n", p.Count, p.Elapsed.Round(timeRound))
			case types.PhaseCancelled:
				fmt.Fprintf(os.Stderr, "\rindexing cancelled after %d entries\n", p.Count)
			case types.PhaseFailed:
				fmt.Fprintf(os.Stderr, "\rindexing failed\n")
			}
		})
	}
	return eng.Index(ctx, opts)
}
