package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
	"github.com/standardbeagle/fastfind/pkg/pathutil"
)

const timeRound = 10 * time.Millisecond

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the in-memory index and optionally save it",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "save", Usage: "Checkpoint the index to the configured db path"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if len(cfg.Index.Roots) == 0 {
				return fmt.Errorf("no roots configured; pass --root or set index.roots")
			}
			ctx, cancel := signalContext()
			defer cancel()

			eng := newEngine(cfg)
			defer eng.Close()

			if err := runIndex(ctx, eng, cfg.IndexingOptions(), false); err != nil {
				return err
			}
			if c.Bool("save") {
				if err := eng.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "saved to %s\n", cfg.Storage.Path)
			}
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the index",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "regex", Usage: "Treat the text as a regular expression"},
			&cli.BoolFlag{Name: "case", Usage: "Case-sensitive matching"},
			&cli.BoolFlag{Name: "name-only", Usage: "Match names instead of full paths"},
			&cli.StringFlag{Name: "base", Usage: "Restrict to a directory subtree"},
			&cli.StringFlag{Name: "ext", Usage: "Extension filter (e.g. .go)"},
			&cli.BoolFlag{Name: "files-only", Usage: "Exclude directories from results"},
			&cli.BoolFlag{Name: "dirs-only", Usage: "Exclude files from results"},
			&cli.IntFlag{Name: "max", Usage: "Result cap (0 = unlimited)", Value: 1000},
			&cli.BoolFlag{Name: "from-db", Usage: "Query the persistent store instead of indexing"},
			&cli.BoolFlag{Name: "relative", Usage: "Print paths relative to the first root"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			q := types.NewSearchQuery(c.Args().First())
			q.UseRegex = c.Bool("regex")
			q.CaseSensitive = c.Bool("case")
			q.NameOnly = c.Bool("name-only")
			q.BasePath = c.String("base")
			q.ExtensionFilter = c.String("ext")
			q.MaxResults = c.Int("max")
			if c.Bool("files-only") {
				q.IncludeDirectories = false
			}
			if c.Bool("dirs-only") {
				q.IncludeFiles = false
			}
			q.IncludeHidden = cfg.Index.IncludeHidden
			q.IncludeSystem = cfg.Index.IncludeSystem

			eng := newEngine(cfg)
			defer eng.Close()

			var result *types.SearchResult
			if c.Bool("from-db") {
				store, err := eng.PersistentStore(ctx)
				if err != nil {
					return err
				}
				result, err = store.Search(ctx, q)
				if err != nil {
					return err
				}
			} else {
				if len(cfg.Index.Roots) == 0 {
					return fmt.Errorf("no roots configured; pass --root or use --from-db")
				}
				if err := runIndex(ctx, eng, cfg.IndexingOptions(), true); err != nil {
					return err
				}
				result = eng.Search(ctx, q)
				if result.Err != nil {
					return result.Err
				}
			}

			var root string
			if c.Bool("relative") && len(cfg.Index.Roots) > 0 {
				// Results carry normalized paths, so the root must be
				// normalized the same way before relativizing.
				root = strpool.NormalizePath(cfg.Index.Roots[0])
			}
			for _, e := range result.Entries {
				path := e.FullPath
				if root != "" {
					path = pathutil.ToRelative(path, root)
				}
				if e.IsDir() {
					fmt.Printf("%s/\n", path)
				} else {
					fmt.Printf("%s\t%s\n", path, humanize.IBytes(uint64(e.Size)))
				}
			}
			fmt.Fprintf(os.Stderr, "%d of %d matches in %s", result.Returned, result.Total, result.Elapsed.Round(timeRound))
			if result.HasMore {
				fmt.Fprint(os.Stderr, " (more available, raise --max)")
			}
			fmt.Fprintln(os.Stderr)
			return nil
		},
	}
}
