package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fastfind/internal/scan"
	"github.com/standardbeagle/fastfind/internal/types"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Index the roots and keep the index live until interrupted",
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

			eng.OnFileChanged(func(ch types.FileChange) {
				fmt.Fprintf(os.Stderr, "%s %s\n", ch.Kind, ch.Path)
			})

			if err := runIndex(ctx, eng, cfg.IndexingOptions(), false); err != nil {
				return err
			}
			if err := eng.EnableMonitoring(cfg.MonitoringOptions(), cfg.Index.Roots...); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "watching; ctrl-c to stop")
			<-ctx.Done()
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Index the roots and report statistics",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if len(cfg.Index.Roots) == 0 {
				// With nothing configured, report the mounts we would index.
				fmt.Println("no roots configured; detected filesystem roots:")
				for _, root := range scan.ListRoots() {
					fmt.Printf("  %s (%s)\n", root, scan.FSTypeOf(root))
				}
				return nil
			}
			ctx, cancel := signalContext()
			defer cancel()

			eng := newEngine(cfg)
			defer eng.Close()

			if err := runIndex(ctx, eng, cfg.IndexingOptions(), true); err != nil {
				return err
			}

			st := eng.Stats()
			fmt.Printf("entries:   %d (%d files, %d dirs)\n",
				st.Index.TotalEntries, st.Index.TotalFiles, st.Index.TotalDirs)
			fmt.Printf("bytes:     %s\n", humanize.IBytes(uint64(st.Index.TotalBytes)))
			fmt.Printf("pool:      %d strings, ~%s\n",
				st.Pool.Count, humanize.IBytes(uint64(st.Pool.ApproxBytes)))
			fmt.Printf("duration:  %s\n", st.LastIndexDuration.Round(timeRound))

			for _, root := range cfg.Index.Roots {
				fmt.Printf("fstype:    %s = %s\n", root, scan.FSTypeOf(root))
			}

			if len(st.Index.Extensions) > 0 {
				fmt.Println("extensions:")
				shown := 0
				for ext, n := range st.Index.Extensions {
					fmt.Printf("  %-8s %d\n", ext, n)
					if shown++; shown >= 15 {
						break
					}
				}
			}
			return nil
		},
	}
}
