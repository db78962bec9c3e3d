package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/pack"
)

// Flags shared across the root command's auto-detect mode and the
// explicit trace/dump/replay subcommands. Declared package-level, in the
// teacher's style, and bound once via registerXFlags.
var (
	packFileFlag string
	sortFlag     string

	pathPrefixFlag        string
	pathPrefixFilterFlag  string
	timeoutSeconds        int
	daemonFlag            bool
	useExistingEventsFlag bool
	forceSSDModeFlag      bool
	forceTraceFlag        bool
	dumpFlag              bool
	workersFlag           int
)

// registerPackFlags binds the flags every mode needs to find and render
// a pack: where it lives on disk and how to order it for display.
func registerPackFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&packFileFlag, "pack-file", "", "pack file to read or write (default: per-device path under /var/lib/pageprime)")
	cmd.PersistentFlags().StringVar(&sortFlag, "sort", "open", "order of paths in dump output: open, path, disk, or size (replay reads blocks in stored order)")
}

// registerTraceFlags binds the flags that only matter while tracing.
func registerTraceFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&daemonFlag, "daemon", false, "detach and run in the background")
	cmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0, "stop tracing after this many seconds (0 = until interrupted)")
	cmd.PersistentFlags().StringVar(&pathPrefixFlag, "path-prefix", "", "directory whose device paths should be resolved against, for tracing a mounted alternate root")
	cmd.PersistentFlags().StringVar(&pathPrefixFilterFlag, "path-prefix-filter", "", "restrict tracing to paths under PREFIX")
	cmd.PersistentFlags().BoolVar(&useExistingEventsFlag, "use-existing-trace-events", false, "assume tracepoints are already enabled")
	cmd.PersistentFlags().BoolVar(&forceSSDModeFlag, "force-ssd-mode", false, "treat every device as non-rotational")
}

// registerReplayFlags binds the flags that only matter while replaying.
func registerReplayFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVar(&workersFlag, "workers", 4, "number of concurrent prefetch workers")
}

// resolvePackPath returns the pack file to operate on: the explicit
// --pack-file override if given, otherwise the deterministic per-device
// path computed from path's underlying device.
func resolvePackPath(prober fsprobe.Prober, path string) (string, error) {
	if packFileFlag != "" {
		return packFileFlag, nil
	}
	dev, err := prober.DeviceOf(path)
	if err != nil {
		return "", fmt.Errorf("resolve device for %s: %w", path, err)
	}
	return pack.DefaultPath(dev), nil
}

// targetPath returns the positional path argument, defaulting to the
// root filesystem when none was given.
func targetPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "/"
}
