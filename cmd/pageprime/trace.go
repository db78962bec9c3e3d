package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/kevent"
	"github.com/fenwick/pageprime/internal/pack"
	"github.com/fenwick/pageprime/internal/tracepipe"
)

var traceCmd = &cobra.Command{
	Use:   "trace [PATH]",
	Short: "Record which files are read and write a pack for them",
	Long: `trace enables the kernel tracepoints that report file opens and page
cache faults, waits for --timeout seconds (or until interrupted), and
writes the resulting pack file.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTrace,
}

func runTrace(cmd *cobra.Command, args []string) error {
	path := targetPath(args)
	prober := fsprobe.NewProber()

	filename, err := resolvePackPath(prober, path)
	if err != nil {
		return newExitError(2, fmt.Errorf("compute pack filename: %w", err))
	}

	if daemonFlag {
		if err := daemonize(); err != nil {
			return newExitError(5, err)
		}
	}

	ctx, stop := signalContext()
	defer stop()

	files, err := doTrace(ctx, path)
	if err != nil {
		return newExitError(5, err)
	}

	if err := writePack(filename, files); err != nil {
		return newExitError(5, err)
	}
	return nil
}

// doTrace runs one trace session against path's mount point, using the
// flags bound by registerTraceFlags.
func doTrace(ctx context.Context, path string) ([]*pack.File, error) {
	tracer, err := newTracer()
	if err != nil {
		return nil, fmt.Errorf("open trace transport: %w", err)
	}
	defer func() {
		if err := tracer.Close(); err != nil {
			slog.Warn("failed to close trace transport", "error", err)
		}
	}()

	prober := fsprobe.NewProber()

	opts := tracepipe.SessionOptions{
		PrefixFilter:      pathPrefixFilterFlag,
		ForceSSD:          forceSSDModeFlag,
		UseExistingEvents: useExistingEventsFlag,
	}
	if pathPrefixFlag != "" {
		dev, err := prober.DeviceOf(pathPrefixFlag)
		if err != nil {
			return nil, fmt.Errorf("resolve --path-prefix %s: %w", pathPrefixFlag, err)
		}
		opts.PathPrefix = &tracepipe.PathPrefixOption{Device: dev, Prefix: pathPrefixFlag}
	}

	session := tracepipe.NewSession(tracer, prober, opts, slog.Default())

	slog.Info("trace started", "path", path)
	if err := session.Run(ctx); err != nil {
		return nil, fmt.Errorf("trace session: %w", err)
	}

	files := session.Files()
	var pathCount, blockCount int
	for _, f := range files {
		pathCount += len(f.Paths)
		blockCount += len(f.Blocks)
	}
	slog.Info("trace complete", "devices", len(files), "paths", pathCount, "blocks", blockCount)
	return files, nil
}

// newTracer opens the kernel trace transport: a private ftrace instance
// by default, or the shared global one when the caller has already
// enabled the needed tracepoints outside this process.
func newTracer() (kevent.Tracer, error) {
	if useExistingEventsFlag {
		return kevent.NewTracer("")
	}
	return kevent.NewInstance()
}
