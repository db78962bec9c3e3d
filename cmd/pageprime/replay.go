package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/pack"
	"github.com/fenwick/pageprime/internal/replay"
	"github.com/fenwick/pageprime/internal/stats"
)

var replayCmd = &cobra.Command{
	Use:   "replay [PATH]",
	Short: "Prefetch the blocks recorded in an existing pack",
	Args:  cobra.MaximumNArgs(1),

	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runReplayCmd,
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	path := targetPath(args)
	prober := fsprobe.NewProber()

	filename, err := resolvePackPath(prober, path)
	if err != nil {
		return newExitError(2, fmt.Errorf("compute pack filename: %w", err))
	}

	files, err := readPack(filename)
	if err != nil {
		return newExitError(4, fmt.Errorf("read pack %s: %w", filename, err))
	}

	if err := sortFiles(files, sortFlag); err != nil {
		return newExitError(1, err)
	}

	ctx, stop := signalContext()
	defer stop()

	if err := doReplay(ctx, files); err != nil {
		return newExitError(3, err)
	}
	return nil
}

// doReplay flattens files into prefetch tasks and runs them through a
// worker pool sized by --workers, logging a summary when it's done.
func doReplay(ctx context.Context, files []*pack.File) error {
	tasks := replay.Plan(files)
	if len(tasks) == 0 {
		slog.Info("replay: nothing to prefetch")
		return nil
	}

	collector := stats.NewCollector()
	collector.SetReplayTotals(int64(len(tasks)), replay.TotalBytes(tasks))

	numWorkers := workersFlag
	if numWorkers < 1 {
		numWorkers = 1
	}

	pool := replay.NewWorkerPool(replay.Config{NumWorkers: numWorkers, Stats: collector})

	taskCh := make(chan replay.Task, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	errCh := make(chan error, len(tasks))
	pool.Run(ctx, taskCh, errCh)

	snap := collector.Snapshot()
	slog.Info("replay complete",
		"blocks_prefetched", snap.BlocksPrefetched,
		"blocks_failed", snap.BlocksFailed,
		"bytes_prefetched", snap.BytesPrefetched,
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("replay: %w (and possibly more)", err)
	default:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
