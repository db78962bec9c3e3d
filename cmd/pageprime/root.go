package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/pack"
)

// runRoot reproduces the original tool's single-binary control flow:
// compute the pack filename, and if a pack already exists (and a retrace
// wasn't forced), dump or replay it; otherwise fall through to tracing.
// The trace/dump/replay subcommands below run exactly one of these
// phases unconditionally, for scripted use.
func runRoot(_ *cobra.Command, args []string) error {
	path := targetPath(args)
	prober := fsprobe.NewProber()

	filename, err := resolvePackPath(prober, path)
	if err != nil {
		return newExitError(2, fmt.Errorf("compute pack filename: %w", err))
	}

	explicitPath := len(args) > 0

	if !forceTraceFlag {
		files, readErr := readPack(filename)
		if readErr == nil {
			if err := sortFiles(files, sortFlag); err != nil {
				return newExitError(1, err)
			}
			if dumpFlag {
				if err := pack.Dump(os.Stdout, files); err != nil {
					return newExitError(3, err)
				}
				return nil
			}
			replayCtx, replayStop := signalContext()
			defer replayStop()
			if err := doReplay(replayCtx, files); err != nil {
				return newExitError(3, err)
			}
			return nil
		}

		if explicitPath || dumpFlag {
			return newExitError(4, fmt.Errorf("read pack %s: %w", filename, readErr))
		}
		slog.Debug("no existing pack, tracing instead", "path", path, "reason", readErr)
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

func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, secondsToDuration(timeoutSeconds))
		return ctx, func() { cancel(); stop() }
	}
	return ctx, stop
}

func readPack(filename string) ([]*pack.File, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // G304: filename is operator-controlled, either --pack-file or a deterministic device path
	if err != nil {
		return nil, err
	}
	files, err := pack.Decode(data)
	if err != nil {
		return nil, err
	}
	return files, nil
}

func writePack(filename string, files []*pack.File) error {
	encoded, err := pack.Encode(files)
	if err != nil {
		return fmt.Errorf("encode pack: %w", err)
	}
	if err := os.MkdirAll(dirOf(filename), 0755); err != nil { //nolint:gosec // G301: state dir, not secret material
		return fmt.Errorf("create pack directory: %w", err)
	}
	if err := os.WriteFile(filename, encoded, 0644); err != nil { //nolint:gosec // G306: pack is read by prefetch workers running as any user at boot
		return fmt.Errorf("write pack %s: %w", filename, err)
	}
	return nil
}
