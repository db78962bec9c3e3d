// Command pageprime traces which files the boot sequence reads, and
// replays that trace on a later boot to pull the same pages back into
// the page cache before anything asks for them.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

const daemonChildEnv = "PAGEPRIME_DAEMON_CHILD"

func main() {
	os.Exit(run())
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: root RunE reproduces the original tool's single-binary auto-detect flow
func run() int {
	var (
		verbose bool
		quiet   bool
	)

	rootCmd := &cobra.Command{
		Use:   "pageprime [flags] [PATH]",
		Short: "Prewarm the page cache from a recorded boot trace",
		Long: `pageprime reads PATH's boot-time access pattern from a pack file and
issues prefetch I/O to pull the same pages into the page cache before
anything asks for them.

If no pack exists yet for the root filesystem's device (or
--force-trace is given), pageprime traces the running boot instead, so
the next boot has something to replay. When PATH is given explicitly,
or --dump is set, and the pack cannot be read, pageprime exits with
status 4 instead of tracing. PATH defaults to the root filesystem.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configureLogging(verbose, quiet)
		},
		RunE: runRoot,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all but warnings and errors")
	registerPackFlags(rootCmd)
	registerTraceFlags(rootCmd)
	registerReplayFlags(rootCmd)
	rootCmd.PersistentFlags().BoolVar(&dumpFlag, "dump", false, "print the existing pack instead of replaying it")
	rootCmd.PersistentFlags().BoolVar(&forceTraceFlag, "force-trace", false, "retrace even if a pack already exists")

	rootCmd.AddCommand(traceCmd, dumpCmd, replayCmd, docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok { //nolint:errorlint // cobra RunE returns exitError directly, never wrapped
			slog.Error("pageprime failed", "error", exitErr)
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func configureLogging(verbose, quiet bool) {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// exitError carries a specific process exit code out of a cobra RunE,
// mirroring the original tool's distinct exit codes for each failure class.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

func newExitError(code int, err error) *exitError { return &exitError{code: code, err: err} }
