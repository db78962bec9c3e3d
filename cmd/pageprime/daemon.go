package main

import (
	"fmt"
	"os"
	"syscall"
)

// daemonize re-execs the current process detached from the controlling
// terminal and exits the parent. A bare fork(2) is unsafe once the Go
// runtime has started extra OS threads, so this re-execs immediately
// instead of forking and continuing (a sentinel env var marks the child
// so it skips this on its own pass through main).
func daemonize() error {
	if os.Getenv(daemonChildEnv) == "1" {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	env := append(os.Environ(), daemonChildEnv+"=1")
	pid, err := syscall.ForkExec(exe, os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{devNull.Fd(), devNull.Fd(), devNull.Fd()},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return fmt.Errorf("fork daemon child: %w", err)
	}

	fmt.Fprintf(os.Stderr, "pageprime: daemonised as pid %d\n", pid)
	os.Exit(0)
	return nil
}
