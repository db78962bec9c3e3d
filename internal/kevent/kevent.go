// Package kevent is the kernel trace transport collaborator consumed by
// the ingester (C4): enabling/disabling the tracepoints this tool cares
// about, sizing the trace ring buffer, turning tracing on and off, and
// iterating decoded records. The real implementation reads ftrace's
// trace_pipe text stream; Fake feeds the ingester in tests without a
// kernel underneath it.
package kevent

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by NewTracer/NewInstance on platforms with no
// ftrace/tracefs equivalent.
var ErrUnsupported = errors.New("kevent: not supported on this platform")

// EventName identifies one ftrace tracepoint as "<group>/<name>", matching
// the directory layout under /sys/kernel/tracing/events.
type EventName string

// The tracepoints this tool enables. fs events mark a file as a boot-time
// candidate; filemap events mark which of its pages were actually pulled
// into the page cache.
const (
	EventDoSysOpen       EventName = "fs/do_sys_open"
	EventOpenExec        EventName = "fs/open_exec"
	EventUselib          EventName = "fs/uselib"
	EventFilemapFault    EventName = "filemap/mm_filemap_fault"
	EventFilemapGetPages EventName = "filemap/mm_filemap_get_pages"
	EventFilemapMapPages EventName = "filemap/mm_filemap_map_pages"
)

// AllEvents is every tracepoint the ingester needs enabled for the
// duration of a trace session.
var AllEvents = []EventName{
	EventDoSysOpen, EventOpenExec, EventUselib,
	EventFilemapFault, EventFilemapGetPages, EventFilemapMapPages,
}

// Tracer is the kernel trace transport. Implementations need not be safe
// for concurrent use; the ingester owns one Tracer for the life of a
// trace session.
type Tracer interface {
	EventEnable(name EventName) error
	EventDisable(name EventName) error
	IsEnabled(name EventName) (bool, error)

	// BufferSizeGet and BufferSizeSet report and set the per-CPU trace
	// ring buffer size, in KiB.
	BufferSizeGet() (kib int, err error)
	BufferSizeSet(kib int) error

	TraceOn() error
	TraceOff() error
	IsOn() (bool, error)

	// IterateEvents calls fn once per decoded record until ctx is
	// cancelled or fn returns a non-nil error. A record this tracer
	// cannot classify is silently dropped, not reported as an error.
	IterateEvents(ctx context.Context, fn func(Record) error) error

	Close() error
}
