//go:build !linux

package kevent

// NewTracer always fails: ftrace/tracefs is a Linux-only facility.
func NewTracer(_ string) (Tracer, error) { return nil, ErrUnsupported }

// NewInstance always fails, for the same reason as NewTracer.
func NewInstance() (Tracer, error) { return nil, ErrUnsupported }
