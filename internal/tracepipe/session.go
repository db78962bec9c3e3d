package tracepipe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/kevent"
	"github.com/fenwick/pageprime/internal/pack"
)

// SessionOptions configures one trace session. All fields are optional;
// the zero value traces every device with default rejection rules.
type SessionOptions struct {
	// PrefixFilter, if non-empty, restricts tracing to paths under it.
	PrefixFilter string
	// PathPrefix, if non-nil, enables the alternate-mount-root rewrite.
	PathPrefix *PathPrefixOption
	// ForceSSD treats every device as non-rotational, skipping FIEMAP
	// lookups and physical-offset ordering entirely.
	ForceSSD bool
	// BufferSizeKiB, if non-zero, overrides the per-CPU trace buffer
	// size for the duration of the session.
	BufferSizeKiB int
	// UseExistingEvents skips the EventEnable/EventDisable lifecycle,
	// assuming the caller (or a previous session) already has the
	// required tracepoints enabled. Tracing is still turned on and off.
	UseExistingEvents bool
}

// Session owns every piece of state scoped to one trace() call: the
// device table, the per-session filter and scanner, and the assembler
// accumulating pack.File records. None of this is global — a second,
// concurrent Session is fully independent.
type Session struct {
	tracer  kevent.Tracer
	prober  fsprobe.Prober
	opts    SessionOptions
	log     *slog.Logger
	table   *DeviceTable
	filter  *Filter
	asm     *Assembler
	scanner *Scanner
	ingest  *Ingester

	prevBufferKiB int
}

// NewSession prepares a trace session against tracer and prober. Call Run
// to enable tracepoints and stream records until ctx is done.
func NewSession(tracer kevent.Tracer, prober fsprobe.Prober, opts SessionOptions, log *slog.Logger) *Session {
	table := NewDeviceTable()
	filter := &Filter{PrefixFilter: opts.PrefixFilter, PathPrefix: opts.PathPrefix, seen: make(map[string]struct{})}
	if opts.PathPrefix != nil {
		filter.Exists = prober.PathExistsOnDevice
	}
	asm := NewAssembler()
	scanner := NewScanner(prober, asm, opts.ForceSSD, log)

	return &Session{
		tracer:  tracer,
		prober:  prober,
		opts:    opts,
		log:     log,
		table:   table,
		filter:  filter,
		asm:     asm,
		scanner: scanner,
		ingest:  NewIngester(filter, scanner, table, log),
	}
}

// Run enables this session's tracepoints, turns tracing on, and streams
// records until ctx is cancelled (by a timeout or an interrupt signal).
// It always leaves tracing off and, unless UseExistingEvents is set, the
// tracepoints disabled again before returning, even on error.
func (s *Session) Run(ctx context.Context) error {
	if s.opts.BufferSizeKiB != 0 {
		prev, err := s.tracer.BufferSizeGet()
		if err != nil {
			return fmt.Errorf("read trace buffer size: %w", err)
		}
		s.prevBufferKiB = prev
		if err := s.tracer.BufferSizeSet(s.opts.BufferSizeKiB); err != nil {
			return fmt.Errorf("set trace buffer size: %w", err)
		}
	}

	if !s.opts.UseExistingEvents {
		for _, name := range kevent.AllEvents {
			if err := s.tracer.EventEnable(name); err != nil {
				s.teardown()
				return fmt.Errorf("enable %s: %w", name, err)
			}
		}
	}
	if err := s.tracer.TraceOn(); err != nil {
		s.teardown()
		return fmt.Errorf("enable tracing: %w", err)
	}

	err := s.tracer.IterateEvents(ctx, func(rec kevent.Record) error {
		s.ingest.Dispatch(rec)
		return nil
	})
	s.teardown()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream trace records: %w", err)
	}
	return nil
}

func (s *Session) teardown() {
	if err := s.tracer.TraceOff(); err != nil {
		s.log.Warn("failed to disable tracing", "error", err)
	}
	if !s.opts.UseExistingEvents {
		for _, name := range kevent.AllEvents {
			if err := s.tracer.EventDisable(name); err != nil {
				s.log.Warn("failed to disable tracepoint", "event", name, "error", err)
			}
		}
	}
	if s.prevBufferKiB != 0 {
		if err := s.tracer.BufferSizeSet(s.prevBufferKiB); err != nil {
			s.log.Warn("failed to restore trace buffer size", "error", err)
		}
	}
}

// Files returns this session's reduced and ordered pack.File records. It
// must only be called after Run returns.
func (s *Session) Files() []*pack.File {
	return Finish(s.asm, s.table)
}
