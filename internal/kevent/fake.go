package kevent

import (
	"context"
	"fmt"
)

// Fake is an in-memory Tracer for tests: Push queues records, IterateEvents
// drains them in order.
type Fake struct {
	enabled   map[EventName]bool
	bufferKiB int
	on        bool
	records   []Record
	closed    bool
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{enabled: make(map[EventName]bool), bufferKiB: 1408}
}

// Push appends a record IterateEvents will later deliver.
func (f *Fake) Push(r Record) { f.records = append(f.records, r) }

func (f *Fake) EventEnable(name EventName) error  { f.enabled[name] = true; return nil }
func (f *Fake) EventDisable(name EventName) error { f.enabled[name] = false; return nil }
func (f *Fake) IsEnabled(name EventName) (bool, error) {
	return f.enabled[name], nil
}

func (f *Fake) BufferSizeGet() (int, error) { return f.bufferKiB, nil }
func (f *Fake) BufferSizeSet(kib int) error { f.bufferKiB = kib; return nil }

func (f *Fake) TraceOn() error      { f.on = true; return nil }
func (f *Fake) TraceOff() error     { f.on = false; return nil }
func (f *Fake) IsOn() (bool, error) { return f.on, nil }

// IterateEvents delivers every pushed record in order, honoring ctx
// cancellation between records. It returns an error if called after
// Close, matching a real Tracer whose pipe has gone away.
func (f *Fake) IterateEvents(ctx context.Context, fn func(Record) error) error {
	if f.closed {
		return fmt.Errorf("kevent: fake tracer closed")
	}
	for _, r := range f.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) Close() error { f.closed = true; return nil }
