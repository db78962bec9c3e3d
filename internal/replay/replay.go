// Package replay is the prefetch executor: given a decoded pack, it reads
// each kept block back into the page cache in the order the trace
// pipeline settled on, using a worker pool sized the way the original
// engine's copy workers were.
package replay

import (
	"context"

	"github.com/fenwick/pageprime/internal/pack"
)

// Task is one block to prefetch, with the path it belongs to already
// resolved from the pack's path table.
type Task struct {
	Path     string
	Offset   int64
	Length   int64
	DeviceID pack.DeviceID
}

// Prefetcher performs the actual read that warms the page cache for one
// block. Implementations are platform-specific: Linux additionally hints
// the kernel with fadvise(WILLNEED) before reading.
type Prefetcher interface {
	Prefetch(ctx context.Context, path string, offset, length int64) (bytesRead int64, err error)
}

// Plan flattens a decoded pack's files into prefetch tasks, skipping the
// zero-length sentinel blocks C3 and C5 emit for empty and
// opened-but-never-read paths.
func Plan(files []*pack.File) []Task {
	var tasks []Task
	for _, f := range files {
		for _, b := range f.Blocks {
			if b.Length == 0 {
				continue
			}
			tasks = append(tasks, Task{
				Path:     f.Paths[b.PathIndex].PathName,
				Offset:   b.Offset,
				Length:   b.Length,
				DeviceID: f.Device,
			})
		}
	}
	return tasks
}

// TotalBytes sums the length of every task, for progress reporting.
func TotalBytes(tasks []Task) int64 {
	var total int64
	for _, t := range tasks {
		total += t.Length
	}
	return total
}
