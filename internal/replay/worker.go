package replay

import (
	"context"
	"sync"
	"time"

	"github.com/fenwick/pageprime/internal/event"
	"github.com/fenwick/pageprime/internal/stats"
)

// Config controls worker pool behavior.
type Config struct {
	NumWorkers int
	Stats      *stats.Collector
	Events     chan<- event.Event // optional; Run drops events if nil rather than blocking
}

// WorkerPool runs prefetch tasks concurrently.
type WorkerPool struct {
	cfg        Config
	prefetcher Prefetcher
}

// NewWorkerPool creates a pool backed by the platform Prefetcher.
func NewWorkerPool(cfg Config) *WorkerPool {
	return &WorkerPool{cfg: cfg, prefetcher: NewPrefetcher()}
}

// NewWorkerPoolWithPrefetcher creates a pool backed by an explicit
// Prefetcher, for tests that substitute a fake.
func NewWorkerPoolWithPrefetcher(cfg Config, p Prefetcher) *WorkerPool {
	return &WorkerPool{cfg: cfg, prefetcher: p}
}

// Run starts workers that consume tasks until tasks is closed or ctx is
// cancelled. It blocks until every worker has exited.
func (wp *WorkerPool) Run(ctx context.Context, tasks <-chan Task, errs chan<- error) {
	var wg sync.WaitGroup
	for id := range wp.cfg.NumWorkers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range tasks {
				select {
				case <-ctx.Done():
					return
				default:
				}
				wp.processTask(ctx, workerID, task, errs)
			}
		}(id)
	}
	wg.Wait()
}

func (wp *WorkerPool) processTask(ctx context.Context, workerID int, task Task, errs chan<- error) {
	n, err := wp.prefetcher.Prefetch(ctx, task.Path, task.Offset, task.Length)
	if err != nil {
		wp.cfg.Stats.AddBlocksFailed(1)
		wp.emit(event.Event{Type: event.BlockFailed, Timestamp: now(), Path: task.Path, Size: task.Length, Error: err, WorkerID: workerID})
		select {
		case errs <- err:
		default:
		}
		return
	}

	wp.cfg.Stats.AddBlocksPrefetched(1)
	wp.cfg.Stats.AddBytesPrefetched(n)
	wp.emit(event.Event{Type: event.BlockPrefetched, Timestamp: now(), Path: task.Path, Size: n, WorkerID: workerID})
}

func (wp *WorkerPool) emit(e event.Event) {
	if wp.cfg.Events == nil {
		return
	}
	select {
	case wp.cfg.Events <- e:
	default:
	}
}

func now() time.Time { return time.Now() }
