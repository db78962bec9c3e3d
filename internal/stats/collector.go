// Package stats tracks trace and replay progress using lock-free atomic
// counters, the same Collector serving both a trace() scan and a
// prefetch replay run.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks pipeline statistics using lock-free atomic counters.
type Collector struct {
	pathsObserved atomic.Int64
	pathsAccepted atomic.Int64
	pathsRejected atomic.Int64
	pathsScanned  atomic.Int64
	blocksTotal   atomic.Int64
	blocksKept    atomic.Int64

	blocksPrefetched atomic.Int64
	blocksFailed     atomic.Int64
	bytesPrefetched  atomic.Int64
	bytesTotal       atomic.Int64
	blocksTotalWork  atomic.Int64
	startTime        time.Time

	// Ring buffer — written only by the presenter's Tick(), not workers.
	mu           sync.Mutex
	throughput   [ringSize]int64 // bytes delta per second
	blocksPerSec [ringSize]int64 // blocks delta per second
	ringIdx      int
	ringCount    int // how many samples have been written (capped at ringSize)
	lastBytes    int64
	lastBlocks   int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetReplayTotals records the work a replay run is about to do, once the
// pack has been loaded and its kept blocks are known.
func (c *Collector) SetReplayTotals(blocks, bytes int64) {
	c.blocksTotalWork.Store(blocks)
	c.bytesTotal.Store(bytes)
}

func (c *Collector) AddPathsObserved(n int64) { c.pathsObserved.Add(n) }
func (c *Collector) AddPathsAccepted(n int64) { c.pathsAccepted.Add(n) }
func (c *Collector) AddPathsRejected(n int64) { c.pathsRejected.Add(n) }
func (c *Collector) AddPathsScanned(n int64)  { c.pathsScanned.Add(n) }
func (c *Collector) AddBlocksTotal(n int64)   { c.blocksTotal.Add(n) }
func (c *Collector) AddBlocksKept(n int64)    { c.blocksKept.Add(n) }

func (c *Collector) AddBlocksPrefetched(n int64) { c.blocksPrefetched.Add(n) }
func (c *Collector) AddBlocksFailed(n int64)     { c.blocksFailed.Add(n) }
func (c *Collector) AddBytesPrefetched(n int64)  { c.bytesPrefetched.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	PathsObserved    int64
	PathsAccepted    int64
	PathsRejected    int64
	PathsScanned     int64
	BlocksTotal      int64
	BlocksKept       int64
	BlocksPrefetched int64
	BlocksFailed     int64
	BytesPrefetched  int64
	BytesTotal       int64
	BlocksTotalWork  int64
	Elapsed          time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		PathsObserved:    c.pathsObserved.Load(),
		PathsAccepted:    c.pathsAccepted.Load(),
		PathsRejected:    c.pathsRejected.Load(),
		PathsScanned:     c.pathsScanned.Load(),
		BlocksTotal:      c.blocksTotal.Load(),
		BlocksKept:       c.blocksKept.Load(),
		BlocksPrefetched: c.blocksPrefetched.Load(),
		BlocksFailed:     c.blocksFailed.Load(),
		BytesPrefetched:  c.bytesPrefetched.Load(),
		BytesTotal:       c.bytesTotal.Load(),
		BlocksTotalWork:  c.blocksTotalWork.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Tick snapshots byte/block deltas into the ring buffer. Called ~1/sec by
// a presenter during replay.
func (c *Collector) Tick() {
	currentBytes := c.bytesPrefetched.Load()
	currentBlocks := c.blocksPrefetched.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	bytesDelta := currentBytes - c.lastBytes
	blocksDelta := currentBlocks - c.lastBlocks
	c.lastBytes = currentBytes
	c.lastBlocks = currentBlocks

	c.throughput[c.ringIdx] = bytesDelta
	c.blocksPerSec[c.ringIdx] = blocksDelta
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingBlocksPerSec returns average blocks/sec over the last n seconds.
func (c *Collector) RollingBlocksPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.blocksPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := n
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n bytes/sec samples for rendering.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := n
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return nil
	}

	data := make([]float64, count)
	for i := range count {
		// oldest first
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.throughput[idx])
	}
	return data
}

// ETA estimates remaining replay time based on rolling speed and
// remaining bytes.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesPrefetched.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"observed=%d accepted=%d rejected=%d scanned=%d blocks=%d/%d prefetched=%d failed=%d bytes=%d",
		s.PathsObserved, s.PathsAccepted, s.PathsRejected, s.PathsScanned,
		s.BlocksKept, s.BlocksTotal, s.BlocksPrefetched, s.BlocksFailed, s.BytesPrefetched,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
