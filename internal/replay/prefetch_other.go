//go:build !linux

package replay

import (
	"context"
	"fmt"
	"io"
	"os"
)

// otherPrefetcher warms the cache by reading the block with no kernel
// hint: mmap/fadvise-style readahead control is Linux-specific, so
// non-Linux replay is a plain read and relies on the platform's own
// readahead heuristics.
type otherPrefetcher struct{}

// NewPrefetcher returns the fallback Prefetcher.
func NewPrefetcher() Prefetcher { return otherPrefetcher{} }

func (otherPrefetcher) Prefetch(ctx context.Context, path string, offset, length int64) (int64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from a previously recorded pack entry
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	n, err := io.CopyN(io.Discard, io.NewSectionReader(f, offset, length), length)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}
