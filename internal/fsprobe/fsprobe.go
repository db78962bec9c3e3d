// Package fsprobe is the filesystem collaborator consumed by the file
// scanner (C3) and ordering pass (C6): per-file stat/residency/extent
// queries, and per-device rotational and inode-group lookups.
package fsprobe

import (
	"errors"

	"github.com/fenwick/pageprime/internal/pack"
)

// ErrUnsupported is returned by probes that have no implementation on the
// current platform. Callers treat it as a recoverable-per-file error.
var ErrUnsupported = errors.New("fsprobe: not supported on this platform")

// Stat is the authoritative identity of an open file.
type Stat struct {
	Device pack.DeviceID
	Ino    uint64
	Size   int64
}

// Extent is a contiguous logical-to-physical mapping as reported by the
// filesystem (FIEMAP on Linux). Unknown mirrors FIEMAP_EXTENT_UNKNOWN.
type Extent struct {
	LogicalStart  int64
	LogicalLength int64
	PhysicalStart int64
	Unknown       bool
}

// File is an open regular file ready for residency and extent queries.
type File interface {
	// Stat returns the authoritative device/inode/size of the open fd,
	// which may differ from an earlier lstat if the file changed underneath.
	Stat() (Stat, error)
	// Residency returns one bool per page of the file (true = resident in
	// the page cache at the time of the call).
	Residency() ([]bool, error)
	// Extents returns the on-disk extents covering [offset, offset+length).
	Extents(offset, length int64) ([]Extent, error)
	Close() error
}

// Prober is the full set of filesystem queries the pipeline needs.
type Prober interface {
	// LstatRegular reports whether path is a regular file without
	// following a trailing symlink, returning (false, nil) for anything
	// else (symlink, fifo, socket, directory) and (false, err) on a
	// stat failure.
	LstatRegular(path string) (bool, error)
	// DeviceOf stats path and returns the device it resolves to, used to
	// compute the deterministic per-device pack path for a mount point.
	DeviceOf(path string) (pack.DeviceID, error)
	// OpenNoAtime opens path read-only without updating atime.
	OpenNoAtime(path string) (File, error)
	// PathExistsOnDevice reports whether path exists and resolves to dev.
	// Used by the path-prefix rewrite.
	PathExistsOnDevice(path string, dev pack.DeviceID) bool
	// Rotational reports whether dev is rotational storage. On query
	// failure it returns true (the safer default for ordering) and a
	// non-nil error for logging.
	Rotational(dev pack.DeviceID) (bool, error)
	// GroupOf returns the filesystem allocation group containing ino on
	// dev. ok is false when group topology is unavailable for dev.
	GroupOf(dev pack.DeviceID, ino uint64) (group int32, ok bool)
}
