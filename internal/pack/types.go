// Package pack defines the on-disk pack format produced by the trace
// pipeline and consumed by replay: per-device paths, blocks, and inode
// group hints.
package pack

import "fmt"

// PACK_PATH_MAX is the maximum length, in bytes, of a path string stored
// in a pack file. The scanner rejects any normalised path longer than this.
const PACK_PATH_MAX = 4095 //nolint:revive // ALL_CAPS matches the original tool's constant name

// UnknownPhysical marks a PackBlock whose physical offset is not known,
// either because the device is non-rotational (physical ordering doesn't
// matter) or because the filesystem could not resolve one.
const UnknownPhysical = -1

// UnknownGroup marks a PackPath whose filesystem allocation group has not
// been determined.
const UnknownGroup = -1

// DeviceID is a Linux-style major:minor device identifier.
type DeviceID struct {
	Major uint32
	Minor uint32
}

func (d DeviceID) String() string {
	return fmt.Sprintf("%d:%d", d.Major, d.Minor)
}

// Path is one unique file opened during the trace, identified by inode.
type Path struct {
	Ino       uint64
	Group     int32 // UnknownGroup if not assigned
	PathName  string
}

// Block is one on-disk (or in-device) byte range to prefetch during
// replay. Offset/Length are logical byte offsets into the file named by
// the path at PathIndex; Physical is the on-disk location used to order
// reads on rotational media.
type Block struct {
	PathIndex int
	Offset    int64
	Length    int64
	Physical  int64 // UnknownPhysical on non-rotational media
}

// File is the complete set of paths, blocks, and group hints collected
// for one device during a trace.
type File struct {
	Device     DeviceID
	Rotational bool
	Paths      []Path
	Blocks     []Block
	Groups     []int32 // ascending, rotational only
}

// Validate checks the invariants construction must uphold:
//  1. every block's PathIndex is in range;
//  2. blocks reference a path present in this file.
// It does not check byte-range-within-file-size, which requires external
// stat data the pack itself does not carry.
func (f *File) Validate() error {
	for i, b := range f.Blocks {
		if b.PathIndex < 0 || b.PathIndex >= len(f.Paths) {
			return fmt.Errorf("block %d: path index %d out of range [0,%d)", i, b.PathIndex, len(f.Paths))
		}
		if b.Length < 0 {
			return fmt.Errorf("block %d: negative length %d", i, b.Length)
		}
	}
	return nil
}
