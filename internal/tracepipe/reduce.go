package tracepipe

import "github.com/fenwick/pageprime/internal/pack"

// ReduceBlocks is C5: it keeps only the portions of each candidate block
// that the filemap trace actually recorded as touched, dropping the rest.
// Sentinel zero-length blocks (open(2) observed, no fault ever recorded)
// pass through unchanged — they carry no bytes to prefetch but the path
// still belongs in the pack so a future run can tell it was already
// considered.
//
// A path whose inode isn't present in the interval index at all (opened
// but never faulted, or read through a path this tracer doesn't observe)
// gets exactly one zero-length sentinel block in its place, carrying the
// path but no bytes to prefetch; the rest of its candidate blocks are
// skipped.
func ReduceBlocks(pf *pack.File, table *DeviceTable) {
	devIdx, haveDevice := table.Find(pf.Device)

	untouched := make(map[int]bool)

	reduced := make([]pack.Block, 0, len(pf.Blocks))
	for _, b := range pf.Blocks {
		if b.Length == 0 {
			reduced = append(reduced, b)
			continue
		}

		ino := pf.Paths[b.PathIndex].Ino
		var inodeIdx *InodeIndex
		if haveDevice {
			inodeIdx, _ = devIdx.Find(ino)
		}
		if inodeIdx == nil {
			if !untouched[b.PathIndex] {
				untouched[b.PathIndex] = true
				reduced = append(reduced, pack.Block{PathIndex: b.PathIndex})
			}
			continue
		}

		reduced = append(reduced, intersectBlock(b, inodeIdx.Ranges)...)
	}
	pf.Blocks = reduced
}

// intersectBlock returns the sub-blocks of b that fall within ranges
// (given in pages), each carrying a physical offset adjusted by the same
// byte delta as its logical offset when b.Physical is known.
func intersectBlock(b pack.Block, ranges []PageRange) []pack.Block {
	blockStart := b.Offset
	blockEnd := b.Offset + b.Length

	var out []pack.Block
	for _, r := range ranges {
		rangeStart := r.Start * PageSize
		rangeEnd := r.End * PageSize

		lo := max64(blockStart, rangeStart)
		hi := min64(blockEnd, rangeEnd)
		if lo >= hi {
			continue
		}

		physical := int64(pack.UnknownPhysical)
		if b.Physical != pack.UnknownPhysical {
			physical = b.Physical + (lo - blockStart)
		}
		out = append(out, pack.Block{
			PathIndex: b.PathIndex,
			Offset:    lo,
			Length:    hi - lo,
			Physical:  physical,
		})
	}
	return out
}
