package tracepipe

import (
	"sort"

	"github.com/fenwick/pageprime/internal/pack"
)

// groupHintThreshold is the minimum number of distinct inodes referencing
// one allocation group before that group is worth a dedicated inode-table
// preload hint: below it, the seek to fetch the group's inode table costs
// more than the reads it would save.
const groupHintThreshold = 8

// OrderFile is C6: it sorts a rotational device's blocks by physical
// offset so replay issues disk I/O in roughly ascending LBA order, then
// reorders paths by (group, inode, path) and rewrites every block's
// PathIndex to match — so that a preload of one inode-table group reads a
// contiguous run of paths. Non-rotational files are left in scan order:
// seek order carries no benefit on flash.
func OrderFile(pf *pack.File) {
	if !pf.Rotational {
		return
	}

	sort.SliceStable(pf.Blocks, func(i, j int) bool {
		bi, bj := pf.Blocks[i], pf.Blocks[j]
		if bi.Physical == pack.UnknownPhysical && bj.Physical == pack.UnknownPhysical {
			return false
		}
		if bi.Physical == pack.UnknownPhysical {
			return false
		}
		if bj.Physical == pack.UnknownPhysical {
			return true
		}
		return bi.Physical < bj.Physical
	})

	pf.Groups = groupHints(pf.Paths)
	reorderPaths(pf)
}

// groupHints returns the sorted, deduplicated set of groups referenced by
// at least groupHintThreshold distinct inodes.
func groupHints(paths []pack.Path) []int32 {
	counted := make(map[int32]map[uint64]struct{})
	for _, p := range paths {
		if p.Group == pack.UnknownGroup {
			continue
		}
		inodes := counted[p.Group]
		if inodes == nil {
			inodes = make(map[uint64]struct{})
			counted[p.Group] = inodes
		}
		inodes[p.Ino] = struct{}{}
	}

	var groups []int32
	for g, inodes := range counted {
		if len(inodes) >= groupHintThreshold {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// reorderPaths sorts pf.Paths by (group ascending, inode ascending, path
// lexical) and rewrites every Block.PathIndex to point at the path's new
// position.
func reorderPaths(pf *pack.File) {
	n := len(pf.Paths)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := pf.Paths[order[i]], pf.Paths[order[j]]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Ino != b.Ino {
			return a.Ino < b.Ino
		}
		return a.PathName < b.PathName
	})

	newIndexOf := make([]int, n)
	newPaths := make([]pack.Path, n)
	for newPos, oldPos := range order {
		newIndexOf[oldPos] = newPos
		newPaths[newPos] = pf.Paths[oldPos]
	}
	pf.Paths = newPaths

	for i := range pf.Blocks {
		pf.Blocks[i].PathIndex = newIndexOf[pf.Blocks[i].PathIndex]
	}
}
