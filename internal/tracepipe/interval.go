package tracepipe

import (
	"log/slog"
	"math"
	"sort"

	"github.com/fenwick/pageprime/internal/pack"
)

// InodeIndex holds the minimal set of non-touching page ranges whose
// union equals every range ever added for one inode.
type InodeIndex struct {
	InodeID     uint64
	Ranges      []PageRange // sorted by Start, pairwise non-touching
	DisplayName string
}

// add merges r into the index in place. Binary search locates a touching
// range, then a short outward walk finds the full span to merge — the add
// stream clusters (sequential readahead), so the expected span is <=2.
func (idx *InodeIndex) add(r PageRange) {
	n := len(idx.Ranges)
	if n == 0 {
		idx.Ranges = append(idx.Ranges, r)
		return
	}

	// First range whose End >= r.Start: the first candidate that could
	// touch or overlap r, since End is strictly increasing across the
	// sorted, non-touching array.
	i := sort.Search(n, func(i int) bool { return idx.Ranges[i].End >= r.Start })

	if i == n || idx.Ranges[i].Start > r.End {
		// No existing range touches r; insert at position i.
		idx.Ranges = append(idx.Ranges, PageRange{})
		copy(idx.Ranges[i+1:], idx.Ranges[i:])
		idx.Ranges[i] = r
		return
	}

	lo, hi := i, i
	for lo > 0 && touches(idx.Ranges[lo-1], r) {
		lo--
	}
	for hi+1 < n && touches(idx.Ranges[hi+1], r) {
		hi++
	}

	merged := r
	for j := lo; j <= hi; j++ {
		merged = union(merged, idx.Ranges[j])
	}

	idx.Ranges = append(idx.Ranges[:lo], append([]PageRange{merged}, idx.Ranges[hi+1:]...)...)
}

// DeviceIndex owns every InodeIndex touched on one device.
type DeviceIndex struct {
	Device pack.DeviceID
	inodes map[uint64]*InodeIndex
}

func newDeviceIndex(dev pack.DeviceID) *DeviceIndex {
	return &DeviceIndex{Device: dev, inodes: make(map[uint64]*InodeIndex)}
}

// Find returns the InodeIndex for ino, if one has been recorded.
func (d *DeviceIndex) Find(ino uint64) (*InodeIndex, bool) {
	idx, ok := d.inodes[ino]
	return idx, ok
}

// DeviceTable maps device id to DeviceIndex. It is exclusively owned by the
// ingester for the duration of one trace; the reducer only reads it.
type DeviceTable struct {
	devices map[pack.DeviceID]*DeviceIndex
}

// NewDeviceTable returns an empty table.
func NewDeviceTable() *DeviceTable {
	return &DeviceTable{devices: make(map[pack.DeviceID]*DeviceIndex)}
}

// Find looks up the DeviceIndex for dev.
func (t *DeviceTable) Find(dev pack.DeviceID) (*DeviceIndex, bool) {
	idx, ok := t.devices[dev]
	return idx, ok
}

// Add records that pages [firstPage, lastPageInclusive] of (dev, ino) were
// touched. The inclusive last-page is converted to the half-open form
// internally. Numeric overflow on that conversion is rejected with a
// logged warning and no mutation, per the fatal-invariant boundary for
// "impossible" overflow described in the component design.
func (t *DeviceTable) Add(dev pack.DeviceID, ino uint64, firstPage, lastPageInclusive int64) {
	if lastPageInclusive == math.MaxInt64 {
		slog.Warn("rejecting page range: last page overflows address space",
			"device", dev, "inode", ino, "first_page", firstPage)
		return
	}
	r := PageRange{Start: firstPage, End: lastPageInclusive + 1}
	if r.Start >= r.End {
		slog.Warn("rejecting degenerate page range", "device", dev, "inode", ino,
			"start", r.Start, "end", r.End)
		return
	}

	di, ok := t.devices[dev]
	if !ok {
		di = newDeviceIndex(dev)
		t.devices[dev] = di
	}

	ii, ok := di.inodes[ino]
	if !ok {
		ii = &InodeIndex{InodeID: ino}
		di.inodes[ino] = ii
	}
	ii.add(r)
}
