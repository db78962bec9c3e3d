package tracepipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick/pageprime/internal/pack"
)

func TestReduceBlocksKeepsSentinel(t *testing.T) {
	f := &pack.File{
		Device: pack.DeviceID{Major: 8, Minor: 1},
		Paths:  []pack.Path{{Ino: 1, PathName: "/a"}},
		Blocks: []pack.Block{{PathIndex: 0, Offset: 0, Length: 0, Physical: pack.UnknownPhysical}},
	}
	table := NewDeviceTable()

	ReduceBlocks(f, table)

	require.Len(t, f.Blocks, 1)
	assert.Equal(t, int64(0), f.Blocks[0].Length)
}

func TestReduceBlocksEmitsSentinelForUntouchedInode(t *testing.T) {
	f := &pack.File{
		Device: pack.DeviceID{Major: 8, Minor: 1},
		Paths:  []pack.Path{{Ino: 1, PathName: "/a"}},
		Blocks: []pack.Block{{PathIndex: 0, Offset: 0, Length: 8192, Physical: 0}},
	}
	table := NewDeviceTable()
	// A different inode is touched, but not this one.
	table.Add(f.Device, 99, 0, 1)

	ReduceBlocks(f, table)

	require.Len(t, f.Blocks, 1)
	b := f.Blocks[0]
	assert.Equal(t, 0, b.PathIndex)
	assert.Equal(t, int64(0), b.Offset)
	assert.Equal(t, int64(0), b.Length)
	assert.Equal(t, int64(0), b.Physical)
}

func TestReduceBlocksEmitsExactlyOneSentinelForMultipleCandidateBlocks(t *testing.T) {
	f := &pack.File{
		Device: pack.DeviceID{Major: 8, Minor: 1},
		Paths:  []pack.Path{{Ino: 1, PathName: "/a"}},
		Blocks: []pack.Block{
			{PathIndex: 0, Offset: 0, Length: 4096, Physical: 0},
			{PathIndex: 0, Offset: 4096, Length: 4096, Physical: 4096},
			{PathIndex: 0, Offset: 8192, Length: 4096, Physical: 8192},
		},
	}
	table := NewDeviceTable() // inode 1 never recorded as touched

	ReduceBlocks(f, table)

	require.Len(t, f.Blocks, 1)
	b := f.Blocks[0]
	assert.Equal(t, 0, b.PathIndex)
	assert.Equal(t, int64(0), b.Offset)
	assert.Equal(t, int64(0), b.Length)
	assert.Equal(t, int64(0), b.Physical)
}

func TestReduceBlocksIntersectsTouchedRange(t *testing.T) {
	f := &pack.File{
		Device: pack.DeviceID{Major: 8, Minor: 1},
		Paths:  []pack.Path{{Ino: 1, PathName: "/a"}},
		// Candidate block covers pages [0,4) i.e. bytes [0, 16384), physical 1000.
		Blocks: []pack.Block{{PathIndex: 0, Offset: 0, Length: 4 * PageSize, Physical: 1000}},
	}
	table := NewDeviceTable()
	// Only page 1 (bytes [4096,8192)) was actually touched.
	table.Add(f.Device, 1, 1, 1)

	ReduceBlocks(f, table)

	require.Len(t, f.Blocks, 1)
	b := f.Blocks[0]
	assert.Equal(t, int64(PageSize), b.Offset)
	assert.Equal(t, int64(PageSize), b.Length)
	assert.Equal(t, int64(1000+PageSize), b.Physical)
}

func TestReduceBlocksMultipleTouchedSubranges(t *testing.T) {
	f := &pack.File{
		Device: pack.DeviceID{Major: 8, Minor: 1},
		Paths:  []pack.Path{{Ino: 1, PathName: "/a"}},
		Blocks: []pack.Block{{PathIndex: 0, Offset: 0, Length: 10 * PageSize, Physical: pack.UnknownPhysical}},
	}
	table := NewDeviceTable()
	table.Add(f.Device, 1, 0, 0) // page 0
	table.Add(f.Device, 1, 5, 6) // pages 5-6

	ReduceBlocks(f, table)

	require.Len(t, f.Blocks, 2)
	assert.Equal(t, int64(0), f.Blocks[0].Offset)
	assert.Equal(t, int64(PageSize), f.Blocks[0].Length)
	assert.Equal(t, int64(5*PageSize), f.Blocks[1].Offset)
	assert.Equal(t, int64(2*PageSize), f.Blocks[1].Length)
}

func TestReduceBlocksEmitsSentinelWhenNoDeviceRecorded(t *testing.T) {
	f := &pack.File{
		Device: pack.DeviceID{Major: 8, Minor: 1},
		Paths:  []pack.Path{{Ino: 1, PathName: "/a"}},
		Blocks: []pack.Block{{PathIndex: 0, Offset: 0, Length: 4096, Physical: 0}},
	}
	table := NewDeviceTable() // no devices at all

	ReduceBlocks(f, table)

	require.Len(t, f.Blocks, 1)
	assert.Equal(t, int64(0), f.Blocks[0].Length)
}
