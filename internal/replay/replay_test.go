package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenwick/pageprime/internal/pack"
)

func TestPlanSkipsSentinelBlocks(t *testing.T) {
	files := []*pack.File{
		{
			Device: pack.DeviceID{Major: 8, Minor: 1},
			Paths: []pack.Path{
				{Ino: 1, Group: pack.UnknownGroup, PathName: "/usr/bin/bash"},
				{Ino: 2, Group: pack.UnknownGroup, PathName: "/usr/bin/empty"},
			},
			Blocks: []pack.Block{
				{PathIndex: 0, Offset: 0, Length: 4096, Physical: 1000},
				{PathIndex: 1, Offset: 0, Length: 0, Physical: pack.UnknownPhysical},
			},
		},
	}

	tasks := Plan(files)
	assert.Len(t, tasks, 1)
	assert.Equal(t, "/usr/bin/bash", tasks[0].Path)
	assert.Equal(t, int64(4096), tasks[0].Length)
}

func TestTotalBytes(t *testing.T) {
	tasks := []Task{{Length: 100}, {Length: 250}, {Length: 0}}
	assert.Equal(t, int64(350), TotalBytes(tasks))
}
