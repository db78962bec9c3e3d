package kevent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenwick/pageprime/internal/pack"
)

func TestDecodeDevice(t *testing.T) {
	// major=8, minor=1 packed as (major<<20 | minor), the filemap
	// tracepoint's dev_t encoding, distinct from unix.Mkdev.
	raw := uint64(8)<<20 | uint64(1)
	assert.Equal(t, pack.DeviceID{Major: 8, Minor: 1}, decodeDevice(raw))
}

func TestDecodeDeviceMasksMinorToByte(t *testing.T) {
	raw := uint64(1)<<20 | uint64(0x1ff) // minor overflows a byte
	got := decodeDevice(raw)
	assert.Equal(t, uint32(0x1ff&0xff), got.Minor)
}
