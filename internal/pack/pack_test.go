package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFiles() []*File {
	return []*File{
		{
			Device:     DeviceID{Major: 8, Minor: 1},
			Rotational: true,
			Paths: []Path{
				{Ino: 100, Group: 3, PathName: "/usr/bin/bash"},
				{Ino: 101, Group: UnknownGroup, PathName: "/etc/ld.so.cache"},
			},
			Blocks: []Block{
				{PathIndex: 0, Offset: 0, Length: 4096, Physical: 2048},
				{PathIndex: 1, Offset: 0, Length: 0, Physical: UnknownPhysical},
			},
			Groups: []int32{3},
		},
		{
			Device:     DeviceID{Major: 259, Minor: 0},
			Rotational: false,
			Paths:      []Path{{Ino: 5, Group: UnknownGroup, PathName: "/lib/libc.so.6"}},
			Blocks:     []Block{{PathIndex: 0, Offset: 4096, Length: 8192, Physical: UnknownPhysical}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	files := sampleFiles()
	encoded, err := Encode(files)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	assert.Equal(t, files[0].Device, decoded[0].Device)
	assert.True(t, decoded[0].Rotational)
	assert.Equal(t, files[0].Paths, decoded[0].Paths)
	assert.Equal(t, files[0].Blocks, decoded[0].Blocks)
	assert.Equal(t, files[0].Groups, decoded[0].Groups)

	assert.False(t, decoded[1].Rotational)
	assert.Equal(t, files[1].Paths, decoded[1].Paths)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := []byte("not a pack file at all, but padded to be long enough..........")
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeRejectsCorruptTrailer(t *testing.T) {
	encoded, err := Encode(sampleFiles())
	require.NoError(t, err)

	encoded[len(encoded)-1] ^= 0xff

	_, err = Decode(encoded)
	assert.ErrorIs(t, err, ErrTrailerMismatch)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	encoded, err := Encode(sampleFiles())
	require.NoError(t, err)

	_, err = Decode(encoded[:10])
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangePathIndex(t *testing.T) {
	f := &File{
		Paths:  []Path{{Ino: 1, PathName: "/a"}},
		Blocks: []Block{{PathIndex: 5}},
	}
	assert.Error(t, f.Validate())
}

func TestValidateRejectsNegativeLength(t *testing.T) {
	f := &File{
		Paths:  []Path{{Ino: 1, PathName: "/a"}},
		Blocks: []Block{{PathIndex: 0, Length: -1}},
	}
	assert.Error(t, f.Validate())
}

func TestValidateAcceptsSentinelBlock(t *testing.T) {
	f := &File{
		Paths:  []Path{{Ino: 1, PathName: "/a"}},
		Blocks: []Block{{PathIndex: 0, Offset: 0, Length: 0, Physical: UnknownPhysical}},
	}
	assert.NoError(t, f.Validate())
}

func TestDeviceIDString(t *testing.T) {
	assert.Equal(t, "8:1", DeviceID{Major: 8, Minor: 1}.String())
}
