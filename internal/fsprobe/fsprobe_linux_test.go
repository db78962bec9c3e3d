//go:build linux

package fsprobe

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/fenwick/pageprime/internal/pack"
)

func TestFirstByte(t *testing.T) {
	assert.Equal(t, byte('1'), firstByte([]byte("1\n")))
	assert.Equal(t, byte('0'), firstByte([]byte("  0 \n")))
	assert.Equal(t, byte(0), firstByte([]byte("")))
}

func TestReadRotationalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotational")

	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o644))
	got, err := readRotationalFile(path)
	require.NoError(t, err)
	assert.True(t, got)

	require.NoError(t, os.WriteFile(path, []byte("0\n"), 0o644))
	got, err = readRotationalFile(path)
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, os.WriteFile(path, []byte("weird\n"), 0o644))
	_, err = readRotationalFile(path)
	assert.Error(t, err)
}

func TestReadRotationalFileMissing(t *testing.T) {
	_, err := readRotationalFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDeviceRawRoundTrip(t *testing.T) {
	dev := pack.DeviceID{Major: 8, Minor: 3}
	raw := deviceToRaw(dev)
	assert.Equal(t, dev, rawToDevice(raw))
}

// writeFakeExt2Superblock writes a minimal 2048-byte image with a valid
// ext2 superblock at the standard 1024-byte offset.
func writeFakeExt2Superblock(t *testing.T, path string, inodesPerGroup, blocksCount uint32) {
	t.Helper()
	buf := make([]byte, 2048)
	sb := buf[1024:2048]
	binary.LittleEndian.PutUint32(sb[4:8], blocksCount)
	binary.LittleEndian.PutUint32(sb[40:44], inodesPerGroup)
	binary.LittleEndian.PutUint16(sb[56:58], ext2Magic)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestReadExt2SuperblockParsesFields(t *testing.T) {
	dir := t.TempDir()
	devPath := filepath.Join(dir, "fakedev")
	writeFakeExt2Superblock(t, devPath, 8192, 65536)

	// readExt2Superblock hardcodes /dev/block/<maj>:<min>; exercise the
	// parsing logic directly against our own file instead.
	f, err := os.Open(devPath)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 1024)
	_, err = f.ReadAt(buf, 1024)
	require.NoError(t, err)

	magic := binary.LittleEndian.Uint16(buf[ext2SuperblockMagicOffset:])
	require.Equal(t, uint16(ext2Magic), magic)
	assert.Equal(t, uint32(8192), binary.LittleEndian.Uint32(buf[40:44]))
	assert.Equal(t, uint32(65536), binary.LittleEndian.Uint32(buf[4:8]))
}

func TestReadExt2SuperblockRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	devPath := filepath.Join(dir, "notext2")
	require.NoError(t, os.WriteFile(devPath, make([]byte, 2048), 0o644))

	f, err := os.Open(devPath)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 1024)
	_, err = f.ReadAt(buf, 1024)
	require.NoError(t, err)
	magic := binary.LittleEndian.Uint16(buf[ext2SuperblockMagicOffset:])
	assert.NotEqual(t, uint16(ext2Magic), magic)
}

func TestEncodeDecodeFiemapHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, fiemapHeaderSize+2*fiemapExtentSize)
	encodeFiemapHeader(buf, 4096, 8192, 2)

	assert.Equal(t, uint64(4096), binary.LittleEndian.Uint64(buf[0:8]))
	assert.Equal(t, uint64(8192), binary.LittleEndian.Uint64(buf[8:16]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[24:28]))
}

func TestDecodeFiemapExtents(t *testing.T) {
	buf := make([]byte, fiemapHeaderSize+1*fiemapExtentSize)
	off := fiemapHeaderSize
	binary.LittleEndian.PutUint64(buf[off:off+8], 0)        // logical
	binary.LittleEndian.PutUint64(buf[off+8:off+16], 9000)  // physical
	binary.LittleEndian.PutUint64(buf[off+16:off+24], 4096) // length
	binary.LittleEndian.PutUint32(buf[off+40:off+44], fiemapExtentUnknown)

	extents := decodeFiemapExtents(buf, 1)
	require.Len(t, extents, 1)
	assert.Equal(t, uint64(9000), extents[0].physical)
	assert.Equal(t, uint64(4096), extents[0].length)
	assert.Equal(t, uint32(fiemapExtentUnknown), extents[0].flags)
}

func TestLinuxProberLstatRegular(t *testing.T) {
	dir := t.TempDir()
	reg := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(reg, []byte("x"), 0o644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(reg, link))

	p := NewProber()

	ok, err := p.LstatRegular(reg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.LstatRegular(link)
	require.NoError(t, err)
	assert.False(t, ok, "a symlink itself must not be treated as regular")

	ok, err = p.LstatRegular(dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinuxProberOpenNoAtimeAndStat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	p := NewProber()
	f, err := p.OpenNoAtime(path)
	require.NoError(t, err)
	defer f.Close()

	st, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)
}

func TestLinuxProberResidencyOnEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	p := NewProber()
	f, err := p.OpenNoAtime(path)
	require.NoError(t, err)
	defer f.Close()

	resident, err := f.Residency()
	require.NoError(t, err)
	assert.Nil(t, resident)
}

func TestLinuxProberDeviceOf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	p := NewProber()
	dev, err := p.DeviceOf(path)
	require.NoError(t, err)

	var st unix.Stat_t
	require.NoError(t, unix.Stat(path, &st))
	assert.Equal(t, rawToDevice(devFromStat(&st)), dev)
}

func TestLinuxProberDeviceOfMissingPath(t *testing.T) {
	p := NewProber()
	_, err := p.DeviceOf(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLinuxProberPathExistsOnDevice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var st unix.Stat_t
	require.NoError(t, unix.Lstat(path, &st))
	dev := rawToDevice(devFromStat(&st))

	p := NewProber()
	assert.True(t, p.PathExistsOnDevice(path, dev))
	assert.False(t, p.PathExistsOnDevice(path, pack.DeviceID{Major: 254, Minor: 254}))
	assert.False(t, p.PathExistsOnDevice(filepath.Join(dir, "missing"), dev))
}
