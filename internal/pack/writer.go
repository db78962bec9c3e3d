package pack

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// magic identifies a pageprime pack file; version 1 of the wire format.
var magic = [4]byte{'P', 'P', 'K', '1'}

const formatVersion uint8 = 1

// Encode serialises files into the on-disk pack format: a fixed header,
// one section per device, and a trailing BLAKE3-128 digest over
// everything that precedes it.
func Encode(files []*File) ([]byte, error) {
	for i, f := range files {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("file %d (device %s): %w", i, f.Device, err)
		}
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)
	writeUint32(&buf, uint32(len(files))) //nolint:gosec // G115: device counts never approach 2^32

	for _, f := range files {
		writeFile(&buf, f)
	}

	body := buf.Bytes()
	return append(body, digest128(body)...), nil
}

func writeFile(buf *bytes.Buffer, f *File) {
	writeUint32(buf, f.Device.Major)
	writeUint32(buf, f.Device.Minor)
	if f.Rotational {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	writeUint32(buf, uint32(len(f.Paths))) //nolint:gosec // G115
	for _, p := range f.Paths {
		writeUint64(buf, p.Ino)
		writeInt32(buf, p.Group)
		name := []byte(p.PathName)
		writeUint16(buf, uint16(len(name))) //nolint:gosec // G115: bounded by PACK_PATH_MAX
		buf.Write(name)
	}

	writeUint32(buf, uint32(len(f.Groups))) //nolint:gosec // G115
	for _, g := range f.Groups {
		writeInt32(buf, g)
	}

	writeUint32(buf, uint32(len(f.Blocks))) //nolint:gosec // G115
	for _, b := range f.Blocks {
		writeUint32(buf, uint32(b.PathIndex)) //nolint:gosec // G115: bounded by path count
		writeInt64(buf, b.Offset)
		writeInt64(buf, b.Length)
		writeInt64(buf, b.Physical)
	}
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) { writeUint32(buf, uint32(v)) }

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) { writeUint64(buf, uint64(v)) }
