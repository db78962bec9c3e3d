package pack

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ErrBadMagic means the input does not start with the pageprime pack
// magic bytes.
var ErrBadMagic = fmt.Errorf("pack: bad magic")

// ErrTrailerMismatch means the trailing digest does not match the body:
// the pack is truncated or corrupt.
var ErrTrailerMismatch = fmt.Errorf("pack: trailer digest mismatch")

// Decode parses the on-disk pack format written by Encode.
func Decode(data []byte) ([]*File, error) {
	if len(data) < len(magic)+1+4+trailerSize {
		return nil, fmt.Errorf("pack: truncated (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrBadMagic
	}

	body, trailer := data[:len(data)-trailerSize], data[len(data)-trailerSize:]
	if !bytes.Equal(digest128(body), trailer) {
		return nil, ErrTrailerMismatch
	}

	r := &reader{buf: body[len(magic):]}
	version := r.readByte()
	if version != formatVersion {
		return nil, fmt.Errorf("pack: unsupported format version %d", version)
	}

	fileCount := r.readUint32()
	files := make([]*File, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		f, err := r.readFile()
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
		files = append(files, f)
	}
	if r.err != nil {
		return nil, r.err
	}
	return files, nil
}

// reader walks buf sequentially, latching the first error it hits so
// callers don't need to check after every field.
type reader struct {
	buf []byte
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil || len(r.buf) < n {
		if r.err == nil {
			r.err = fmt.Errorf("pack: unexpected end of data")
		}
		return false
	}
	return true
}

func (r *reader) readByte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *reader) readUint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf)
	r.buf = r.buf[2:]
	return v
}

func (r *reader) readUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

func (r *reader) readInt32() int32 { return int32(r.readUint32()) }

func (r *reader) readUint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *reader) readInt64() int64 { return int64(r.readUint64()) }

func (r *reader) readString(n uint16) string {
	if !r.need(int(n)) {
		return ""
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s
}

func (r *reader) readFile() (*File, error) {
	f := &File{
		Device: DeviceID{Major: r.readUint32(), Minor: r.readUint32()},
	}
	f.Rotational = r.readByte() != 0

	pathCount := r.readUint32()
	f.Paths = make([]Path, 0, pathCount)
	for i := uint32(0); i < pathCount; i++ {
		ino := r.readUint64()
		group := r.readInt32()
		nameLen := r.readUint16()
		name := r.readString(nameLen)
		f.Paths = append(f.Paths, Path{Ino: ino, Group: group, PathName: name})
	}

	groupCount := r.readUint32()
	f.Groups = make([]int32, 0, groupCount)
	for i := uint32(0); i < groupCount; i++ {
		f.Groups = append(f.Groups, r.readInt32())
	}

	blockCount := r.readUint32()
	f.Blocks = make([]Block, 0, blockCount)
	for i := uint32(0); i < blockCount; i++ {
		f.Blocks = append(f.Blocks, Block{
			PathIndex: int(r.readUint32()),
			Offset:    r.readInt64(),
			Length:    r.readInt64(),
			Physical:  r.readInt64(),
		})
	}

	if r.err != nil {
		return nil, r.err
	}
	return f, f.Validate()
}
