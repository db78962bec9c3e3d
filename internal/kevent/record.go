package kevent

import "github.com/fenwick/pageprime/internal/pack"

// Kind distinguishes the two shapes of Record.
type Kind int

const (
	// KindOpen is a path-opening event: do_sys_open, open_exec, uselib.
	KindOpen Kind = iota
	// KindFilemap is a page-cache touch: mm_filemap_fault,
	// mm_filemap_get_pages, mm_filemap_map_pages.
	KindFilemap
)

// Record is the decoded form of one trace_pipe line, a tagged union over
// OpenRecord and FilemapRecord.
type Record struct {
	Kind    Kind
	Open    OpenRecord
	Filemap FilemapRecord
}

// OpenRecord is an observed open(2)/execve(2)/uselib(2) against a path.
type OpenRecord struct {
	Comm string
	PID  int
	Path string
}

// FilemapRecord is an observed page-cache touch against [FirstPage,
// LastPage] (inclusive) of an inode. mm_filemap_fault reports a single
// page, so FirstPage == LastPage for it; the get_pages/map_pages events
// report a range.
type FilemapRecord struct {
	Comm      string
	PID       int
	Device    pack.DeviceID
	Ino       uint64
	FirstPage int64
	LastPage  int64
}

// decodeDevice applies this tool's device-number convention for trace
// records: major = raw>>20, minor = raw&0xff. This does NOT match
// unix.Major/unix.Minor (used for real stat() dev_t values in fsprobe) —
// it is the encoding the filemap tracepoints themselves use for their
// dev_t argument, and the two must never be conflated.
func decodeDevice(raw uint64) pack.DeviceID {
	return pack.DeviceID{
		Major: uint32(raw >> 20),
		Minor: uint32(raw & 0xff),
	}
}
