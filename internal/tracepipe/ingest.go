package tracepipe

import (
	"log/slog"

	"github.com/fenwick/pageprime/internal/kevent"
	"github.com/fenwick/pageprime/internal/pack"
)

// Ingester is C4: it dispatches decoded kernel trace records to the path
// filter and scanner (C2/C3) for opens, and to the device table (C1) for
// filemap touches. It is the only component that calls both.
type Ingester struct {
	filter  *Filter
	scanner *Scanner
	table   *DeviceTable
	log     *slog.Logger
}

// NewIngester wires the collaborators one trace session needs.
func NewIngester(filter *Filter, scanner *Scanner, table *DeviceTable, log *slog.Logger) *Ingester {
	return &Ingester{filter: filter, scanner: scanner, table: table, log: log}
}

// Dispatch routes one decoded record. Open records are filtered and, if
// accepted, scanned immediately — residency is a point-in-time property,
// and the earliest observation of an open is the most representative of
// boot-time behavior. Filemap records only update the device table; the
// blocks they gate are applied later, in the reduction pass, once the
// trace session has finished.
func (in *Ingester) Dispatch(rec kevent.Record) {
	switch rec.Kind {
	case kevent.KindOpen:
		in.dispatchOpen(rec.Open)
	case kevent.KindFilemap:
		in.dispatchFilemap(rec.Filemap)
	}
}

func (in *Ingester) dispatchOpen(o kevent.OpenRecord) {
	path, ok := in.filter.Accept(o.Path)
	if !ok {
		return
	}
	in.scanner.Scan(path)
}

func (in *Ingester) dispatchFilemap(fm kevent.FilemapRecord) {
	if fm.FirstPage > fm.LastPage {
		in.log.Debug("dropping filemap record with inverted range",
			"device", fm.Device, "inode", fm.Ino, "first", fm.FirstPage, "last", fm.LastPage)
		return
	}
	in.table.Add(fm.Device, fm.Ino, fm.FirstPage, fm.LastPage)
}

// Finish is C5+C6 applied to every file the session has assembled: block
// reduction against the accumulated device table, then physical-offset
// ordering and group-hint collection for rotational devices. It returns
// the final set of pack.File records ready for assembly into a pack.
func Finish(asm *Assembler, table *DeviceTable) []*pack.File {
	files := asm.Files()
	for _, f := range files {
		ReduceBlocks(f, table)
		OrderFile(f)
	}
	return files
}
