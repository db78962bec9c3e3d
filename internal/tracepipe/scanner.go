package tracepipe

import (
	"log/slog"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/pack"
)

// Scanner is C3: given a path an open(2) was observed against, it decides
// whether the file is worth packing and, if so, records its identity and
// candidate page-cache blocks with the Assembler.
//
// A Scanner is single-owner and not safe for concurrent use; the ingester
// serialises calls to Scan per trace session.
type Scanner struct {
	prober   fsprobe.Prober
	asm      *Assembler
	forceSSD bool
	log      *slog.Logger

	seenInode map[pack.DeviceID]map[uint64]struct{}
}

// NewScanner returns a Scanner that records into asm. forceSSD treats
// every device as non-rotational: the FIEMAP extent lookup is skipped and
// blocks are recorded with an unknown physical offset — useful when the
// rotational probe is known to be unreliable (e.g. dm-crypt, network
// block devices).
func NewScanner(prober fsprobe.Prober, asm *Assembler, forceSSD bool, log *slog.Logger) *Scanner {
	return &Scanner{
		prober:    prober,
		asm:       asm,
		forceSSD:  forceSSD,
		log:       log,
		seenInode: make(map[pack.DeviceID]map[uint64]struct{}),
	}
}

// Scan processes a single accepted, normalised path. All failures are
// per-file: they are logged and swallowed rather than returned, so one
// vanished or permission-denied file never aborts a trace.
func (s *Scanner) Scan(path string) {
	isReg, err := s.prober.LstatRegular(path)
	if err != nil {
		s.log.Warn("lstat failed, skipping", "path", path, "error", err)
		return
	}
	if !isReg {
		return
	}

	f, err := s.prober.OpenNoAtime(path)
	if err != nil {
		s.log.Warn("open failed, skipping", "path", path, "error", err)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		s.log.Warn("fstat failed, skipping", "path", path, "error", err)
		return
	}

	file := s.asm.EnsureDevice(st.Device, func() bool {
		if s.forceSSD {
			return false
		}
		rot, rerr := s.prober.Rotational(st.Device)
		if rerr != nil {
			s.log.Debug("rotational probe failed, assuming rotational", "device", st.Device, "error", rerr)
		}
		return rot
	})

	inodes := s.seenInode[st.Device]
	if inodes == nil {
		inodes = make(map[uint64]struct{})
		s.seenInode[st.Device] = inodes
	}
	_, alreadyScanned := inodes[st.Ino]

	group, _ := s.prober.GroupOf(st.Device, st.Ino)
	pathIndex := s.asm.AddPath(st.Device, pack.Path{Ino: st.Ino, Group: group, PathName: path})

	if alreadyScanned {
		// A second path to the same inode (hardlink, bind mount): record
		// the alias, but the blocks were already captured once.
		return
	}
	inodes[st.Ino] = struct{}{}

	if st.Size == 0 {
		// Opened but never produced a residency query worth making. The
		// block reducer still needs to see this path exists: emit the
		// sentinel zero-length block.
		s.asm.AddBlock(st.Device, pack.Block{PathIndex: pathIndex, Offset: 0, Length: 0, Physical: pack.UnknownPhysical})
		return
	}

	resident, err := f.Residency()
	if err != nil {
		s.log.Warn("residency query failed, skipping", "path", path, "error", err)
		return
	}

	for _, chunk := range coalesceResident(resident) {
		s.emitChunk(f, st.Device, pathIndex, file.Rotational, chunk)
	}
}

type pageChunk struct {
	startPage, numPages int64
}

// coalesceResident groups contiguous resident pages into runs.
func coalesceResident(resident []bool) []pageChunk {
	var chunks []pageChunk
	var run pageChunk
	inRun := false
	for i, r := range resident {
		if r {
			if !inRun {
				run = pageChunk{startPage: int64(i), numPages: 0}
				inRun = true
			}
			run.numPages++
			continue
		}
		if inRun {
			chunks = append(chunks, run)
			inRun = false
		}
	}
	if inRun {
		chunks = append(chunks, run)
	}
	return chunks
}

func (s *Scanner) emitChunk(f fsprobe.File, dev pack.DeviceID, pathIndex int, rotational bool, chunk pageChunk) {
	offset := chunk.startPage * PageSize
	length := chunk.numPages * PageSize

	if !rotational {
		s.asm.AddBlock(dev, pack.Block{PathIndex: pathIndex, Offset: offset, Length: length, Physical: pack.UnknownPhysical})
		return
	}

	extents, err := f.Extents(offset, length)
	if err != nil {
		s.log.Warn("fiemap failed, recording without physical offset", "error", err)
		s.asm.AddBlock(dev, pack.Block{PathIndex: pathIndex, Offset: offset, Length: length, Physical: pack.UnknownPhysical})
		return
	}

	chunkEnd := offset + length
	for _, e := range extents {
		if e.Unknown {
			continue
		}
		lo := max64(offset, e.LogicalStart)
		hi := min64(chunkEnd, e.LogicalStart+e.LogicalLength)
		if lo >= hi {
			continue
		}
		physical := e.PhysicalStart + (lo - e.LogicalStart)
		s.asm.AddBlock(dev, pack.Block{PathIndex: pathIndex, Offset: lo, Length: hi - lo, Physical: physical})
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
