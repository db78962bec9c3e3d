package tracepipe

import "github.com/fenwick/pageprime/internal/pack"

// Assembler is C7: the per-device aggregation of paths, blocks, and group
// hints into the pack.File the writer will serialise. It owns one
// pack.File per device seen during the trace.
type Assembler struct {
	order []pack.DeviceID
	files map[pack.DeviceID]*pack.File
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{files: make(map[pack.DeviceID]*pack.File)}
}

// EnsureDevice returns the pack.File for dev, creating it via rotational()
// (queried at most once per device, lazily) if this is the first mention.
func (a *Assembler) EnsureDevice(dev pack.DeviceID, rotational func() bool) *pack.File {
	if f, ok := a.files[dev]; ok {
		return f
	}
	f := &pack.File{Device: dev, Rotational: rotational()}
	a.files[dev] = f
	a.order = append(a.order, dev)
	return f
}

// AddPath appends a path to dev's file and returns its index, for use as a
// Block.PathIndex.
func (a *Assembler) AddPath(dev pack.DeviceID, p pack.Path) int {
	f := a.files[dev]
	f.Paths = append(f.Paths, p)
	return len(f.Paths) - 1
}

// AddBlock appends a candidate block to dev's file.
func (a *Assembler) AddBlock(dev pack.DeviceID, b pack.Block) {
	f := a.files[dev]
	f.Blocks = append(f.Blocks, b)
}

// Files returns every pack.File assembled so far, in first-seen device
// order.
func (a *Assembler) Files() []*pack.File {
	out := make([]*pack.File, 0, len(a.order))
	for _, dev := range a.order {
		out = append(out, a.files[dev])
	}
	return out
}
