package tracepipe

import (
	"fmt"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/pack"
)

// fakeFile is an in-memory fsprobe.File for tests.
type fakeFile struct {
	stat       fsprobe.Stat
	resident   []bool
	extents    []fsprobe.Extent
	extentsErr error
}

func (f *fakeFile) Stat() (fsprobe.Stat, error)       { return f.stat, nil }
func (f *fakeFile) Residency() ([]bool, error)        { return f.resident, nil }
func (f *fakeFile) Extents(offset, length int64) ([]fsprobe.Extent, error) {
	if f.extentsErr != nil {
		return nil, f.extentsErr
	}
	return f.extents, nil
}
func (f *fakeFile) Close() error { return nil }

// fakeProber is an in-memory fsprobe.Prober for tests, keyed by path.
type fakeProber struct {
	regular    map[string]bool
	files      map[string]*fakeFile
	openErr    map[string]error
	rotational map[pack.DeviceID]bool
	groups     map[pack.DeviceID]map[uint64]int32
	exists     map[string]pack.DeviceID
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		regular:    make(map[string]bool),
		files:      make(map[string]*fakeFile),
		openErr:    make(map[string]error),
		rotational: make(map[pack.DeviceID]bool),
		groups:     make(map[pack.DeviceID]map[uint64]int32),
		exists:     make(map[string]pack.DeviceID),
	}
}

func (p *fakeProber) LstatRegular(path string) (bool, error) {
	reg, ok := p.regular[path]
	if !ok {
		return false, fmt.Errorf("fakeProber: no lstat entry for %s", path)
	}
	return reg, nil
}

func (p *fakeProber) OpenNoAtime(path string) (fsprobe.File, error) {
	if err, ok := p.openErr[path]; ok {
		return nil, err
	}
	f, ok := p.files[path]
	if !ok {
		return nil, fmt.Errorf("fakeProber: no file registered for %s", path)
	}
	return f, nil
}

func (p *fakeProber) DeviceOf(path string) (pack.DeviceID, error) {
	if f, ok := p.files[path]; ok {
		return f.stat.Device, nil
	}
	return pack.DeviceID{}, fmt.Errorf("fakeProber: no device entry for %s", path)
}

func (p *fakeProber) PathExistsOnDevice(path string, dev pack.DeviceID) bool {
	d, ok := p.exists[path]
	return ok && d == dev
}

func (p *fakeProber) Rotational(dev pack.DeviceID) (bool, error) {
	return p.rotational[dev], nil
}

func (p *fakeProber) GroupOf(dev pack.DeviceID, ino uint64) (int32, bool) {
	g, ok := p.groups[dev]
	if !ok {
		return pack.UnknownGroup, false
	}
	grp, ok := g[ino]
	return grp, ok
}
