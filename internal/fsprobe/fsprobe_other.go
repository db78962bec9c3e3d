//go:build !linux

package fsprobe

import (
	"os"

	"github.com/fenwick/pageprime/internal/pack"
)

// otherProber is a best-effort Prober for platforms without mincore/FIEMAP
// support: residency and extent queries are unsupported, and rotational
// queries default to true per the safer-ordering rule.
type otherProber struct{}

// NewProber returns the fallback Prober implementation.
func NewProber() Prober { return otherProber{} }

func (otherProber) LstatRegular(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (otherProber) OpenNoAtime(path string) (File, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from trace-observed opens
	if err != nil {
		return nil, err
	}
	return &otherFile{f: f}, nil
}

func (otherProber) DeviceOf(_ string) (pack.DeviceID, error) {
	return pack.DeviceID{}, ErrUnsupported
}

func (otherProber) PathExistsOnDevice(path string, _ pack.DeviceID) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (otherProber) Rotational(_ pack.DeviceID) (bool, error) {
	return true, ErrUnsupported
}

func (otherProber) GroupOf(_ pack.DeviceID, _ uint64) (int32, bool) {
	return 0, false
}

type otherFile struct{ f *os.File }

func (o *otherFile) Stat() (Stat, error) {
	info, err := o.f.Stat()
	if err != nil {
		return Stat{}, err
	}
	return Stat{Size: info.Size()}, nil
}

func (o *otherFile) Residency() ([]bool, error)            { return nil, ErrUnsupported }
func (o *otherFile) Extents(_, _ int64) ([]Extent, error) { return nil, ErrUnsupported }
func (o *otherFile) Close() error                          { return o.f.Close() }
