package tracepipe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenwick/pageprime/internal/pack"
)

func TestNormalisePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/a//b/./c/../d/", "/a/b/d"},
		{"/../x", "/x"},
		{"/", "/"},
		{"//", "/"},
		{"/a/../..", "/"},
		{"/a/b/c", "/a/b/c"},
		{"a/b", "a/b"}, // relative input passed through, rejected elsewhere
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalisePath(tt.in))
		})
	}
}

func TestFilterRejectsRelativePath(t *testing.T) {
	f := NewFilter()
	_, ok := f.Accept("relative/path")
	assert.False(t, ok)
}

func TestFilterRejectsIgnoredPrefixes(t *testing.T) {
	f := NewFilter()
	for _, p := range []string{"/proc/1/status", "/sys/class/foo", "/dev/null", "/tmp/x", "/run/lock", "/var/log/syslog"} {
		_, ok := f.Accept(p)
		assert.False(t, ok, p)
	}
}

func TestFilterAcceptsAndNormalises(t *testing.T) {
	f := NewFilter()
	got, ok := f.Accept("/usr/./bin/../bin/bash")
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin/bash", got)
}

func TestFilterDedups(t *testing.T) {
	f := NewFilter()
	_, ok := f.Accept("/usr/bin/bash")
	assert.True(t, ok)
	_, ok = f.Accept("/usr/bin/bash")
	assert.False(t, ok)
}

func TestFilterPrefixFilter(t *testing.T) {
	f := NewFilter()
	f.PrefixFilter = "/usr/"
	_, ok := f.Accept("/etc/passwd")
	assert.False(t, ok)

	got, ok := f.Accept("/usr/bin/bash")
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin/bash", got)
}

func TestFilterPathPrefixRewrite(t *testing.T) {
	dev := pack.DeviceID{Major: 8, Minor: 1}
	f := NewFilter()
	f.PathPrefix = &PathPrefixOption{Device: dev, Prefix: "/mnt/root"}
	f.Exists = func(path string, d pack.DeviceID) bool {
		return path == "/mnt/root/etc/passwd" && d == dev
	}

	got, ok := f.Accept("/etc/passwd")
	assert.True(t, ok)
	assert.Equal(t, "/mnt/root/etc/passwd", got)
}

func TestFilterPathPrefixRewriteFallsBackWhenMissing(t *testing.T) {
	dev := pack.DeviceID{Major: 8, Minor: 1}
	f := NewFilter()
	f.PathPrefix = &PathPrefixOption{Device: dev, Prefix: "/mnt/root"}
	f.Exists = func(string, pack.DeviceID) bool { return false }

	got, ok := f.Accept("/etc/passwd")
	assert.True(t, ok)
	assert.Equal(t, "/etc/passwd", got)
}

func TestFilterRejectsOverlongPath(t *testing.T) {
	f := NewFilter()
	longPath := "/a" + repeatByte('x', pack.PACK_PATH_MAX)
	_, ok := f.Accept(longPath)
	assert.False(t, ok)
}

func repeatByte(b byte, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return string(buf)
}
