//go:build linux

package kevent

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// tracingDir is the tracefs mount this tool expects. Most distributions
// mount it at /sys/kernel/tracing; older kernels only expose the
// debugfs alias at /sys/kernel/debug/tracing.
var tracingDir = "/sys/kernel/tracing"

// linuxTracer drives ftrace through tracefs.
type linuxTracer struct {
	dir         string
	pipe        *os.File
	instanceDir string // non-empty if this tracer owns a private ftrace instance
}

// NewTracer opens the tracefs control files under dir (or the default
// mount if dir is empty).
func NewTracer(dir string) (Tracer, error) {
	if dir == "" {
		dir = tracingDir
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("tracefs not mounted at %s: %w", dir, err)
	}
	return &linuxTracer{dir: dir}, nil
}

// NewInstance creates a private ftrace instance under tracingDir/instances,
// named with a fresh session id so concurrent trace sessions (or a session
// racing a system-wide tracer) never share tracepoint state. Creating the
// directory is itself what asks ftrace to instantiate it; Close removes it.
func NewInstance() (Tracer, error) {
	if _, err := os.Stat(tracingDir); err != nil {
		return nil, fmt.Errorf("tracefs not mounted at %s: %w", tracingDir, err)
	}
	name := "pageprime-" + uuid.NewString()
	dir := filepath.Join(tracingDir, "instances", name)
	if err := os.Mkdir(dir, 0755); err != nil { //nolint:gosec // G301: tracefs enforces its own instance perms
		return nil, fmt.Errorf("create trace instance %s: %w", name, err)
	}
	return &linuxTracer{dir: dir, instanceDir: dir}, nil
}

func (t *linuxTracer) eventEnablePath(name EventName) string {
	group, event, _ := strings.Cut(string(name), "/")
	return filepath.Join(t.dir, "events", group, event, "enable")
}

func (t *linuxTracer) EventEnable(name EventName) error {
	return os.WriteFile(t.eventEnablePath(name), []byte("1"), 0644) //nolint:gosec // G306: tracefs control file, not data
}

func (t *linuxTracer) EventDisable(name EventName) error {
	return os.WriteFile(t.eventEnablePath(name), []byte("0"), 0644) //nolint:gosec // G306
}

func (t *linuxTracer) IsEnabled(name EventName) (bool, error) {
	b, err := os.ReadFile(t.eventEnablePath(name)) //nolint:gosec // G304: fixed tracefs path
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(b)) == "1", nil
}

func (t *linuxTracer) bufferSizePath() string {
	return filepath.Join(t.dir, "buffer_size_kb")
}

func (t *linuxTracer) BufferSizeGet() (int, error) {
	b, err := os.ReadFile(t.bufferSizePath()) //nolint:gosec // G304
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func (t *linuxTracer) BufferSizeSet(kib int) error {
	return os.WriteFile(t.bufferSizePath(), []byte(strconv.Itoa(kib)), 0644) //nolint:gosec // G306
}

func (t *linuxTracer) tracingOnPath() string { return filepath.Join(t.dir, "tracing_on") }

func (t *linuxTracer) TraceOn() error {
	return os.WriteFile(t.tracingOnPath(), []byte("1"), 0644) //nolint:gosec // G306
}

func (t *linuxTracer) TraceOff() error {
	return os.WriteFile(t.tracingOnPath(), []byte("0"), 0644) //nolint:gosec // G306
}

func (t *linuxTracer) IsOn() (bool, error) {
	b, err := os.ReadFile(t.tracingOnPath()) //nolint:gosec // G304
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(b)) == "1", nil
}

// IterateEvents streams trace_pipe, a blocking read that only returns
// lines as the kernel appends them. Lines this tracer cannot decode are
// skipped; a read error or ctx cancellation ends the loop.
func (t *linuxTracer) IterateEvents(ctx context.Context, fn func(Record) error) error {
	f, err := os.Open(filepath.Join(t.dir, "trace_pipe")) //nolint:gosec // G304: fixed tracefs path
	if err != nil {
		return err
	}
	t.pipe = f
	defer f.Close()

	go func() {
		<-ctx.Done()
		f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func (t *linuxTracer) Close() error {
	var err error
	if t.pipe != nil {
		err = t.pipe.Close()
	}
	if t.instanceDir != "" {
		if rmErr := os.Remove(t.instanceDir); rmErr != nil && err == nil {
			err = fmt.Errorf("remove trace instance %s: %w", t.instanceDir, rmErr)
		}
	}
	return err
}

var headerRE = regexp.MustCompile(`^\s*(\S+)-(\d+)\s+\[`)
var fieldRE = regexp.MustCompile(`(\w+)=("([^"]*)"|\S+)`)

// parseLine decodes one trace_pipe text line of the form
// "<comm>-<pid> [cpu] flags timestamp: <event>: <fields>".
func parseLine(line string) (Record, bool) {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return Record{}, false
	}

	parts := strings.SplitN(line, ": ", 3)
	if len(parts) != 3 {
		return Record{}, false
	}
	header, event, fields := parts[0], parts[1], parts[2]

	m := headerRE.FindStringSubmatch(header)
	if m == nil {
		return Record{}, false
	}
	comm := m[1]
	pid, _ := strconv.Atoi(m[2])

	f := parseFields(fields)

	switch EventName(normaliseEventGroup(event)) {
	case EventDoSysOpen, EventOpenExec, EventUselib:
		path := firstNonEmpty(f["filename"], f["pathname"], f["name"])
		if path == "" {
			return Record{}, false
		}
		return Record{Kind: KindOpen, Open: OpenRecord{Comm: comm, PID: pid, Path: path}}, true

	case EventFilemapFault, EventFilemapGetPages, EventFilemapMapPages:
		dev, err := strconv.ParseUint(f["dev"], 0, 64)
		if err != nil {
			return Record{}, false
		}
		ino, err := strconv.ParseUint(f["ino"], 0, 64)
		if err != nil {
			return Record{}, false
		}
		ofs, err := strconv.ParseInt(f["ofs"], 0, 64)
		if err != nil {
			return Record{}, false
		}
		lastOfs := ofs
		if v, ok := f["last_ofs"]; ok {
			if parsed, perr := strconv.ParseInt(v, 0, 64); perr == nil {
				lastOfs = parsed
			}
		}
		return Record{Kind: KindFilemap, Filemap: FilemapRecord{
			Comm:      comm,
			PID:       pid,
			Device:    decodeDevice(dev),
			Ino:       ino,
			FirstPage: ofs >> pageShift,
			LastPage:  lastOfs >> pageShift,
		}}, true

	default:
		return Record{}, false
	}
}

const pageShift = 12

// normaliseEventGroup maps a bare ftrace event name (as printed in
// trace_pipe, which omits the group) back to "<group>/<name>" so it can
// be compared against the EventName constants.
func normaliseEventGroup(event string) string {
	switch event {
	case "do_sys_open":
		return string(EventDoSysOpen)
	case "open_exec":
		return string(EventOpenExec)
	case "uselib":
		return string(EventUselib)
	case "mm_filemap_fault":
		return string(EventFilemapFault)
	case "mm_filemap_get_pages":
		return string(EventFilemapGetPages)
	case "mm_filemap_map_pages":
		return string(EventFilemapMapPages)
	default:
		return event
	}
}

func parseFields(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range fieldRE.FindAllStringSubmatch(s, -1) {
		key, val := m[1], m[2]
		if m[3] != "" || (len(val) >= 2 && val[0] == '"') {
			val = m[3]
		}
		out[key] = val
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
