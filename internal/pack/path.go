package pack

import (
	"fmt"
	"path/filepath"
)

// defaultPackDir is where packs live absent a --pack-file override,
// mirroring the system state directory convention of the boot-time
// readahead tool this pipeline replaces.
const defaultPackDir = "/var/lib/pageprime"

// DefaultPath returns the deterministic on-disk path for dev's pack: one
// file per device, named by its major:minor pair so multiple mounted
// filesystems never collide.
func DefaultPath(dev DeviceID) string {
	return filepath.Join(defaultPackDir, fmt.Sprintf("%d.%d.pack", dev.Major, dev.Minor))
}
