package pack

import (
	"fmt"
	"io"
)

// Dump writes a human-readable rendering of files to w, one line per path
// and indented lines for the blocks prefetching it, for the --dump CLI
// flag and for debugging trace output by hand.
func Dump(w io.Writer, files []*File) error {
	for _, f := range files {
		rot := "ssd"
		if f.Rotational {
			rot = "rotational"
		}
		if _, err := fmt.Fprintf(w, "device %s (%s), %d paths, %d blocks, groups=%v\n",
			f.Device, rot, len(f.Paths), len(f.Blocks), f.Groups); err != nil {
			return err
		}

		blocksByPath := make(map[int][]Block)
		for _, b := range f.Blocks {
			blocksByPath[b.PathIndex] = append(blocksByPath[b.PathIndex], b)
		}

		for i, p := range f.Paths {
			group := "?"
			if p.Group != UnknownGroup {
				group = fmt.Sprintf("%d", p.Group)
			}
			if _, err := fmt.Fprintf(w, "  ino=%d group=%s %s\n", p.Ino, group, p.PathName); err != nil {
				return err
			}
			for _, b := range blocksByPath[i] {
				physical := "?"
				if b.Physical != UnknownPhysical {
					physical = fmt.Sprintf("%d", b.Physical)
				}
				if _, err := fmt.Fprintf(w, "    offset=%d length=%d physical=%s\n", b.Offset, b.Length, physical); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
