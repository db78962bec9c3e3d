package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fenwick/pageprime/internal/fsprobe"
	"github.com/fenwick/pageprime/internal/pack"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [PATH]",
	Short: "Print an existing pack file",
	Args:  cobra.MaximumNArgs(1),

	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDump,
}

func runDump(_ *cobra.Command, args []string) error {
	path := targetPath(args)
	prober := fsprobe.NewProber()

	filename, err := resolvePackPath(prober, path)
	if err != nil {
		return newExitError(2, fmt.Errorf("compute pack filename: %w", err))
	}

	files, err := readPack(filename)
	if err != nil {
		return newExitError(4, fmt.Errorf("read pack %s: %w", filename, err))
	}

	if err := sortFiles(files, sortFlag); err != nil {
		return newExitError(1, err)
	}

	if err := pack.Dump(os.Stdout, files); err != nil {
		return newExitError(3, err)
	}
	return nil
}

// sortFiles reorders each file's paths (and rewrites every block's
// PathIndex to match) for display purposes; it never touches the
// on-disk pack. "open" leaves the stored construction order alone.
func sortFiles(files []*pack.File, mode string) error {
	switch mode {
	case "", "open":
		return nil
	case "path", "disk", "size":
	default:
		return fmt.Errorf("unknown --sort mode %q (want open, path, disk, or size)", mode)
	}
	for _, f := range files {
		reorderForDump(f, mode)
	}
	return nil
}

type pathKey struct {
	physical int64
	size     int64
}

func reorderForDump(f *pack.File, mode string) {
	n := len(f.Paths)
	if n == 0 {
		return
	}

	keys := make([]pathKey, n)
	for i := range keys {
		keys[i].physical = pack.UnknownPhysical
	}
	for _, b := range f.Blocks {
		k := &keys[b.PathIndex]
		k.size += b.Length
		if b.Physical != pack.UnknownPhysical && (k.physical == pack.UnknownPhysical || b.Physical < k.physical) {
			k.physical = b.Physical
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	switch mode {
	case "path":
		sort.SliceStable(order, func(a, b int) bool {
			return f.Paths[order[a]].PathName < f.Paths[order[b]].PathName
		})
	case "disk":
		sort.SliceStable(order, func(a, b int) bool {
			pa, pb := keys[order[a]].physical, keys[order[b]].physical
			if pa == pack.UnknownPhysical {
				return false
			}
			if pb == pack.UnknownPhysical {
				return true
			}
			return pa < pb
		})
	case "size":
		sort.SliceStable(order, func(a, b int) bool {
			return keys[order[a]].size > keys[order[b]].size
		})
	}

	newIndexOf := make([]int, n)
	newPaths := make([]pack.Path, n)
	for newPos, oldPos := range order {
		newIndexOf[oldPos] = newPos
		newPaths[newPos] = f.Paths[oldPos]
	}
	f.Paths = newPaths

	for i := range f.Blocks {
		f.Blocks[i].PathIndex = newIndexOf[f.Blocks[i].PathIndex]
	}
}
