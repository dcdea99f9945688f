package derive

import (
	"os"
	"path/filepath"
	"syscall"
)

// maxDirDepth bounds the walk in case of bind-mount loops
const maxDirDepth = 64

type inodeKey struct {
	dev uint64
	ino uint64
}

// DirSize returns the summed size of all regular files below path.
// Symlinks are not followed. Entries that cannot be read are skipped, so the
// total may be partial; an error is returned only when path itself cannot be
// read.
func DirSize(path string) (uint64, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}

	visited := make(map[inodeKey]struct{})
	if info, err := os.Stat(path); err == nil {
		markVisited(visited, info)
	}
	return sumEntries(path, entries, visited, 0), nil
}

func sumEntries(dir string, entries []os.DirEntry, visited map[inodeKey]struct{}, depth int) uint64 {
	var total uint64
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.Mode().IsRegular() {
			total += uint64(info.Size())
			continue
		}

		if !info.IsDir() || depth >= maxDirDepth {
			continue
		}
		if !markVisited(visited, info) {
			continue
		}

		child := filepath.Join(dir, entry.Name())
		children, err := os.ReadDir(child)
		if err != nil {
			continue
		}
		total += sumEntries(child, children, visited, depth+1)
	}
	return total
}

// markVisited records the directory inode and reports whether it was new
func markVisited(visited map[inodeKey]struct{}, info os.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	key := inodeKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}
	if _, seen := visited[key]; seen {
		return false
	}
	visited[key] = struct{}{}
	return true
}
