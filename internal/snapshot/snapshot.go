// Package snapshot captures the text content of a checked-out working
// tree into memory, so two refs can be compared after sequential
// checkouts of the same tree.
package snapshot

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirs contains directory names excluded from capture.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
}

// Options controls which files are captured.
type Options struct {
	// Extensions is the allowlist of file extensions, each including
	// the leading dot. Empty captures nothing.
	Extensions []string
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64
}

// Snapshot maps repository-relative paths to file text content.
type Snapshot map[string]string

// Capture walks the working tree at dir and reads every allowlisted
// file into memory. Unreadable and oversized files are skipped
// silently; the walk itself only fails when dir is unusable.
func Capture(dir string, opts Options) (Snapshot, error) {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	snap := Snapshot{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("snapshot: skipping path %q: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			log.Printf("snapshot: skipping large file %s (%d bytes)", path, info.Size())
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Paths returns the snapshot's file paths in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
