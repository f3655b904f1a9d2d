package diffgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianshen/patchloc/internal/snapshot"
)

// ArtifactName derives a flat, collision-free diff file name from a
// repository-relative path.
func ArtifactName(relPath string) string {
	return strings.ReplaceAll(filepath.ToSlash(relPath), "/", "__") + ".diff"
}

// Generate compares every file present in the old snapshot against the
// new one (deleted files diff against empty content) and writes one
// artifact per changed file into outDir. Files identical in both
// snapshots produce no artifact. Returns the written artifact paths in
// sorted file order.
func Generate(ctx context.Context, strategy Strategy, oldSnap, newSnap snapshot.Snapshot, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating diff dir: %w", err)
	}

	var written []string
	for _, path := range oldSnap.Paths() {
		oldText := oldSnap[path]
		newText := newSnap[path] // absent means deleted

		text, err := strategy.Diff(ctx, path, oldText, newText)
		if err != nil {
			return written, fmt.Errorf("diffing %s: %w", path, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		outPath := filepath.Join(outDir, ArtifactName(path))
		if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
			return written, fmt.Errorf("writing diff artifact %s: %w", outPath, err)
		}
		written = append(written, outPath)
	}
	return written, nil
}
