package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCaptureFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "document.write(input)\n")
	writeFile(t, dir, "lib/util.py", "print('hi')\n")
	writeFile(t, dir, "image.png", "binarybytes")
	writeFile(t, dir, "README", "readme")

	snap, err := Capture(dir, Options{Extensions: []string{".js", ".py"}})
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		"app.js":      "document.write(input)\n",
		"lib/util.py": "print('hi')\n",
	}, snap)
}

func TestCaptureSkipsDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "a")
	writeFile(t, dir, ".git/objects/blob.js", "b")
	writeFile(t, dir, "node_modules/dep/index.js", "c")
	writeFile(t, dir, "vendor/lib.js", "d")

	snap, err := Capture(dir, Options{Extensions: []string{".js"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.js"}, snap.Paths())
}

func TestCaptureSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.js", "ok")
	writeFile(t, dir, "big.js", strings.Repeat("x", 100))

	snap, err := Capture(dir, Options{Extensions: []string{".js"}, MaxFileSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.js"}, snap.Paths())
}

func TestCaptureEmptyAllowlist(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "a")

	snap, err := Capture(dir, Options{})
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestPathsSorted(t *testing.T) {
	snap := Snapshot{"b.js": "", "a.js": "", "c/d.js": ""}
	assert.Equal(t, []string{"a.js", "b.js", "c/d.js"}, snap.Paths())
}
