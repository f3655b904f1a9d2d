// Package astdiff invokes an external structural-diff tool (GumTree or
// compatible) as a subprocess. The tool receives two file paths and is
// expected to print a machine-parseable diff on stdout. Failures are
// best-effort by design: the line-based diff remains authoritative and
// callers only lose the secondary localization signal.
package astdiff

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner runs the structural-diff tool.
type Runner struct {
	// Command is the invocation prefix, e.g. ["java", "-jar",
	// "gumtree.jar"]. Empty disables the runner.
	Command []string
	// Timeout bounds each invocation. Zero means no limit.
	Timeout time.Duration
}

// Enabled reports whether a tool command is configured.
func (r *Runner) Enabled() bool {
	return len(r.Command) > 0
}

// Diff runs the tool on the two files and writes its stdout to outPath.
// It first tries the "diff" sub-command; on a non-zero exit it falls
// back to "parse" before giving up, since GumTree builds differ in
// which one emits JSON.
func (r *Runner) Diff(ctx context.Context, oldFile, newFile, outPath string) error {
	if !r.Enabled() {
		return fmt.Errorf("no structural-diff tool configured")
	}

	out, err := r.run(ctx, "diff", oldFile, newFile)
	if err != nil {
		var parseErr error
		out, parseErr = r.run(ctx, "parse", oldFile, newFile)
		if parseErr != nil {
			return fmt.Errorf("structural diff failed: %v; parse fallback: %w", err, parseErr)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("writing structural diff: %w", err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, subcmd, oldFile, newFile string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.Command[1:]...), subcmd, oldFile, newFile, "-f", "json")
	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s %s: %s", r.Command[0], subcmd, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s %s: %w", r.Command[0], subcmd, err)
	}
	return out, nil
}

// MaterializePair writes the old and new versions of a file under
// outRoot/<side>/<rel path> so the tool can read both from disk, and
// returns the two paths.
func MaterializePair(outRoot, relPath, oldText, newText string) (string, string, error) {
	oldPath := filepath.Join(outRoot, "old", filepath.FromSlash(relPath))
	newPath := filepath.Join(outRoot, "new", filepath.FromSlash(relPath))
	for path, content := range map[string]string{oldPath: oldText, newPath: newText} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", "", fmt.Errorf("creating version dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", "", fmt.Errorf("writing version file: %w", err)
		}
	}
	return oldPath, newPath, nil
}
