// Package gitrepo drives a local git checkout through the git binary.
// Every operation runs git as a subprocess with a context deadline.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnknownRef is returned when a checkout target cannot be resolved
// even after refreshing the remote.
var ErrUnknownRef = errors.New("unknown git ref")

// Repo is a local working copy of a remote repository. The working
// tree is mutated in place by Checkout, so a Repo must never be used
// from more than one goroutine.
type Repo struct {
	dir     string
	timeout time.Duration
}

// CloneOrFetch returns a usable checkout of url at dest. An existing
// checkout is reused and refreshed with a fetch; a fetch failure is
// logged and the stale local state is used. timeout bounds each git
// invocation (zero means no limit).
func CloneOrFetch(ctx context.Context, url, dest string, timeout time.Duration) (*Repo, error) {
	r := &Repo{dir: dest, timeout: timeout}

	if info, err := os.Stat(filepath.Join(dest, ".git")); err == nil && info.IsDir() {
		if _, err := r.run(ctx, "fetch", "--tags", "origin"); err != nil {
			log.Printf("gitrepo: fetch of %s failed, using stale checkout: %v", dest, err)
		}
		return r, nil
	}

	if _, err := r.runIn(ctx, filepath.Dir(dest), "clone", url, dest); err != nil {
		return nil, fmt.Errorf("cloning %s: %w", url, err)
	}
	return r, nil
}

// Dir returns the checkout's working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// Checkout switches the working tree to ref. When the ref is unknown
// locally it performs one fetch and retries once before failing with
// ErrUnknownRef.
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty ref", ErrUnknownRef)
	}

	if _, err := r.run(ctx, "checkout", "--force", ref); err == nil {
		return nil
	}

	// Recoverable once: the ref may simply not be here yet.
	if _, err := r.run(ctx, "fetch", "--tags", "origin"); err != nil {
		log.Printf("gitrepo: fetch before checkout retry failed: %v", err)
	}
	if _, err := r.run(ctx, "checkout", "--force", ref); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnknownRef, ref, err)
	}
	return nil
}

// Tags lists the repository's tags.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "tag", "--list")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// DiffNameOnly returns the paths changed between two refs.
func (r *Repo) DiffNameOnly(ctx context.Context, oldRef, newRef string) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", oldRef+".."+newRef)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// DiffRange returns the full diff between two refs.
func (r *Repo) DiffRange(ctx context.Context, oldRef, newRef string) (string, error) {
	return r.run(ctx, "diff", oldRef+".."+newRef)
}

// DiffFile returns the diff of a single path between two refs.
func (r *Repo) DiffFile(ctx context.Context, oldRef, newRef, path string) (string, error) {
	return r.run(ctx, "diff", oldRef+".."+newRef, "--", path)
}

// DiffRangeFile returns the minimal-context diff of a single path
// between two refs, used for hunk localization.
func (r *Repo) DiffRangeFile(ctx context.Context, oldRef, newRef, path string) (string, error) {
	return r.run(ctx, "diff", "-U0", oldRef+".."+newRef, "--", path)
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return r.runIn(ctx, r.dir, args...)
}

func (r *Repo) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
