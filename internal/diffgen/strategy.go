// Package diffgen produces per-file diff artifacts from two snapshots
// of a working tree.
package diffgen

import (
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/julianshen/patchloc/internal/gitrepo"
)

// Strategy produces a diff for one file. An empty result means the
// file did not change.
type Strategy interface {
	// Diff compares the old and new content of the file at path.
	Diff(ctx context.Context, path, oldText, newText string) (string, error)
	// Name identifies the strategy in logs and result rows.
	Name() string
}

// UnifiedStrategy computes a line-based unified diff in process. Given
// fixed inputs its output is byte-identical across runs.
type UnifiedStrategy struct {
	// Context is the number of context lines around each hunk.
	// Zero means the conventional three.
	Context int
}

// Name implements Strategy.
func (s *UnifiedStrategy) Name() string { return "unified" }

// Diff implements Strategy.
func (s *UnifiedStrategy) Diff(_ context.Context, path, oldText, newText string) (string, error) {
	n := s.Context
	if n == 0 {
		n = 3
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: path + " (old)",
		ToFile:   path + " (new)",
		Context:  n,
	})
	if err != nil {
		return "", fmt.Errorf("unified diff of %s: %w", path, err)
	}
	return text, nil
}

// GitStrategy asks git for the per-file diff between the two refs the
// snapshots were taken at, ignoring the in-memory content.
type GitStrategy struct {
	Repo   *gitrepo.Repo
	OldRef string
	NewRef string
}

// Name implements Strategy.
func (s *GitStrategy) Name() string { return "git" }

// Diff implements Strategy.
func (s *GitStrategy) Diff(ctx context.Context, path, _, _ string) (string, error) {
	return s.Repo.DiffFile(ctx, s.OldRef, s.NewRef, path)
}
