// Package pipeline orchestrates the advisory-to-dataset run: clone,
// checkout pair, snapshot, diff, structural diff, prompts, result row.
// Advisories are processed strictly one at a time in input order; the
// per-advisory working tree is mutated in place by sequential
// checkouts, so nothing here may ever run concurrently.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/julianshen/patchloc/internal/advisory"
	"github.com/julianshen/patchloc/internal/astdiff"
	"github.com/julianshen/patchloc/internal/config"
	"github.com/julianshen/patchloc/internal/dataset"
	"github.com/julianshen/patchloc/internal/diffgen"
	"github.com/julianshen/patchloc/internal/gitrepo"
	"github.com/julianshen/patchloc/internal/prompt"
	"github.com/julianshen/patchloc/internal/snapshot"
)

// Skip records why an advisory produced no result row.
type Skip struct {
	AdvisoryID string
	Reason     string
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Rows    []dataset.Row
	Skipped []Skip
}

// Run processes all records in order and writes every artifact under
// outputRoot. Individual advisory failures are logged and recorded as
// skips; only the inability to set up the output tree is an error.
func Run(ctx context.Context, cfg *config.Config, records []advisory.Record, outputRoot string) (*Result, error) {
	if cfg.Pipeline.OutputRoot != "" {
		outputRoot = cfg.Pipeline.OutputRoot
	}
	workspace := filepath.Join(outputRoot, "workspace")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	runner := &astdiff.Runner{Command: cfg.ASTDiff.Command, Timeout: cfg.ASTDiff.Timeout.Duration}
	res := &Result{}

	for i, rec := range records {
		fmt.Fprintf(os.Stderr, "patchloc: [%d/%d] %s\n", i+1, len(records), rec.ID)

		row, skip := processOne(ctx, cfg, runner, rec, outputRoot, workspace)
		if skip != nil {
			log.Printf("pipeline: skipping %s: %s", skip.AdvisoryID, skip.Reason)
			res.Skipped = append(res.Skipped, *skip)
			continue
		}
		res.Rows = append(res.Rows, *row)
	}

	csvPath := filepath.Join(outputRoot, "patched_dataset.csv")
	if err := dataset.WriteCSV(csvPath, res.Rows); err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "patchloc: wrote %d rows to %s\n", len(res.Rows), csvPath)

	if cfg.Dataset.SQLite {
		if err := mirrorToSQLite(outputRoot, res.Rows); err != nil {
			log.Printf("pipeline: sqlite mirror failed: %v", err)
		}
	}

	return res, nil
}

// processOne runs the whole per-advisory sequence. It returns either a
// row or a skip, never both.
func processOne(ctx context.Context, cfg *config.Config, runner *astdiff.Runner, rec advisory.Record, outputRoot, workspace string) (*dataset.Row, *Skip) {
	if err := rec.Validate(); err != nil {
		return nil, &Skip{AdvisoryID: rec.ID, Reason: err.Error()}
	}

	repoDir := filepath.Join(workspace, rec.ID+"_"+rec.RepoName())
	repo, err := gitrepo.CloneOrFetch(ctx, rec.RepoURL, repoDir, cfg.Git.Timeout.Duration)
	if err != nil {
		return nil, &Skip{AdvisoryID: rec.ID, Reason: fmt.Sprintf("clone failed: %v", err)}
	}

	refs := resolveRefs(ctx, repo, rec)
	if refs.Old == "" && refs.New == "" {
		return nil, &Skip{AdvisoryID: rec.ID, Reason: "no usable refs"}
	}

	// The old snapshot must be fully in memory before the second
	// checkout mutates the same working tree.
	snapOpts := snapshot.Options{
		Extensions:  cfg.Pipeline.Extensions,
		MaxFileSize: cfg.Pipeline.MaxFileSize,
	}
	oldSnap := captureAt(ctx, repo, refs.Old, snapOpts)
	newSnap := captureAt(ctx, repo, refs.New, snapOpts)

	diffsDir := filepath.Join(outputRoot, "diffs", rec.ID)
	strategy := pickStrategy(cfg, repo, refs)
	diffPaths, err := diffgen.Generate(ctx, strategy, oldSnap, newSnap, diffsDir)
	if err != nil {
		log.Printf("pipeline: %s: diff generation incomplete: %v", rec.ID, err)
	}

	changed := changedPaths(oldSnap, newSnap)

	fullDiffPath := ""
	if cfg.Pipeline.FullDiff {
		fullDiffPath = writeFullDiff(ctx, repo, rec, refs, diffsDir)
	}

	var astPaths []string
	if runner.Enabled() {
		astPaths = runStructuralDiffs(ctx, runner, rec, oldSnap, newSnap, changed, outputRoot)
	}

	hunks := localizeHunks(ctx, cfg, repo, refs, changed)

	promptsDir := filepath.Join(outputRoot, "prompts", rec.ID)
	_, _, err = prompt.Write(promptsDir, prompt.Vars{
		AdvisoryID:      rec.ID,
		Description:     rec.Description,
		OldRef:          refs.Old,
		NewRef:          refs.New,
		FullDiffPath:    fullDiffPath,
		StructuralPaths: astPaths,
	})
	if err != nil {
		return nil, &Skip{AdvisoryID: rec.ID, Reason: fmt.Sprintf("writing prompts: %v", err)}
	}

	return &dataset.Row{
		AdvisoryID:    rec.ID,
		Ecosystem:     rec.Ecosystem,
		RepoURL:       rec.RepoURL,
		RepoDir:       repoDir,
		OldRef:        refs.Old,
		NewRef:        refs.New,
		OldRefSource:  refs.OldSource,
		NewRefSource:  refs.NewSource,
		Strategy:      strategy.Name(),
		FullDiffPath:  fullDiffPath,
		DiffPaths:     diffPaths,
		ASTDiffPaths:  astPaths,
		LocalizedHunk: hunks,
		PromptsDir:    promptsDir,
	}, nil
}

// resolveRefs turns the record's declared refs into concrete checkout
// targets, resolving semver ranges against the repository's tags.
func resolveRefs(ctx context.Context, repo *gitrepo.Repo, rec advisory.Record) advisory.RefPair {
	refs := rec.Refs()

	var tags []string
	for _, side := range []*string{&refs.Old, &refs.New} {
		if !advisory.IsVersionRange(*side) {
			continue
		}
		if tags == nil {
			var err error
			tags, err = repo.Tags(ctx)
			if err != nil {
				log.Printf("pipeline: %s: listing tags: %v", rec.ID, err)
				continue
			}
		}
		resolved, err := advisory.ResolveRange(*side, tags)
		if err != nil {
			log.Printf("pipeline: %s: keeping raw ref %q: %v", rec.ID, *side, err)
			continue
		}
		*side = resolved
	}
	return refs
}

// captureAt checks out ref and snapshots the tree. A checkout failure
// is a warning; an empty snapshot is returned so diffing degrades to
// whatever state is available.
func captureAt(ctx context.Context, repo *gitrepo.Repo, ref string, opts snapshot.Options) snapshot.Snapshot {
	if err := repo.Checkout(ctx, ref); err != nil {
		log.Printf("pipeline: checkout %q failed: %v", ref, err)
		return snapshot.Snapshot{}
	}
	snap, err := snapshot.Capture(repo.Dir(), opts)
	if err != nil {
		log.Printf("pipeline: snapshot at %q failed: %v", ref, err)
		return snapshot.Snapshot{}
	}
	return snap
}

func pickStrategy(cfg *config.Config, repo *gitrepo.Repo, refs advisory.RefPair) diffgen.Strategy {
	if cfg.Pipeline.Strategy == "git" {
		return &diffgen.GitStrategy{Repo: repo, OldRef: refs.Old, NewRef: refs.New}
	}
	return &diffgen.UnifiedStrategy{}
}

// changedPaths lists old-snapshot paths whose content differs in the
// new snapshot, in sorted order.
func changedPaths(oldSnap, newSnap snapshot.Snapshot) []string {
	var changed []string
	for _, path := range oldSnap.Paths() {
		if oldSnap[path] != newSnap[path] {
			changed = append(changed, path)
		}
	}
	return changed
}

var unsafeRefChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeRef makes a ref usable inside a file name.
func safeRef(ref string) string {
	s := unsafeRefChars.ReplaceAllString(ref, "-")
	return strings.Trim(s, "-")
}

// writeFullDiff captures the repository-level diff between the two
// refs. Empty diffs write no artifact; failures only log.
func writeFullDiff(ctx context.Context, repo *gitrepo.Repo, rec advisory.Record, refs advisory.RefPair, diffsDir string) string {
	text, err := repo.DiffRange(ctx, refs.Old, refs.New)
	if err != nil {
		log.Printf("pipeline: %s: full diff failed: %v", rec.ID, err)
		return ""
	}
	if strings.TrimSpace(text) == "" {
		return ""
	}

	name := fmt.Sprintf("%s_%s_to_%s.diff", rec.RepoName(), safeRef(refs.Old), safeRef(refs.New))
	path := filepath.Join(diffsDir, name)
	if err := os.MkdirAll(diffsDir, 0o755); err != nil {
		log.Printf("pipeline: %s: creating diffs dir: %v", rec.ID, err)
		return ""
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		log.Printf("pipeline: %s: writing full diff: %v", rec.ID, err)
		return ""
	}
	return path
}

// runStructuralDiffs materializes both versions of each changed file
// and feeds them to the external tool. Tool failures are logged and
// the artifact is simply omitted.
func runStructuralDiffs(ctx context.Context, runner *astdiff.Runner, rec advisory.Record, oldSnap, newSnap snapshot.Snapshot, changed []string, outputRoot string) []string {
	gumDir := filepath.Join(outputRoot, "gumtree", rec.ID)

	var outputs []string
	for _, path := range changed {
		oldFile, newFile, err := astdiff.MaterializePair(filepath.Join(gumDir, "files"), path, oldSnap[path], newSnap[path])
		if err != nil {
			log.Printf("pipeline: %s: materializing %s: %v", rec.ID, path, err)
			continue
		}

		outPath := filepath.Join(gumDir, strings.ReplaceAll(path, "/", "__")+".json")
		if err := runner.Diff(ctx, oldFile, newFile, outPath); err != nil {
			log.Printf("pipeline: %s: structural diff of %s: %v", rec.ID, path, err)
			continue
		}
		outputs = append(outputs, outPath)
	}
	return outputs
}

// localizeHunks captures minimal-context git hunks for each changed
// file as a lightweight localization signal. Git's own changed-file
// list is preferred because it also covers files the patch added; the
// snapshot-derived list is the fallback when the range itself cannot
// be diffed.
func localizeHunks(ctx context.Context, cfg *config.Config, repo *gitrepo.Repo, refs advisory.RefPair, changed []string) []dataset.LocalizedHunk {
	paths, err := repo.DiffNameOnly(ctx, refs.Old, refs.New)
	if err != nil {
		log.Printf("pipeline: listing changed files: %v", err)
		paths = changed
	} else {
		paths = filterExtensions(paths, cfg.Pipeline.Extensions)
	}

	var hunks []dataset.LocalizedHunk
	for _, path := range paths {
		out, err := repo.DiffRangeFile(ctx, refs.Old, refs.New, path)
		if err != nil {
			log.Printf("pipeline: hunk localization of %s: %v", path, err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			continue
		}
		hunks = append(hunks, dataset.LocalizedHunk{File: path, Hunk: out})
	}
	return hunks
}

func filterExtensions(paths, extensions []string) []string {
	allow := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		allow[strings.ToLower(e)] = true
	}
	var kept []string
	for _, p := range paths {
		if allow[strings.ToLower(filepath.Ext(p))] {
			kept = append(kept, p)
		}
	}
	return kept
}

func mirrorToSQLite(outputRoot string, rows []dataset.Row) error {
	store, err := dataset.NewStore(filepath.Join(outputRoot, "patched_dataset.db"))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(rows)
}
