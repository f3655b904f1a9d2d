// Package advisory defines the input record model for the dataset
// builder and the logic that turns a raw record into a concrete pair of
// git refs to diff.
package advisory

import (
	"fmt"
	"regexp"
	"strings"
)

// Vulnerability is one affected-package entry inside an advisory.
type Vulnerability struct {
	Package                string `json:"package" yaml:"package"`
	VulnerableVersionRange string `json:"vulnerable_version_range" yaml:"vulnerable_version_range"`
	FirstPatchedVersion    string `json:"first_patched_version" yaml:"first_patched_version"`
}

// Record is one advisory to process. ID and RepoURL are mandatory;
// everything else is best-effort.
type Record struct {
	ID          string   `json:"ghsa_id" yaml:"ghsa_id"`
	Ecosystem   string   `json:"ecosystem" yaml:"ecosystem"`
	RepoURL     string   `json:"source_code_location" yaml:"source_code_location"`
	Description string   `json:"description" yaml:"description"`
	References  []string `json:"references" yaml:"references"`

	// Flat-form refs, as carried by the CSV input shape.
	VulnerableOld string `json:"vulnerable_version_old" yaml:"vulnerable_version_old"`
	VulnerableNew string `json:"vulnerable_version_new" yaml:"vulnerable_version_new"`
	PatchedOld    string `json:"patched_version_old" yaml:"patched_version_old"`
	PatchedNew    string `json:"patched_version_new" yaml:"patched_version_new"`

	// Nested-form vulnerability entries, as carried by the JSON/YAML
	// input shape.
	Vulnerabilities []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
}

// Validate reports whether the record carries enough data to be
// processed at all.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("advisory record has no id")
	}
	if strings.TrimSpace(r.RepoURL) == "" {
		return fmt.Errorf("advisory %s has no repository URL", r.ID)
	}
	return nil
}

// RepoName derives the repository directory name from the repo URL.
func (r *Record) RepoName() string {
	name := strings.TrimRight(r.RepoURL, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

var commitURLRe = regexp.MustCompile(`/commit/([0-9a-fA-F]{7,40})$`)

// CommitSHAs extracts commit SHAs from the advisory's reference URLs,
// in reference-list order. Only URLs of the form .../commit/<sha> count.
func (r *Record) CommitSHAs() []string {
	var shas []string
	for _, ref := range r.References {
		u := strings.TrimRight(ref, "/")
		if m := commitURLRe.FindStringSubmatch(u); m != nil {
			shas = append(shas, m[1])
		}
	}
	return shas
}

// RefPair is the resolved (old, new) pair of refs to diff, along with
// how each side was chosen.
type RefPair struct {
	Old       string
	New       string
	OldSource string // "commit-url", "declared", "range"
	NewSource string
}

// Refs selects the old/new refs for the record. Commit SHAs extracted
// from reference URLs win over declared versions; the first commit URL
// is taken as the patched (new) state and the second, when present, as
// the vulnerable (old) state. Declared refs fill whichever side is
// still missing. The reference-list ordering is not guaranteed to be
// chronological, so callers should record which source was used.
func (r *Record) Refs() RefPair {
	pair := RefPair{
		Old:       r.declaredOld(),
		New:       r.declaredNew(),
		OldSource: "declared",
		NewSource: "declared",
	}

	shas := r.CommitSHAs()
	if len(shas) >= 1 {
		pair.New = shas[0]
		pair.NewSource = "commit-url"
	}
	if len(shas) >= 2 {
		pair.Old = shas[1]
		pair.OldSource = "commit-url"
	}
	return pair
}

// declaredOld returns the vulnerable-side ref declared by the record,
// falling back to the nested vulnerability entries.
func (r *Record) declaredOld() string {
	if r.VulnerableOld != "" {
		return r.VulnerableOld
	}
	for _, v := range r.Vulnerabilities {
		if v.VulnerableVersionRange != "" {
			return v.VulnerableVersionRange
		}
	}
	return ""
}

// declaredNew returns the patched-side ref declared by the record,
// falling back to the nested vulnerability entries.
func (r *Record) declaredNew() string {
	if r.PatchedNew != "" {
		return r.PatchedNew
	}
	for _, v := range r.Vulnerabilities {
		if v.FirstPatchedVersion != "" {
			return v.FirstPatchedVersion
		}
	}
	return ""
}
