package advisory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	rec := Record{ID: "GHSA-xxxx", RepoURL: "https://example.test/demo.git"}
	assert.NoError(t, rec.Validate())

	assert.Error(t, (&Record{RepoURL: "https://example.test/demo.git"}).Validate())
	assert.Error(t, (&Record{ID: "GHSA-xxxx"}).Validate())
	assert.Error(t, (&Record{ID: "GHSA-xxxx", RepoURL: "   "}).Validate())
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/org/repo.git", "repo"},
		{"https://github.com/org/repo", "repo"},
		{"https://github.com/org/repo/", "repo"},
	}
	for _, tt := range tests {
		rec := Record{RepoURL: tt.url}
		assert.Equal(t, tt.want, rec.RepoName(), tt.url)
	}
}

func TestCommitSHAs(t *testing.T) {
	rec := Record{
		References: []string{
			"https://github.com/org/repo/commit/abc1234def5678900000abc1234def5678900000",
			"https://github.com/org/repo/issues/42",
			"https://github.com/org/repo/commit/1234567/",
			"https://github.com/org/repo/commit/nothex",
		},
	}
	assert.Equal(t, []string{
		"abc1234def5678900000abc1234def5678900000",
		"1234567",
	}, rec.CommitSHAs())
}

func TestRefsPrefersCommitURLs(t *testing.T) {
	rec := Record{
		VulnerableOld: "v1.0.0",
		PatchedNew:    "v1.1.0",
		References: []string{
			"https://github.com/org/repo/commit/aaaaaaa",
			"https://github.com/org/repo/commit/bbbbbbb",
		},
	}
	pair := rec.Refs()
	assert.Equal(t, "aaaaaaa", pair.New)
	assert.Equal(t, "commit-url", pair.NewSource)
	assert.Equal(t, "bbbbbbb", pair.Old)
	assert.Equal(t, "commit-url", pair.OldSource)
}

func TestRefsFallsBackToDeclared(t *testing.T) {
	rec := Record{
		VulnerableOld: "v1.0.0",
		PatchedNew:    "v1.1.0",
	}
	pair := rec.Refs()
	assert.Equal(t, "v1.0.0", pair.Old)
	assert.Equal(t, "v1.1.0", pair.New)
	assert.Equal(t, "declared", pair.OldSource)
	assert.Equal(t, "declared", pair.NewSource)
}

func TestRefsSingleCommitURLKeepsDeclaredOld(t *testing.T) {
	rec := Record{
		VulnerableOld: "v1.0.0",
		References:    []string{"https://github.com/org/repo/commit/ccccccc"},
	}
	pair := rec.Refs()
	assert.Equal(t, "ccccccc", pair.New)
	assert.Equal(t, "v1.0.0", pair.Old)
	assert.Equal(t, "declared", pair.OldSource)
}

func TestRefsUsesNestedVulnerabilities(t *testing.T) {
	rec := Record{
		Vulnerabilities: []Vulnerability{
			{VulnerableVersionRange: "< 2.0.1", FirstPatchedVersion: "2.0.1"},
		},
	}
	pair := rec.Refs()
	assert.Equal(t, "< 2.0.1", pair.Old)
	assert.Equal(t, "2.0.1", pair.New)
}

func TestLoadJSON(t *testing.T) {
	content := `[
	  {
	    "ghsa_id": "GHSA-aaaa",
	    "ecosystem": "npm",
	    "source_code_location": "https://example.test/demo.git",
	    "description": "XSS in widget renderer",
	    "references": ["https://example.test/demo/commit/abcdef0"],
	    "vulnerabilities": [
	      {"vulnerable_version_range": "< 1.1.0", "first_patched_version": "1.1.0"}
	    ]
	  }
	]`
	path := filepath.Join(t.TempDir(), "advisories.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GHSA-aaaa", records[0].ID)
	assert.Equal(t, "npm", records[0].Ecosystem)
	assert.Equal(t, "< 1.1.0", records[0].Vulnerabilities[0].VulnerableVersionRange)
}

func TestLoadYAML(t *testing.T) {
	content := `
- ghsa_id: GHSA-bbbb
  ecosystem: pip
  source_code_location: https://example.test/demo.git
  vulnerabilities:
    - vulnerable_version_range: "< 0.5"
      first_patched_version: "0.5"
`
	path := filepath.Join(t.TempDir(), "advisories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GHSA-bbbb", records[0].ID)
	assert.Equal(t, "pip", records[0].Ecosystem)
}

func TestLoadCSV(t *testing.T) {
	content := `ghsa_id,ecosystem,source_code_location,vulnerable_version_old,patched_version_new,advisory_text
GHSA-cccc,npm,https://example.test/demo.git,v1.0,v1.1,stored XSS
GHSA-dddd,npm,,v1.0,v1.1,no repo url
`
	path := filepath.Join(t.TempDir(), "advisories.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "GHSA-cccc", records[0].ID)
	assert.Equal(t, "v1.0", records[0].VulnerableOld)
	assert.Equal(t, "v1.1", records[0].PatchedNew)
	assert.Equal(t, "stored XSS", records[0].Description)
	assert.Error(t, records[1].Validate())
}

func TestLoadUnreadableInput(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestIsVersionRange(t *testing.T) {
	assert.True(t, IsVersionRange("< 1.2.3"))
	assert.True(t, IsVersionRange(">=1.0.0, <2.0.0"))
	assert.True(t, IsVersionRange("^1.0"))
	assert.False(t, IsVersionRange("v1.2.3"))
	assert.False(t, IsVersionRange("abc1234"))
	assert.False(t, IsVersionRange(""))
}

func TestResolveRange(t *testing.T) {
	tags := []string{"v1.0.0", "v1.1.0", "v1.2.0", "v2.0.0", "not-a-version"}

	got, err := ResolveRange("< 2.0.0", tags)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", got)

	got, err = ResolveRange(">= 1.0.0, < 1.2.0", tags)
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", got)

	_, err = ResolveRange("> 9.0.0", tags)
	assert.Error(t, err)

	_, err = ResolveRange("< 1.0.0", []string{"junk"})
	assert.Error(t, err)

	_, err = ResolveRange("< 1.0.0", nil)
	assert.Error(t, err)
}
