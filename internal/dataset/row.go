// Package dataset aggregates per-advisory results and serializes the
// final table as CSV, with an optional SQLite mirror.
package dataset

import "encoding/json"

// Row is the aggregated record for one successfully processed
// advisory. It carries only paths and metadata, never artifact
// contents.
type Row struct {
	AdvisoryID    string
	Ecosystem     string
	RepoURL       string
	RepoDir       string
	OldRef        string
	NewRef        string
	OldRefSource  string
	NewRefSource  string
	Strategy      string
	FullDiffPath  string
	DiffPaths     []string
	ASTDiffPaths  []string
	LocalizedHunk []LocalizedHunk
	PromptsDir    string
}

// LocalizedHunk pairs a changed file with its minimal-context diff
// hunks, used as a lightweight localization signal.
type LocalizedHunk struct {
	File string `json:"file"`
	Hunk string `json:"git_hunk"`
}

// encodeJSON renders a value as a compact JSON string for a list
// column in the CSV. A nil or empty value encodes as an empty array,
// never as the string "null".
func encodeJSON(v any) string {
	switch vv := v.(type) {
	case []string:
		if vv == nil {
			v = []string{}
		}
	case []LocalizedHunk:
		if vv == nil {
			v = []LocalizedHunk{}
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
