package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// csvHeader is the dataset's column order.
var csvHeader = []string{
	"ghsa_id",
	"ecosystem",
	"repo_url",
	"source_code_location",
	"vulnerable_ref",
	"patched_ref",
	"vulnerable_ref_source",
	"patched_ref_source",
	"diff_strategy",
	"git_diff_path",
	"diff_paths",
	"ast_diff_paths",
	"localized_hunks",
	"prompts_dir",
}

// WriteCSV serializes all rows to path in input order. The list
// columns are JSON-encoded.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing dataset header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.AdvisoryID,
			row.Ecosystem,
			row.RepoURL,
			row.RepoDir,
			row.OldRef,
			row.NewRef,
			row.OldRefSource,
			row.NewRefSource,
			row.Strategy,
			row.FullDiffPath,
			encodeJSON(row.DiffPaths),
			encodeJSON(row.ASTDiffPaths),
			encodeJSON(row.LocalizedHunk),
			row.PromptsDir,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing dataset row %s: %w", row.AdvisoryID, err)
		}
	}

	w.Flush()
	return w.Error()
}
