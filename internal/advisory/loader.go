package advisory

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads advisory records from path. The format is chosen by file
// extension: .csv for the flat column shape, .yaml/.yml for the nested
// YAML shape, anything else is treated as nested JSON.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseCSV(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing JSON input: %w", err)
	}
	return records, nil
}

func parseYAML(data []byte) ([]Record, error) {
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing YAML input: %w", err)
	}
	return records, nil
}

// parseCSV reads the flat column shape. Column order is free; the
// header row names the fields. The references column, when present,
// holds a space-separated URL list.
func parseCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV input: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV input has no header row")
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []Record
	for _, row := range rows[1:] {
		rec := Record{
			ID:            field(row, "ghsa_id"),
			Ecosystem:     field(row, "ecosystem"),
			RepoURL:       field(row, "source_code_location"),
			Description:   field(row, "advisory_text"),
			VulnerableOld: field(row, "vulnerable_version_old"),
			VulnerableNew: field(row, "vulnerable_version_new"),
			PatchedOld:    field(row, "patched_version_old"),
			PatchedNew:    field(row, "patched_version_new"),
		}
		if rec.RepoURL == "" {
			rec.RepoURL = field(row, "repo_url")
		}
		if refs := field(row, "references"); refs != "" {
			rec.References = strings.Fields(refs)
		}
		records = append(records, rec)
	}
	return records, nil
}
