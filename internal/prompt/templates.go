// Package prompt renders the two fixed LLM prompt files per advisory.
// The files are pure output: nothing in the pipeline ever reads them
// back.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// maxStructuralRefs caps how many structural-diff files a localization
// prompt references.
const maxStructuralRefs = 5

// Vars holds the substitution values for both templates.
type Vars struct {
	AdvisoryID      string
	Description     string
	OldRef          string
	NewRef          string
	FullDiffPath    string
	StructuralPaths []string
}

var localizationTmpl = template.Must(template.New("localization").Parse(`XSS Patch Localization Task
Advisory: {{.AdvisoryID}}

We have a security advisory (CWE-79 - Cross-site Scripting) and diffs between
a vulnerable file and a patched file.
Your jobs (short answers):
1) Identify which changes are likely related to the vulnerability (for XSS:
   look for changes in output-escaping, unsanitized concatenation of user
   input to HTML, template calls, innerHTML, document.write, etc.).
2) For each suspicious change, produce a JSON list of hunks with: file_path,
   start_line_old, end_line_old, start_line_new, end_line_new, reason
   (1-2 sentences), code_snippet_old, code_snippet_new.
Be conservative: if unsure, mark "maybe" with rationale.
Respond with a single JSON array only.
{{- if .StructuralPaths}}

Structural diff outputs:
{{- range .StructuralPaths}}
STRUCTURAL_DIFF_FILE: {{.}}
{{- end}}
{{- end}}
`))

var fixCheckTmpl = template.Must(template.New("fixcheck").Parse(`Patch Verification Task
Advisory: {{.AdvisoryID}}

Given: (1) an advisory short description: {{.Description}}
(2) the vulnerable version ref: {{.OldRef}}
(3) the patched version ref: {{.NewRef}}
(4) the unified git diff between versions.
Answer in JSON with fields:
  - fixes_vulnerable_version: "yes" | "no" | "maybe"
  - confidence: 0-100
  - short_rationale: one or two sentences
  - remediation_notes: optional steps to verify (tests to run, inputs to fuzz, etc.)
Be precise and conservative with confidence.
{{- if .FullDiffPath}}

Attach unified git diff file: {{.FullDiffPath}}
{{- end}}
`))

// Write renders both prompt files into dir and returns their paths.
func Write(dir string, vars Vars) (locPath, fixPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating prompts dir: %w", err)
	}

	if len(vars.StructuralPaths) > maxStructuralRefs {
		vars.StructuralPaths = vars.StructuralPaths[:maxStructuralRefs]
	}

	locPath = filepath.Join(dir, "localization_prompt.txt")
	if err := render(localizationTmpl, locPath, vars); err != nil {
		return "", "", err
	}

	fixPath = filepath.Join(dir, "fix_check_prompt.txt")
	if err := render(fixCheckTmpl, fixPath, vars); err != nil {
		return "", "", err
	}
	return locPath, fixPath, nil
}

func render(tmpl *template.Template, path string, vars Vars) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating prompt file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, vars); err != nil {
		return fmt.Errorf("rendering %s: %w", tmpl.Name(), err)
	}
	return nil
}
