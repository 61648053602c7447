package extractor

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// renderPrompt loads the template file at path and executes it against
// vars, matching the doc-heavy string templating idiom the reference
// toolchain uses for prompt construction.
func renderPrompt(path string, vars map[string]any) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template %s: %w", path, err)
	}

	tmpl, err := template.New(path).Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parse prompt template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt template %s: %w", path, err)
	}
	return buf.String(), nil
}
