package quality

import (
	"fmt"
	"strings"
	"unicode"
)

// maxSnippetLength is the ceiling explicit-provenance snippets are
// truncated to, at a sentence boundary when one exists and a word
// boundary otherwise.
const maxSnippetLength = 500

// legacyEnumMap maps deprecated enum spellings encountered in older
// protocol extractions to their canonical values.
var legacyEnumMap = map[string]string{
	"doubleblind": "double_blind",
	"singleblind": "single_blind",
	"openlabel":   "open_label",
}

// lowercaseEnumFields names the fields post-processing forces to
// lowercase before validation, matching schema enums declared in
// lowercase snake_case.
var lowercaseEnumFields = map[string]bool{
	"blinding":     true,
	"allocation":   true,
	"phase":        true,
	"armType":      true,
	"criteriaType": true,
}

// Postprocess applies the deterministic auto-correction pipeline to
// data in place, in the fixed order the checker requires: snippet
// truncation, code auto-correction is left to the terminology
// resolver (which has the codelist context); this pass covers the
// purely structural fixes that don't need a codelist.
func Postprocess(data map[string]any) map[string]any {
	walkPostprocess(data)
	return data
}

func walkPostprocess(node any) {
	switch v := node.(type) {
	case map[string]any:
		for key, val := range v {
			switch inner := val.(type) {
			case string:
				if key == "snippet" {
					v[key] = truncateSnippet(inner)
				} else if lowercaseEnumFields[key] {
					v[key] = canonicalizeEnum(inner)
				}
			case map[string]any:
				walkPostprocess(inner)
			case []any:
				for _, item := range inner {
					walkPostprocess(item)
				}
			}
		}
		injectCodeSystemDefaults(v)
	case []any:
		for _, item := range v {
			walkPostprocess(item)
		}
	}
}

// truncateSnippet shortens s to maxSnippetLength, preferring to cut at
// the last sentence boundary and falling back to the last word
// boundary within the limit.
func truncateSnippet(s string) string {
	if len(s) <= maxSnippetLength {
		return s
	}
	window := s[:maxSnippetLength]

	if idx := strings.LastIndexAny(window, ".!?"); idx > 0 {
		return window[:idx+1]
	}
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx > 0 {
		return window[:idx]
	}
	return window
}

// canonicalizeEnum lowercases s and maps known legacy spellings to
// their canonical value.
func canonicalizeEnum(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := legacyEnumMap[lower]; ok {
		return canonical
	}
	return lower
}

// injectCodeSystemDefaults fills codeSystem/codeSystemVersion with
// deterministic defaults on any object that already carries a `code`
// and `decode` but is missing them.
func injectCodeSystemDefaults(obj map[string]any) {
	_, hasCode := obj["code"]
	_, hasDecode := obj["decode"]
	if !hasCode || !hasDecode {
		return
	}
	if _, ok := obj["codeSystem"]; !ok {
		obj["codeSystem"] = "NCI Thesaurus"
	}
	if _, ok := obj["codeSystemVersion"]; !ok {
		obj["codeSystemVersion"] = "unspecified"
	}
}

// SynthesizeID returns a deterministic id using prefix and a
// 1-indexed sequence number, e.g. SynthesizeID("SPEC", 1) -> "SPEC-001".
func SynthesizeID(prefix string, sequence int) string {
	return fmt.Sprintf("%s-%03d", prefix, sequence)
}
