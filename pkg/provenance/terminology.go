package provenance

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Codelist is a controlled vocabulary: a decode and its accepted
// synonyms, keyed by code.
type Codelist struct {
	Name    string
	Entries map[string]CodelistEntry
}

// CodelistEntry is one controlled-vocabulary entry.
type CodelistEntry struct {
	Decode   string
	Synonyms []string
}

// matches reports whether decode (case-insensitively) matches e's
// decode or one of its synonyms.
func (e CodelistEntry) matches(decode string) bool {
	decode = strings.ToLower(strings.TrimSpace(decode))
	if strings.ToLower(e.Decode) == decode {
		return true
	}
	for _, syn := range e.Synonyms {
		if strings.ToLower(syn) == decode {
			return true
		}
	}
	return false
}

// PathCodelist infers the expected codelist name for the path of a
// {code, decode} pair, e.g. "studyPhase" -> "Trial Phase".
func PathCodelist(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "studyphase"):
		return "Trial Phase"
	case strings.Contains(lower, "arms") && strings.HasSuffix(lower, "type"):
		return "Arm Type"
	case strings.Contains(lower, "intervention") && strings.Contains(lower, "type"):
		return "Intervention Type"
	case strings.Contains(lower, "eligibilitycriteriaitem") || strings.Contains(lower, "criteriatype"):
		return "Criterion Type"
	case strings.Contains(lower, "endpointlevel"):
		return "Endpoint Level"
	case strings.Contains(lower, "timingtype"):
		return "Timing Type"
	case strings.Contains(lower, "encountertype"):
		return "Encounter Type"
	default:
		return "Unspecified"
	}
}

// TerminologyIssue describes one unresolved code/decode pair.
type TerminologyIssue struct {
	Path     string
	Code     string
	Decode   string
	Codelist string
}

// Validator resolves {code, decode} pairs against a registry of
// curated codelists. Terms that miss the curated map fall through to
// an LLM-inference tier supplied by the caller (batched, per §4.H);
// Validator itself only performs the deterministic tiers.
type Validator struct {
	codelists map[string]Codelist
}

// NewValidator builds a Validator over a registry of codelists keyed
// by codelist name (as returned by PathCodelist).
func NewValidator(codelists map[string]Codelist) *Validator {
	return &Validator{codelists: codelists}
}

// Validate recursively locates every {code, decode} pair in doc and
// reports the fraction that resolve against the curated codelists.
// Unresolved pairs are returned as issues for the caller to route
// through an LLM-inference fallback or surface for review.
func (v *Validator) Validate(doc []byte) (float64, []TerminologyIssue, error) {
	parsed := gjson.ParseBytes(doc)

	var total, resolved int
	var issues []TerminologyIssue

	var walk func(value gjson.Result, path string)
	walk = func(value gjson.Result, path string) {
		if !value.IsObject() && !value.IsArray() {
			return
		}

		if value.IsObject() {
			code := value.Get("code")
			decode := value.Get("decode")
			if code.Exists() && decode.Exists() {
				total++
				codelistName := PathCodelist(path)
				if v.resolve(codelistName, code.String(), decode.String()) {
					resolved++
				} else {
					issues = append(issues, TerminologyIssue{
						Path: path, Code: code.String(), Decode: decode.String(), Codelist: codelistName,
					})
				}
			}
		}

		value.ForEach(func(key, v gjson.Result) bool {
			childPath := key.String()
			if path != "" {
				childPath = path + "." + childPath
			}
			walk(v, childPath)
			return true
		})
	}
	walk(parsed, "")

	if total == 0 {
		return 1.0, nil, nil
	}
	return float64(resolved) / float64(total), issues, nil
}

func (v *Validator) resolve(codelistName, code, decode string) bool {
	list, ok := v.codelists[codelistName]
	if !ok {
		return false
	}
	entry, ok := list.Entries[code]
	if !ok {
		return false
	}
	return entry.matches(decode)
}
