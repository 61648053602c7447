package masking

import (
	"regexp"
	"strings"
)

// DirectIdentifierMasker masks labeled direct-identifier fields —
// medical record numbers, dates of birth, and patient/subject names —
// that occasionally appear in a protocol's free-text sections (site
// contact blocks, amendment sign-off pages) even though the extraction
// modules themselves target study-level data.
type DirectIdentifierMasker struct{}

// Name returns the unique identifier for this masker.
func (m *DirectIdentifierMasker) Name() string { return "direct_identifier" }

var directIdentifierLabels = regexp.MustCompile(`(?i)\b(mrn|dob|date of birth|patient name|subject name)\b\s*[:#]`)

// AppliesTo performs a lightweight check on whether this masker should
// process the data.
func (m *DirectIdentifierMasker) AppliesTo(data string) bool {
	return directIdentifierLabels.MatchString(data)
}

var labeledValue = regexp.MustCompile(`(?im)\b(mrn|dob|date of birth|patient name|subject name)\b(\s*[:#]\s*)([^\n,;]+)`)

// Mask replaces the value following a direct-identifier label with a
// redaction marker, leaving the label itself intact for readability.
func (m *DirectIdentifierMasker) Mask(data string) string {
	return labeledValue.ReplaceAllStringFunc(data, func(match string) string {
		parts := labeledValue.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		return parts[1] + parts[2] + "[MASKED_" + strings.ToUpper(strings.ReplaceAll(parts[1], " ", "_")) + "]"
	})
}
