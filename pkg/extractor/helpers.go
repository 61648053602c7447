package extractor

import (
	"fmt"
	"os"
	"strings"
)

func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if fmt.Sprint(b[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func formatFeedbackDigest(issues []string) string {
	if len(issues) == 0 {
		return ""
	}
	return strings.Join(issues, "\n")
}

// preserveIdentityFields copies any field named in fields from pass1
// into pass2 when pass2 is missing it.
func preserveIdentityFields(pass1, pass2 map[string]any, fields []string) map[string]any {
	if pass2 == nil {
		pass2 = map[string]any{}
	}
	for _, f := range fields {
		if _, ok := pass2[f]; ok {
			continue
		}
		if v, ok := pass1[f]; ok {
			pass2[f] = v
		}
	}
	return pass2
}

// enforceIdentityFields copies any field named in fields from
// reference into data when data is missing it. reference is nil on a
// pass-1 first attempt, where there is nothing to enforce yet.
func enforceIdentityFields(data, reference map[string]any, fields []string) map[string]any {
	if reference == nil {
		return data
	}
	return preserveIdentityFields(reference, data, fields)
}
