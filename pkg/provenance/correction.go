package provenance

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Corrector rewrites explicit provenance page numbers to the physical
// page a snippet is actually found on, and detects the document-wide
// printed-vs-physical page offset.
type Corrector struct {
	// pages holds the plain text of every physical page, 0-indexed.
	pages []string
}

// NewCorrector builds a Corrector over the extracted page texts of a
// source document, in physical page order.
func NewCorrector(pages []string) *Corrector {
	return &Corrector{pages: pages}
}

// DetectPageOffset estimates the printed-vs-physical offset by
// matching a numeric header/footer token against the physical index
// it appears at. Returns 0 if no consistent offset can be inferred.
func (c *Corrector) DetectPageOffset() int {
	numberLine := regexp.MustCompile(`(?m)^\s*(\d{1,4})\s*$`)

	votes := map[int]int{}
	for i, page := range c.pages {
		lines := strings.Split(page, "\n")
		candidates := lines
		if len(lines) > 4 {
			candidates = append(append([]string{}, lines[:2]...), lines[len(lines)-2:]...)
		}
		for _, line := range candidates {
			m := numberLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			printed, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			offset := (i + 1) - printed
			votes[offset]++
		}
	}

	best, bestCount := 0, 0
	for offset, count := range votes {
		if count > bestCount {
			best, bestCount = offset, count
		}
	}
	return best
}

// FindPhysicalPage searches c.pages for snippet and returns the
// physical page (1-indexed) it is found on, or 0 if not found.
func (c *Corrector) FindPhysicalPage(snippet string) int {
	needle := strings.TrimSpace(snippet)
	if needle == "" {
		return 0
	}
	for i, page := range c.pages {
		if strings.Contains(page, needle) {
			return i + 1
		}
	}
	return 0
}

// CorrectDocument walks doc's explicit provenance records, overwrites
// each page field with the physical page FindPhysicalPage resolves
// the snippet to (leaving the page unchanged if the snippet cannot be
// located), and returns the corrected document.
func (c *Corrector) CorrectDocument(doc []byte) ([]byte, error) {
	result := string(doc)

	parsed := gjson.ParseBytes(doc)
	paths := collectProvenancePaths(parsed, "")

	for _, p := range paths {
		node := gjson.GetBytes(doc, p)
		snippet := node.Get("snippet").String()
		if snippet == "" {
			continue
		}
		page := c.FindPhysicalPage(snippet)
		if page == 0 {
			continue
		}
		var err error
		result, err = sjson.Set(result, p+".page", page)
		if err != nil {
			return nil, err
		}
	}

	return []byte(result), nil
}

func collectProvenancePaths(value gjson.Result, prefix string) []string {
	var paths []string
	if !value.IsObject() && !value.IsArray() {
		return paths
	}

	value.ForEach(func(key, v gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		lastSegment := path
		if idx := strings.LastIndex(path, "."); idx >= 0 {
			lastSegment = path[idx+1:]
		}
		isProvenanceField := lastSegment == "provenance" || strings.HasSuffix(lastSegment, "Provenance")
		if path != "" && isProvenanceField && v.Get("kind").String() == "explicit" {
			paths = append(paths, path)
		}
		paths = append(paths, collectProvenancePaths(v, path)...)
		return true
	})
	return paths
}
