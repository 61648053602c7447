// Package provenance implements the provenance-coverage and
// terminology validators, plus the provenance text-search correction
// pass the combiner runs over the assembled document.
package provenance

import (
	"strings"

	"github.com/tidwall/gjson"
)

// CoverageResult reports provenance coverage for one document.
type CoverageResult struct {
	Covered  int
	Eligible int
}

// Ratio returns the covered/eligible fraction, or 1.0 when there are
// no eligible scalars (vacuously fully covered).
func (r CoverageResult) Ratio() float64 {
	if r.Eligible == 0 {
		return 1.0
	}
	return float64(r.Covered) / float64(r.Eligible)
}

// exemptFieldSet holds field names that never require their own
// provenance (identifiers, type tags, and the metadata block).
// Provenance records themselves are skipped by walkCoverage.
var exemptFieldSet = map[string]bool{
	"id": true, "instanceType": true, "_metadata": true,
}

// Coverage walks doc (a JSON document as raw bytes) and computes the
// fraction of eligible scalar leaves that carry a valid provenance:
// either their own `<key>Provenance` sibling, an inherited provenance
// from a `provenance` field on the owning object, or one inherited
// from an ancestor object. exemptFields adds module-specific field
// names (by leaf key) that should never be counted as eligible.
func Coverage(doc []byte, exemptFields []string) CoverageResult {
	exempt := map[string]bool{}
	for k, v := range exemptFieldSet {
		exempt[k] = v
	}
	for _, f := range exemptFields {
		exempt[f] = true
	}

	result := gjson.ParseBytes(doc)
	var res CoverageResult
	walkCoverage(result, exempt, false, &res)
	return res
}

func walkCoverage(value gjson.Result, exempt map[string]bool, ancestorHasProvenance bool, res *CoverageResult) {
	if !value.IsObject() && !value.IsArray() {
		return
	}

	hasOwnProvenance := value.Get("provenance").Exists()
	inherited := ancestorHasProvenance || hasOwnProvenance

	value.ForEach(func(key, v gjson.Result) bool {
		k := key.String()
		if k == "provenance" || strings.HasSuffix(k, "Provenance") {
			return true
		}

		if exempt[k] {
			return true
		}

		if v.IsObject() || v.IsArray() {
			walkCoverage(v, exempt, inherited, res)
			return true
		}

		res.Eligible++
		if inherited {
			res.Covered++
			return true
		}
		if value.Get(k + "Provenance").Exists() {
			res.Covered++
		}
		return true
	})
}
