package soa

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/models"
)

// pairDecision is one pairwise evaluation from the 8-level analyzer.
// Level 1 is the strongest merge signal; levels 7-8 never merge, and
// AnalyzeMerges discards their decisions.
type pairDecision struct {
	level      int
	mergeType  string
	confidence float64
	reasoning  string
	merges     bool
}

// classifyPair runs every level in order and returns the first (lowest
// level number, i.e. strongest) decision that applies.
func classifyPair(a, b *ent.TableResult) pairDecision {
	levels := []func(a, b *ent.TableResult) (pairDecision, bool){
		level1IdenticalHeaders,
		level2ContiguousSameCategory,
		level3VisitNameOverlap,
		level4NearPagesSameCategory,
		level5CrossCategoryPageOverlap,
		level6SharedActivityInstances,
		level7SameCategoryDistant,
		level8Unrelated,
	}
	for _, f := range levels {
		if d, ok := f(a, b); ok {
			return d
		}
	}
	return pairDecision{level: 8, mergeType: "unrelated", confidence: 0.0, reasoning: "no shared signal", merges: false}
}

func headerSignature(tr *ent.TableResult) string {
	headers := append([]string(nil), tr.ColumnHeaders...)
	sort.Strings(headers)
	return strings.Join(headers, "|")
}

func level1IdenticalHeaders(a, b *ent.TableResult) (pairDecision, bool) {
	if a.Category == "" || a.Category != b.Category {
		return pairDecision{}, false
	}
	ha, hb := headerSignature(a), headerSignature(b)
	if ha == "" || ha != hb {
		return pairDecision{}, false
	}
	return pairDecision{1, "exact_header_match", 0.98, "identical category and column headers", true}, true
}

func level2ContiguousSameCategory(a, b *ent.TableResult) (pairDecision, bool) {
	if a.Category == "" || a.Category != b.Category {
		return pairDecision{}, false
	}
	if b.PageStart-a.PageEnd != 1 && a.PageStart-b.PageEnd != 1 {
		return pairDecision{}, false
	}
	return pairDecision{2, "contiguous_pages", 0.92, "same category, directly adjacent page ranges", true}, true
}

func visitNames(tr *ent.TableResult) map[string]bool {
	out := map[string]bool{}
	if tr.OutputPayload == nil {
		return out
	}
	visits, _ := tr.OutputPayload["visits"].([]any)
	for _, v := range visits {
		m, _ := v.(map[string]any)
		if m == nil {
			continue
		}
		if name, _ := m["name"].(string); name != "" {
			out[name] = true
		}
	}
	return out
}

func level3VisitNameOverlap(a, b *ent.TableResult) (pairDecision, bool) {
	if a.Category != b.Category {
		return pairDecision{}, false
	}
	va, vb := visitNames(a), visitNames(b)
	shared := 0
	for name := range va {
		if vb[name] {
			shared++
		}
	}
	if shared == 0 {
		return pairDecision{}, false
	}
	return pairDecision{3, "visit_overlap", 0.85, fmt.Sprintf("%d shared visit name(s) across tables", shared), true}, true
}

func level4NearPagesSameCategory(a, b *ent.TableResult) (pairDecision, bool) {
	if a.Category != b.Category {
		return pairDecision{}, false
	}
	gap := b.PageStart - a.PageEnd
	if gap < 0 {
		gap = a.PageStart - b.PageEnd
	}
	if gap < 2 || gap > 2 {
		return pairDecision{}, false
	}
	return pairDecision{4, "near_pages", 0.75, "same category, within a two-page gap", true}, true
}

func level5CrossCategoryPageOverlap(a, b *ent.TableResult) (pairDecision, bool) {
	overlap := a.PageStart <= b.PageEnd && b.PageStart <= a.PageEnd
	if !overlap {
		return pairDecision{}, false
	}
	return pairDecision{5, "page_overlap_cross_category", 0.65, "overlapping page ranges across different categories", true}, true
}

func activityInstanceIDs(tr *ent.TableResult) map[string]bool {
	out := map[string]bool{}
	if tr.OutputPayload == nil {
		return out
	}
	instances, _ := tr.OutputPayload["activityInstances"].([]any)
	for _, v := range instances {
		m, _ := v.(map[string]any)
		if m == nil {
			continue
		}
		if id, _ := m["id"].(string); id != "" {
			out[id] = true
		}
	}
	return out
}

func level6SharedActivityInstances(a, b *ent.TableResult) (pairDecision, bool) {
	ia, ib := activityInstanceIDs(a), activityInstanceIDs(b)
	shared := 0
	for id := range ia {
		if ib[id] {
			shared++
		}
	}
	if shared == 0 {
		return pairDecision{}, false
	}
	return pairDecision{6, "shared_activity_instances", 0.55, fmt.Sprintf("%d shared activity instance id(s)", shared), true}, true
}

func level7SameCategoryDistant(a, b *ent.TableResult) (pairDecision, bool) {
	if a.Category == "" || a.Category != b.Category {
		return pairDecision{}, false
	}
	return pairDecision{7, "same_category_distant", 0.40, "same category but no page or content adjacency", false}, true
}

func level8Unrelated(a, b *ent.TableResult) (pairDecision, bool) {
	return pairDecision{8, "unrelated", 0.0, "different category, no adjacency", false}, true
}

// unionFind is a minimal disjoint-set over table result ids, used to
// collapse pairwise merge decisions into connected groups.
type unionFind struct{ parent map[string]string }

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{parent: make(map[string]string, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	for uf.parent[id] != id {
		uf.parent[id] = uf.parent[uf.parent[id]]
		id = uf.parent[id]
	}
	return id
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// AnalyzeMerges runs the 8-level deterministic analyzer over every
// table detected for a job and proposes an ordered list of merge
// groups. Tables that merge are unioned into one group carrying the
// strongest (lowest-level) pairwise reason found; tables with no
// merge partner become their own single-table group.
func AnalyzeMerges(tables []*ent.TableResult) []models.MergeGroup {
	sorted := append([]*ent.TableResult(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PageStart < sorted[j].PageStart })

	ids := make([]string, len(sorted))
	byID := make(map[string]*ent.TableResult, len(sorted))
	for i, t := range sorted {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	uf := newUnionFind(ids)
	best := make(map[string]pairDecision) // group root -> strongest decision seen
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			d := classifyPair(sorted[i], sorted[j])
			if !d.merges {
				continue
			}
			ri, rj := uf.find(sorted[i].ID), uf.find(sorted[j].ID)
			uf.union(sorted[i].ID, sorted[j].ID)
			root := uf.find(sorted[i].ID)
			// Carry the decisions of the roots that were just joined over
			// to the new root, so no group loses its strongest reason.
			for _, prev := range []string{ri, rj} {
				if pd, ok := best[prev]; ok && prev != root {
					if cur, ok := best[root]; !ok || pd.level < cur.level {
						best[root] = pd
					}
					delete(best, prev)
				}
			}
			if cur, ok := best[root]; !ok || d.level < cur.level {
				best[root] = d
			}
		}
	}

	groups := make(map[string][]string)
	for _, id := range ids {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return byID[groups[roots[i]][0]].PageStart < byID[groups[roots[j]][0]].PageStart
	})

	out := make([]models.MergeGroup, 0, len(roots))
	for i, root := range roots {
		memberIDs := groups[root]
		sort.Strings(memberIDs)

		mg := models.MergeGroup{
			GroupLabel:     fmt.Sprintf("MERGE-%d", i+1),
			TableResultIDs: memberIDs,
		}
		if d, ok := best[root]; ok {
			mg.MergeType = d.mergeType
			mg.DecisionLevel = d.level
			mg.Confidence = d.confidence
			mg.Reasoning = d.reasoning
		} else {
			mg.MergeType = "standalone"
			mg.DecisionLevel = 8
			mg.Confidence = 1.0
			mg.Reasoning = "no related table detected"
		}
		out = append(out, mg)
	}
	return out
}
