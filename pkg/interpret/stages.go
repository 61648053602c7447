package interpret

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/protocolx/pkg/llm"
)

// curatedDomains is the stage-1 curated map consulted before any LLM
// call.
var curatedDomains = map[string]domainMapping{
	"informed consent":          {Category: "Administrative", CDASHDomain: "DS"},
	"vital signs":               {Category: "Safety", CDASHDomain: "VS"},
	"electrocardiogram":         {Category: "Safety", CDASHDomain: "EG"},
	"ecg":                       {Category: "Safety", CDASHDomain: "EG"},
	"physical examination":      {Category: "Safety", CDASHDomain: "PE"},
	"adverse event assessment":  {Category: "Safety", CDASHDomain: "AE"},
	"laboratory tests":          {Category: "Safety", CDASHDomain: "LB"},
	"concomitant medications":   {Category: "Safety", CDASHDomain: "CM"},
	"study drug administration": {Category: "Treatment", CDASHDomain: "EX"},
	"randomization":              {Category: "Administrative", CDASHDomain: "DM"},
}

func normalizeActivityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// domainCategorization is stage 1.
func domainCategorization(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	activities := asSlice(doc, "activities")
	var uncoded []map[string]any

	for _, raw := range activities {
		a := asMap(raw)
		if a["category"] != nil {
			continue
		}
		name := normalizeActivityName(asString(a["name"]))
		if mapping, ok := curatedDomains[name]; ok {
			applyDomainMapping(a, mapping)
			continue
		}
		if mapping, ok := pl.domainMemo.get(name); ok {
			applyDomainMapping(a, mapping)
			continue
		}
		uncoded = append(uncoded, a)
	}

	if len(uncoded) == 0 {
		return doc, StageResult{Status: StatusOK}
	}

	if pl.llmClient == nil {
		for _, a := range uncoded {
			a["category"] = "uncategorized"
			addReviewItem(doc, ReviewItem{Stage: "domain_categorization", Path: fmt.Sprintf("activities[%s]", a["id"]), Reason: "no LLM configured to classify activity"})
		}
		return doc, StageResult{Status: StatusWarning, Message: fmt.Sprintf("%d activities left uncategorized, no LLM configured", len(uncoded))}
	}

	names := make([]string, len(uncoded))
	for i, a := range uncoded {
		names[i] = asString(a["name"])
	}
	mappings, err := pl.batchClassifyDomains(ctx, names)
	if err != nil {
		return doc, StageResult{Status: StatusWarning, Message: fmt.Sprintf("domain classification batch failed: %v", err)}
	}

	for i, a := range uncoded {
		mapping := mappings[i]
		applyDomainMapping(a, mapping)
		pl.domainMemo.set(normalizeActivityName(asString(a["name"])), mapping)
	}

	return doc, StageResult{Status: StatusOK}
}

func applyDomainMapping(a map[string]any, m domainMapping) {
	a["category"] = m.Category
	a["cdashDomain"] = m.CDASHDomain
	if m.BiomedicalConcept != nil {
		a["biomedicalConcept"] = m.BiomedicalConcept
	}
}

// batchClassifyDomains sends every still-uncoded activity name in a
// single prompt.
func (p *Pipeline) batchClassifyDomains(ctx context.Context, names []string) ([]domainMapping, error) {
	prompt := fmt.Sprintf("Classify each clinical trial activity into a CDASH domain. Return a JSON array, one object per input name in order, each with \"category\" and \"cdashDomain\" string fields. Activities: %s", strings.Join(names, "; "))

	resp, err := p.llmClient.Generate(ctx, p.cfg.LLMChain, llm.GenerateRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	decoded, err := decodeJSONArray(resp.Text)
	if err != nil {
		return nil, err
	}
	if len(decoded) != len(names) {
		return nil, fmt.Errorf("domain classification returned %d results for %d activities", len(decoded), len(names))
	}

	out := make([]domainMapping, len(names))
	for i, d := range decoded {
		out[i] = domainMapping{Category: asString(d["category"]), CDASHDomain: asString(d["cdashDomain"])}
	}
	return out, nil
}

// activityComponentExpansion is stage 2.
func activityComponentExpansion(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	activities := asSlice(doc, "activities")
	var expanded []any

	for _, raw := range activities {
		a := asMap(raw)
		expanded = append(expanded, raw)
		components := asSlice(a, "components")
		if len(components) == 0 {
			continue
		}

		classifications, err := pl.classifyComponents(ctx, asString(a["name"]), components)
		if err != nil {
			addReviewItem(doc, ReviewItem{Stage: "activity_component_expansion", Path: fmt.Sprintf("activities[%s]", a["id"]), Reason: err.Error()})
			continue
		}

		for i, comp := range components {
			c := asMap(comp)
			cls := classifications[i]
			switch cls.Classification {
			case "valid":
				child := map[string]any{
					"id":       fmt.Sprintf("%s-component-%d", a["id"], i),
					"name":     c["name"],
					"parentId": a["id"],
				}
				expanded = append(expanded, child)
			case "review":
				addReviewItem(doc, ReviewItem{Stage: "activity_component_expansion", Path: fmt.Sprintf("activities[%s].components[%d]", a["id"], i), Reason: "component validity uncertain", Confidence: cls.Confidence})
			}
		}
	}

	doc["activities"] = expanded
	return doc, StageResult{Status: StatusOK}
}

type componentClassification struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

func (p *Pipeline) classifyComponents(ctx context.Context, parentName string, components []any) ([]componentClassification, error) {
	if p.llmClient == nil {
		out := make([]componentClassification, len(components))
		for i := range out {
			out[i] = componentClassification{Classification: "review", Confidence: 0}
		}
		return out, nil
	}

	names := make([]string, len(components))
	for i, c := range components {
		names[i] = asString(asMap(c)["name"])
	}
	prompt := fmt.Sprintf("For parent activity %q, classify each candidate sub-component as \"valid\", \"invalid\", or \"review\" with a confidence in [0,1]. Return a JSON array in order. Components: %s", parentName, strings.Join(names, "; "))

	resp, err := p.llmClient.Generate(ctx, p.cfg.LLMChain, llm.GenerateRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	decoded, err := decodeJSONArray(resp.Text)
	if err != nil {
		return nil, err
	}
	if len(decoded) != len(components) {
		return nil, fmt.Errorf("component classification returned %d results for %d components", len(decoded), len(components))
	}

	out := make([]componentClassification, len(components))
	for i, d := range decoded {
		conf, _ := d["confidence"].(float64)
		out[i] = componentClassification{Classification: asString(d["classification"]), Confidence: conf}
	}
	return out, nil
}

// hierarchyBuilding is stage 3: compute
// parent/child edges across activities by domain.
func hierarchyBuilding(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	activities := asSlice(doc, "activities")
	byDomain := make(map[string][]string)

	for _, raw := range activities {
		a := asMap(raw)
		domain := asString(a["cdashDomain"])
		id := asString(a["id"])
		if domain == "" || id == "" {
			continue
		}
		byDomain[domain] = append(byDomain[domain], id)
	}

	hierarchy := make(map[string]any, len(byDomain))
	for domain, ids := range byDomain {
		hierarchy[domain] = ids
	}
	doc["domainHierarchy"] = hierarchy
	return doc, StageResult{Status: StatusOK}
}

var alternativePattern = regexp.MustCompile(`(?i)\s+or\s+`)

// alternativeResolution is stage 4: turn
// "X or Y" choice points into explicit alternatives with linked
// conditions.
func alternativeResolution(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	activities := asSlice(doc, "activities")
	var alternatives []any

	for _, raw := range activities {
		a := asMap(raw)
		name := asString(a["name"])
		parts := alternativePattern.Split(name, -1)
		if len(parts) < 2 {
			continue
		}

		conditionID := fmt.Sprintf("%s-alt-condition", a["id"])
		for i, part := range parts {
			alternatives = append(alternatives, map[string]any{
				"id":          fmt.Sprintf("%s-alt-%d", a["id"], i),
				"activityId":  a["id"],
				"label":       strings.TrimSpace(part),
				"conditionId": conditionID,
			})
		}
	}

	doc["alternatives"] = alternatives
	return doc, StageResult{Status: StatusOK}
}

var specimenPatterns = []struct {
	match   *regexp.Regexp
	tube    string
	volume  string
	purpose string
}{
	{regexp.MustCompile(`(?i)pk\s*sample|pharmacokinetic`), "lavender", "4mL", "pharmacokinetics"},
	{regexp.MustCompile(`(?i)blood\s*draw|hematology`), "lavender", "3mL", "hematology"},
	{regexp.MustCompile(`(?i)serum|chemistry`), "gold", "5mL", "chemistry"},
	{regexp.MustCompile(`(?i)urine`), "cup", "30mL", "urinalysis"},
}

// specimenEnrichment is stage 5: attach
// tube/volume/purpose metadata to specimen-domain activities using a
// confidence-thresholded decision and a pattern registry.
func specimenEnrichment(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	activities := asSlice(doc, "activities")

	for _, raw := range activities {
		a := asMap(raw)
		if asString(a["cdashDomain"]) != "LB" && asString(a["cdashDomain"]) != "PK" {
			continue
		}
		name := asString(a["name"])

		var confidence float64
		var matched *specimenMatch
		for _, pat := range specimenPatterns {
			if pat.match.MatchString(name) {
				confidence = 0.95
				matched = &specimenMatch{tube: pat.tube, volume: pat.volume, purpose: pat.purpose}
				break
			}
		}
		if matched == nil {
			confidence = 0.4
		}

		switch pl.decision(confidence) {
		case "auto_apply":
			a["specimen"] = map[string]any{"tube": matched.tube, "volume": matched.volume, "purpose": matched.purpose}
		case "review":
			if matched != nil {
				a["specimen"] = map[string]any{"tube": matched.tube, "volume": matched.volume, "purpose": matched.purpose}
			}
			addReviewItem(doc, ReviewItem{Stage: "specimen_enrichment", Path: fmt.Sprintf("activities[%s]", a["id"]), Reason: "specimen metadata below auto-apply confidence", Confidence: confidence})
		default:
			addReviewItem(doc, ReviewItem{Stage: "specimen_enrichment", Path: fmt.Sprintf("activities[%s]", a["id"]), Reason: "no specimen pattern match", Confidence: confidence})
		}
	}

	return doc, StageResult{Status: StatusOK}
}

type specimenMatch struct {
	tube, volume, purpose string
}

// conditionalExpansion is stage 6: materialize
// conditions from footnotes, creating Condition objects and
// ConditionAssignment links; also clears the "_hasFootnoteCondition"
// scratch flag a prior pipeline run's stage 7 left on instances, so a
// restarted run recomputes it cleanly.
func conditionalExpansion(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	instances := asSlice(doc, "instances")
	var conditions []any
	var assignments []any

	for _, raw := range instances {
		inst := asMap(raw)
		delete(inst, "_hasFootnoteCondition")

		ref := asString(inst["footnoteRef"])
		if ref == "" {
			continue
		}
		conditionID := fmt.Sprintf("condition-%s", ref)
		conditions = append(conditions, map[string]any{"id": conditionID, "footnoteRef": ref})
		assignments = append(assignments, map[string]any{"conditionId": conditionID, "instanceId": inst["id"]})
	}

	doc["conditions"] = conditions
	doc["conditionAssignments"] = assignments
	return doc, StageResult{Status: StatusOK}
}

var compoundTimingSplit = regexp.MustCompile(`\s*(?:/|,)\s*`)

// timingDistribution is stage 7: expand
// compound timings into atomic timings by duplicating the owning
// instance, preserving footnote markers, with instance ids
// "<orig>-<timing>".
func timingDistribution(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	instances := asSlice(doc, "instances")
	var expanded []any

	for _, raw := range instances {
		inst := asMap(raw)
		timing := asString(inst["timing"])
		parts := compoundTimingSplit.Split(timing, -1)
		if len(parts) <= 1 {
			expanded = append(expanded, raw)
			continue
		}

		for _, t := range parts {
			clone := make(map[string]any, len(inst))
			for k, v := range inst {
				clone[k] = v
			}
			clone["timing"] = strings.TrimSpace(t)
			clone["id"] = fmt.Sprintf("%s-%s", inst["id"], strings.TrimSpace(t))
			clone["_hasFootnoteCondition"] = inst["footnoteRef"] != nil && inst["footnoteRef"] != ""
			expanded = append(expanded, clone)
		}
	}

	doc["instances"] = expanded
	return doc, StageResult{Status: StatusOK}
}

// cycleExpansion is stage 8: materialize
// encounters that recur per cycle into explicit per-cycle encounters,
// duplicating referencing instances; event-driven recurrence is
// flagged for review rather than expanded.
func cycleExpansion(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	encounters := asSlice(doc, "encounters")
	instances := asSlice(doc, "instances")

	var expandedEncounters []any
	expandedEncounterIDs := make(map[string]bool)
	instancesByEncounter := make(map[string][]map[string]any)
	for _, raw := range instances {
		inst := asMap(raw)
		encID := asString(inst["encounterId"])
		instancesByEncounter[encID] = append(instancesByEncounter[encID], inst)
	}

	var cycleInstances []any
	for _, raw := range encounters {
		enc := asMap(raw)
		recurrence := asString(enc["recurrence"])

		switch recurrence {
		case "PER_CYCLE", "FIXED_INTERVAL":
			expandedEncounterIDs[asString(enc["id"])] = true
			cycles, _ := enc["cycles"].(float64)
			if cycles < 1 {
				cycles = 1
			}
			for c := 1; c <= int(cycles); c++ {
				cycleEnc := map[string]any{
					"id":          fmt.Sprintf("%s-cycle-%d", enc["id"], c),
					"name":        enc["name"],
					"cycleNumber": c,
				}
				expandedEncounters = append(expandedEncounters, cycleEnc)

				for _, inst := range instancesByEncounter[asString(enc["id"])] {
					clone := make(map[string]any, len(inst))
					for k, v := range inst {
						clone[k] = v
					}
					clone["id"] = fmt.Sprintf("%s-cycle-%d", inst["id"], c)
					clone["encounterId"] = cycleEnc["id"]
					cycleInstances = append(cycleInstances, clone)
				}
			}
		case "AT_EVENT":
			expandedEncounters = append(expandedEncounters, raw)
			addReviewItem(doc, ReviewItem{Stage: "cycle_expansion", Path: fmt.Sprintf("encounters[%s]", enc["id"]), Reason: "event-driven recurrence requires human scheduling"})
		default:
			expandedEncounters = append(expandedEncounters, raw)
		}
	}

	// The base encounter a PER_CYCLE/FIXED_INTERVAL encounter expanded
	// from is replaced, not kept alongside its per-cycle children, so
	// any instance still pointing at it must be dropped in favor of its
	// per-cycle duplicates rather than left dangling.
	remaining := make([]any, 0, len(instances))
	for _, raw := range instances {
		inst := asMap(raw)
		if !expandedEncounterIDs[asString(inst["encounterId"])] {
			remaining = append(remaining, raw)
		}
	}

	doc["encounters"] = expandedEncounters
	doc["instances"] = append(remaining, cycleInstances...)
	return doc, StageResult{Status: StatusOK}
}

// protocolMining is stage 9: cross-reference
// non-table protocol sections to enrich activity data with a source
// section reference wherever the activity name is mentioned verbatim.
func protocolMining(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	sections := asSlice(doc, "protocolSections")
	activities := asSlice(doc, "activities")

	for _, raw := range activities {
		a := asMap(raw)
		name := strings.ToLower(asString(a["name"]))
		if name == "" {
			continue
		}

		var matches []string
		for _, s := range sections {
			sec := asMap(s)
			if strings.Contains(strings.ToLower(asString(sec["text"])), name) {
				matches = append(matches, asString(sec["id"]))
			}
		}
		if len(matches) > 0 {
			a["sourceSections"] = matches
		}
	}

	return doc, StageResult{Status: StatusOK}
}

// humanReviewAssembly is stage 10: collect
// every item flagged review into a single package.
func humanReviewAssembly(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	items := asSlice(doc, "_reviewItems")
	doc["humanReview"] = map[string]any{
		"items": items,
		"count": len(items),
	}
	return doc, StageResult{Status: StatusOK}
}

// scheduleGeneration is stage 11: assemble the final schedule from the
// expanded encounters and instances. Confirmed human decisions
// (caller-supplied, keyed by review path) are counted into
// appliedDecisions; their contents are not applied to the schedule.
func scheduleGeneration(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	decisions := asMap(doc["humanReviewDecisions"])

	doc["schedule"] = map[string]any{
		"encounters":       doc["encounters"],
		"instances":        doc["instances"],
		"appliedDecisions": len(decisions),
	}
	return doc, StageResult{Status: StatusOK}
}

// complianceCheck is stage 12: enforce referential integrity of every
// instance's activity and encounter ids (an unknown id is an error), and
// report code objects missing required fields as warnings. Provenance
// is not checked.
func complianceCheck(ctx context.Context, doc Document, pl *Pipeline) (Document, StageResult) {
	activityIDs := make(map[string]bool)
	for _, raw := range asSlice(doc, "activities") {
		activityIDs[asString(asMap(raw)["id"])] = true
	}
	encounterIDs := make(map[string]bool)
	for _, raw := range asSlice(doc, "encounters") {
		encounterIDs[asString(asMap(raw)["id"])] = true
	}

	var warnings []string
	for _, raw := range asSlice(doc, "instances") {
		inst := asMap(raw)
		if aid := asString(inst["activityId"]); aid != "" && !activityIDs[aid] {
			return doc, StageResult{Status: StatusError, Message: fmt.Sprintf("instance %s references unknown activityId %s", inst["id"], aid)}
		}
		if eid := asString(inst["encounterId"]); eid != "" && !encounterIDs[eid] {
			return doc, StageResult{Status: StatusError, Message: fmt.Sprintf("instance %s references unknown encounterId %s", inst["id"], eid)}
		}
	}

	for _, raw := range asSlice(doc, "codes") {
		c := asMap(raw)
		for _, field := range []string{"id", "code", "decode", "codeSystem", "codeSystemVersion", "instanceType"} {
			if c[field] == nil {
				warnings = append(warnings, fmt.Sprintf("code object %v missing %s", c["id"], field))
			}
		}
	}

	if len(warnings) > 0 {
		return doc, StageResult{Status: StatusWarning, Message: strings.Join(warnings, "; ")}
	}
	return doc, StageResult{Status: StatusOK}
}
