// Package combiner assembles the unified protocol document from a set
// of completed module results: it shapes each module's
// payload into its declared slot, computes source-document and
// extraction metadata, runs a provenance correction pass over the
// whole document, and optionally builds the agent-documentation
// catalog.
package combiner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/pdftext"
	"github.com/codeready-toolchain/protocolx/pkg/provenance"
	"github.com/tidwall/gjson"
)

// Combiner assembles a models.UnifiedDocument from per-module data,
// implementing pkg/orchestrator's Combiner interface.
type Combiner struct {
	interpretConfig *config.InterpretConfig
}

// New builds a Combiner.
func New(interpretConfig *config.InterpretConfig) *Combiner {
	return &Combiner{interpretConfig: interpretConfig}
}

// Combine shapes completed module results into a models.UnifiedDocument
// and returns it as a plain map so pkg/services can persist it in the
// job's unified_document JSONB column unchanged.
func (c *Combiner) Combine(ctx context.Context, jobID string, protocol *ent.Protocol, results map[string]map[string]any) (map[string]any, error) {
	pageCount, pages, err := c.readSourcePages(protocol.Content)
	if err != nil && pageCount == 0 && protocol.PageCount != nil {
		// Page metadata is best-effort: the combiner still assembles
		// the document from module data even if the local PDF text
		// pass fails, falling back to the stored page count only when
		// readSourcePages could not recover one.
		pageCount = *protocol.PageCount
	}

	modules, correctedModules := c.correctProvenance(pages, results)

	sum := sha256.Sum256(protocol.Content)
	sourceDoc := models.SourceDocumentMetadata{
		ProtocolID: protocol.ID,
		Filename:   protocol.Filename,
		PageCount:  pageCount,
		PageOffset: c.detectPageOffset(pages),
		SHA256:     hex.EncodeToString(sum[:]),
	}

	extraction := models.ExtractionMetadata{
		TotalModules: len(results),
	}

	summaries := make(map[string]models.ProvenanceSummary, len(correctedModules))
	for moduleID, data := range correctedModules {
		summaries[moduleID] = summarizeProvenance(data)
	}

	var catalog []models.AgentDocumentationEntry
	if c.interpretConfig != nil && c.interpretConfig.EnableAgentDocumentation {
		catalog = buildAgentDocumentation(correctedModules)
	}

	doc := models.UnifiedDocument{
		ProtocolID:         protocol.ID,
		JobID:              jobID,
		Modules:            modules,
		SourceDocument:     sourceDoc,
		Extraction:         extraction,
		ProvenanceSummary:  summaries,
		AgentDocumentation: catalog,
		AssembledAt:        time.Now(),
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal unified document: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal unified document: %w", err)
	}
	return out, nil
}

// readSourcePages extracts the protocol's physical page texts for the
// provenance corrector. Returns the page count even when text
// extraction itself fails partway through.
func (c *Combiner) readSourcePages(content []byte) (int, []string, error) {
	pages, err := pdftext.ExtractPages(content)
	if err != nil {
		count, countErr := pdftext.PageCount(content)
		if countErr != nil {
			return 0, nil, err
		}
		return count, nil, err
	}
	return len(pages), pages, nil
}

// detectPageOffset estimates the printed-vs-physical page offset from
// the source pages, or 0 when pages could not be read.
func (c *Combiner) detectPageOffset(pages []string) int {
	if len(pages) == 0 {
		return 0
	}
	return provenance.NewCorrector(pages).DetectPageOffset()
}

// correctProvenance runs the provenance corrector over every module's
// explicit provenance records when source pages are available, and
// returns both the raw shaped module map (for the unified document's
// `modules` slot) and the corrected-per-module data (for the
// provenance summary computation, which must see corrected pages).
func (c *Combiner) correctProvenance(pages []string, results map[string]map[string]any) (map[string]any, map[string]map[string]any) {
	modules := make(map[string]any, len(results))
	corrected := make(map[string]map[string]any, len(results))

	if len(pages) == 0 {
		for moduleID, data := range results {
			modules[moduleID] = data
			corrected[moduleID] = data
		}
		return modules, corrected
	}

	corrector := provenance.NewCorrector(pages)
	for moduleID, data := range results {
		raw, err := json.Marshal(data)
		if err != nil {
			modules[moduleID] = data
			corrected[moduleID] = data
			continue
		}

		fixed, err := corrector.CorrectDocument(raw)
		if err != nil {
			modules[moduleID] = data
			corrected[moduleID] = data
			continue
		}

		var fixedData map[string]any
		if err := json.Unmarshal(fixed, &fixedData); err != nil {
			modules[moduleID] = data
			corrected[moduleID] = data
			continue
		}
		modules[moduleID] = fixedData
		corrected[moduleID] = fixedData
	}
	return modules, corrected
}

// provenanceFieldSuffix matches the <key>Provenance sibling convention
// pkg/provenance.Coverage also recognizes.
const provenanceFieldSuffix = "Provenance"

// summarizeProvenance counts explicit vs. derived provenance records
// in one module's data for the unified document's provenance summary.
func summarizeProvenance(data map[string]any) models.ProvenanceSummary {
	raw, err := json.Marshal(data)
	if err != nil {
		return models.ProvenanceSummary{}
	}

	var summary models.ProvenanceSummary
	walkProvenanceFields(gjson.ParseBytes(raw), &summary)
	if summary.TotalFields > 0 {
		summary.Coverage = float64(summary.ExplicitFields+summary.DerivedFields) / float64(summary.TotalFields)
	}
	return summary
}

func walkProvenanceFields(value gjson.Result, summary *models.ProvenanceSummary) {
	if !value.IsObject() && !value.IsArray() {
		return
	}
	value.ForEach(func(key, v gjson.Result) bool {
		k := key.String()
		if k == "provenance" || (len(k) > len(provenanceFieldSuffix) && k[len(k)-len(provenanceFieldSuffix):] == provenanceFieldSuffix) {
			summary.TotalFields++
			switch v.Get("kind").String() {
			case "explicit":
				summary.ExplicitFields++
			case "derived":
				summary.DerivedFields++
			}
		}
		walkProvenanceFields(v, summary)
		return true
	})
}

// buildAgentDocumentation assembles the catalog of non-obvious
// decisions a module made, surfaced via each module's own
// `_metadata.notes` sidecar when present.
func buildAgentDocumentation(results map[string]map[string]any) []models.AgentDocumentationEntry {
	var entries []models.AgentDocumentationEntry
	for moduleID, data := range results {
		metadata, ok := data["_metadata"].(map[string]any)
		if !ok {
			continue
		}
		notes, ok := metadata["notes"].([]any)
		if !ok {
			continue
		}
		for _, n := range notes {
			note, ok := n.(string)
			if !ok || note == "" {
				continue
			}
			entries = append(entries, models.AgentDocumentationEntry{ModuleID: moduleID, Note: note})
		}
	}
	return entries
}
