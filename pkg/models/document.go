package models

import "time"

// UnifiedDocument is the combiner's final assembled artifact for a
// module_extraction job: every module's extracted data plus the
// metadata blocks a downstream consumer needs to trust it.
type UnifiedDocument struct {
	ProtocolID        string                     `json:"protocol_id"`
	JobID             string                     `json:"job_id"`
	Modules           map[string]any             `json:"modules"`
	SourceDocument    SourceDocumentMetadata     `json:"source_document"`
	Extraction        ExtractionMetadata         `json:"extraction_metadata"`
	ProvenanceSummary map[string]ProvenanceSummary `json:"provenance_summary"`
	AgentDocumentation []AgentDocumentationEntry `json:"agent_documentation,omitempty"`
	AssembledAt       time.Time                  `json:"assembled_at"`
}

// SourceDocumentMetadata describes the protocol PDF a document was
// assembled from.
type SourceDocumentMetadata struct {
	ProtocolID string `json:"protocol_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	PageOffset int    `json:"page_offset"`
	SHA256     string `json:"sha256"`
}

// ExtractionMetadata records run-level facts about how a document was
// produced: retries spent, modules that gave up, and cache hits, so a
// reviewer can judge how much to trust the result without re-deriving
// it from the job's event stream.
type ExtractionMetadata struct {
	TotalModules   int            `json:"total_modules"`
	FailedModules  []string       `json:"failed_modules,omitempty"`
	RetriesByModule map[string]int `json:"retries_by_module,omitempty"`
	CacheHits      int            `json:"cache_hits"`
	CacheMisses    int            `json:"cache_misses"`
	DurationMillis int64          `json:"duration_millis"`
}

// AgentDocumentationEntry is one entry in the catalog of non-obvious
// decisions an extraction pass made while assembling the document
// (e.g. an ambiguous section header it resolved by proximity to a
// known module anchor).
type AgentDocumentationEntry struct {
	ModuleID string `json:"module_id"`
	Note     string `json:"note"`
}
