package models

import "github.com/codeready-toolchain/protocolx/ent"

// CreateJobRequest contains fields for creating a new job against a
// protocol: module_extraction, soa, or eligibility.
type CreateJobRequest struct {
	ProtocolID string `json:"protocol_id"`
	Kind       string `json:"kind"`
}

// UpdateJobStatusRequest contains fields for transitioning a job's status.
type UpdateJobStatusRequest struct {
	Status       string  `json:"status"`
	CurrentPhase *string `json:"current_phase,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// UpdateJobProgressRequest contains fields for a progress heartbeat update.
type UpdateJobProgressRequest struct {
	ProgressPercent  float64 `json:"progress_percent"`
	ProgressSubstage *string `json:"progress_substage,omitempty"`
	CurrentModule    *string `json:"current_module,omitempty"`
}

// JobFilters contains filtering options for listing jobs.
type JobFilters struct {
	Status         string `json:"status,omitempty"`
	Kind           string `json:"kind,omitempty"`
	ProtocolID     string `json:"protocol_id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// JobResponse wraps a Job with optional loaded edges.
type JobResponse struct {
	*ent.Job
}

// JobListResponse contains a paginated job list.
type JobListResponse struct {
	Jobs       []*ent.Job `json:"jobs"`
	TotalCount int        `json:"total_count"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// CreateModuleResultRequest contains fields for recording a module's
// extraction output against a job.
type CreateModuleResultRequest struct {
	JobID    string         `json:"job_id"`
	ModuleID string         `json:"module_id"`
	Data     map[string]any `json:"data"`
}

// UpdateModuleResultScoresRequest records a quality pass's per-dimension
// scores and feedback against a module result.
type UpdateModuleResultScoresRequest struct {
	AccuracyScore         *float64 `json:"accuracy_score,omitempty"`
	CompletenessScore     *float64 `json:"completeness_score,omitempty"`
	SchemaAdherenceScore  *float64 `json:"schema_adherence_score,omitempty"`
	ProvenanceScore       *float64 `json:"provenance_score,omitempty"`
	TerminologyScore      *float64 `json:"terminology_score,omitempty"`
	CompositeScore        *float64 `json:"composite_score,omitempty"`
	Feedback              []string `json:"feedback,omitempty"`
	SurgicalRetryUsed     bool     `json:"surgical_retry_used,omitempty"`
}

// ModuleResultResponse wraps a ModuleResult.
type ModuleResultResponse struct {
	*ent.ModuleResult
}
