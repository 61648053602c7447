package models

import "github.com/codeready-toolchain/protocolx/ent"

// CreateTableResultRequest contains fields for recording one detected
// Schedule-of-Activities table.
type CreateTableResultRequest struct {
	JobID          string                 `json:"job_id"`
	TableLabel     string                 `json:"table_label,omitempty"`
	Category       string                 `json:"category,omitempty"`
	PageStart      int                    `json:"page_start"`
	PageEnd        int                    `json:"page_end"`
	RawRows        [][]string             `json:"raw_rows"`
	ColumnHeaders  []string               `json:"column_headers,omitempty"`
	OutputPayload  map[string]interface{} `json:"output_payload,omitempty"`
	VisitsCount    int                    `json:"visits_count,omitempty"`
	ActivitiesCount int                   `json:"activities_count,omitempty"`
	InstancesCount int                    `json:"instances_count,omitempty"`
	FootnotesCount int                    `json:"footnotes_count,omitempty"`
	Confidence     *float64               `json:"confidence,omitempty"`
}

// TableResultResponse wraps a TableResult.
type TableResultResponse struct {
	*ent.TableResult
}

// MergeGroup is one proposed or confirmed grouping of detected SOA
// tables: the source tables the 8-level analyzer decided belong
// together, the kind of merge it proposed, and the confidence behind
// that decision.
type MergeGroup struct {
	GroupLabel    string   `json:"group_label"`
	TableResultIDs []string `json:"table_result_ids"`
	MergeType     string   `json:"merge_type"`
	DecisionLevel int      `json:"decision_level"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// CreateMergePlanRequest contains the analyzer's proposed ordered list
// of merge groups, awaiting caller confirmation.
type CreateMergePlanRequest struct {
	JobID          string       `json:"job_id"`
	ProposedGroups []MergeGroup `json:"proposed_groups"`
}

// ConfirmMergePlanRequest lets the caller confirm or edit the proposed
// merge groups before the combiner executes them.
type ConfirmMergePlanRequest struct {
	ConfirmedGroups []MergeGroup `json:"confirmed_groups"`
}

// MergePlanResponse wraps a MergePlan.
type MergePlanResponse struct {
	*ent.MergePlan
}

// MergeGroupResultResponse wraps a MergeGroupResult.
type MergeGroupResultResponse struct {
	*ent.MergeGroupResult
}
