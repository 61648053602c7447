package models

import (
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
)

// CreateProtocolRequest contains fields for ingesting a new protocol PDF.
type CreateProtocolRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// ProtocolFilters contains filtering options for listing protocols.
type ProtocolFilters struct {
	Filename       string     `json:"filename,omitempty"`
	CreatedAfter   *time.Time `json:"created_after,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
	IncludeDeleted bool       `json:"include_deleted,omitempty"`
}

// ProtocolResponse wraps a Protocol with optional loaded edges.
type ProtocolResponse struct {
	*ent.Protocol
}

// ProtocolListResponse contains a paginated protocol list.
type ProtocolListResponse struct {
	Protocols  []*ent.Protocol `json:"protocols"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}
