package models

import "github.com/codeready-toolchain/protocolx/ent"

// CreateEventRequest contains fields for appending an event to a job's
// progress stream.
type CreateEventRequest struct {
	JobID     string         `json:"job_id"`
	EventType string         `json:"event_type"`
	ModuleID  *string        `json:"module_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventResponse wraps an Event.
type EventResponse struct {
	*ent.Event
}

// EventsResponse contains the events for a job with seq greater than
// the cursor the caller last observed.
type EventsResponse struct {
	Events  []*ent.Event `json:"events"`
	LastSeq int64        `json:"last_seq"`
}
