package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Event holds the schema definition for the Event entity: one entry in
// a job's totally-ordered progress/event stream.
type Event struct {
	ent.Schema
}

// Fields of the Event.
func (Event) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("event_id").
			Unique().
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.Int64("seq").
			Comment("Monotonically increasing per job, assigned by the event sink"),
		field.Enum("event_type").
			Values(
				"job_queued",
				"job_started",
				"module_started",
				"module_completed",
				"module_failed",
				"retry_attempted",
				"quality_evaluated",
				"stage_progress",
				"stage_ok",
				"stage_warning",
				"stage_error",
				"soa_pages_detected",
				"soa_table_extracted",
				"soa_merge_plan_proposed",
				"eligibility_sections_detected",
				"eligibility_section_extracted",
				"awaiting_confirmation",
				"job_completed",
				"job_failed",
				"job_cancelled",
			),
		field.String("module_id").
			Optional().
			Nillable(),
		field.JSON("payload", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Event.
func (Event) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", Job.Type).
			Ref("events").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Event.
func (Event) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id", "seq").
			Unique(),
		index.Fields("created_at"),
	}
}
