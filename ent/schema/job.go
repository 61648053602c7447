package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Job holds the schema definition for the Job entity: one run of the
// module orchestrator, the SOA merge pipeline, or the eligibility
// interpretation pipeline against a Protocol.
//
// status is a bare string, not an ent.Enum: ModuleExtractionJob, SOAJob,
// and EligibilityJob each have a distinct set of valid states and
// transitions, enforced by pkg/statemachine's per-kind tables rather
// than a single column-level enum.
type Job struct {
	ent.Schema
}

// Fields of the Job.
func (Job) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("protocol_id").
			Immutable(),
		field.Enum("kind").
			Values("module_extraction", "soa", "eligibility").
			Immutable(),
		field.String("status").
			Default("queued"),
		field.String("current_phase").
			Optional().
			Nillable().
			Comment("Pipeline stage name, e.g. interpretation stage id"),
		field.Float("progress_percent").
			Default(0),
		field.String("progress_substage").
			Optional().
			Nillable(),
		field.String("current_module").
			Optional().
			Nillable().
			Comment("Module currently executing, for module_extraction jobs"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Time("heartbeat_at").
			Optional().
			Nillable().
			Comment("Last worker liveness update, for orphan detection"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("output_dir").
			Optional().
			Nillable(),
		field.JSON("unified_document", map[string]interface{}{}).
			Optional().
			Comment("Assembled document for module_extraction jobs once combined"),
		field.JSON("failed_modules", []string{}).
			Optional(),
		field.JSON("detected_sections", map[string]interface{}{}).
			Optional().
			Comment("Eligibility job: criteria sections detected before confirmation"),
		field.JSON("confirmed_sections", map[string]interface{}{}).
			Optional().
			Comment("Eligibility job: criteria sections confirmed by the caller"),
		field.JSON("detected_pages", []interface{}{}).
			Optional().
			Comment("SOA job: detected table page ranges ({id, pageStart, pageEnd, category}) awaiting confirmation"),
		field.JSON("confirmed_pages", []interface{}{}).
			Optional().
			Comment("SOA job: table page ranges confirmed by the caller, input to extraction"),
		field.Int("attempt").
			Default(0).
			Comment("Retry attempt counter for job-level resumption"),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Soft delete for retention policy"),
	}
}

// Edges of the Job.
func (Job) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("protocol", Protocol.Type).
			Ref("jobs").
			Field("protocol_id").
			Unique().
			Required().
			Immutable(),
		edge.To("module_results", ModuleResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("events", Event.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("table_results", TableResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("merge_plans", MergePlan.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Job.
func (Job) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("kind"),
		index.Fields("protocol_id"),
		index.Fields("status", "created_at"),
		index.Fields("status", "heartbeat_at"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}
