package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ModuleResult holds the schema definition for the ModuleResult entity:
// the extracted, quality-scored output of one module against one job.
type ModuleResult struct {
	ent.Schema
}

// Fields of the ModuleResult.
func (ModuleResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("module_result_id").
			Unique().
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.String("module_id").
			Immutable().
			Comment("Module registry id, e.g. study_identification"),
		field.JSON("data", map[string]interface{}{}).
			Comment("Extracted payload matching the module's JSON schema"),
		field.Float("accuracy_score").
			Optional().
			Nillable(),
		field.Float("completeness_score").
			Optional().
			Nillable(),
		field.Float("schema_adherence_score").
			Optional().
			Nillable(),
		field.Float("provenance_score").
			Optional().
			Nillable(),
		field.Float("terminology_score").
			Optional().
			Nillable(),
		field.Float("composite_score").
			Optional().
			Nillable(),
		field.Int("retry_count").
			Default(0),
		field.Bool("surgical_retry_used").
			Default(false),
		field.JSON("feedback", []string{}).
			Optional().
			Comment("Quality checker feedback fed back into the retry prompt"),
		field.String("status").
			Default("pending").
			Comment("pending, succeeded, failed (module gave up after max_retries)"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the ModuleResult.
func (ModuleResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", Job.Type).
			Ref("module_results").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ModuleResult.
func (ModuleResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id", "module_id").
			Unique(),
		index.Fields("status"),
	}
}
