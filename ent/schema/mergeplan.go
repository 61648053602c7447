package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MergePlan holds the schema definition for the MergePlan entity: the
// proposed grouping of detected SOA tables into merge groups, awaiting
// caller confirmation before the combiner executes it.
type MergePlan struct {
	ent.Schema
}

// Fields of the MergePlan.
func (MergePlan) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("merge_plan_id").
			Unique().
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.String("status").
			Default("proposed").
			Comment("proposed, confirmed, rejected, executed"),
		field.JSON("proposed_groups", []interface{}{}).
			Comment("Ordered list of MergeGroup objects (source table ids, merge type, decision level, confidence, reasoning) as proposed by the 8-level analyzer"),
		field.JSON("confirmed_groups", []interface{}{}).
			Optional().
			Comment("Ordered list of MergeGroup objects after caller confirmation/edits"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("confirmed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the MergePlan.
func (MergePlan) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", Job.Type).
			Ref("merge_plans").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
		edge.To("merge_group_results", MergeGroupResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the MergePlan.
func (MergePlan) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id"),
		index.Fields("status"),
	}
}
