package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MergeGroupResult holds the schema definition for the MergeGroupResult
// entity: the combined output of one confirmed merge group (one or more
// TableResults sharing a SOA section) after the combiner reconciles
// column headers and row alignment.
type MergeGroupResult struct {
	ent.Schema
}

// Fields of the MergeGroupResult.
func (MergeGroupResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("merge_group_result_id").
			Unique().
			Immutable(),
		field.String("merge_plan_id").
			Immutable(),
		field.String("group_label"),
		field.JSON("merged_rows", [][]string{}),
		field.JSON("merged_headers", []string{}),
		field.JSON("provenance", map[string]interface{}{}).
			Optional().
			Comment("Per-row source table_result_id and page references"),
		field.JSON("stage_results", []interface{}{}).
			Optional().
			Comment("Per-stage outcome of the 12-stage interpretation pipeline run against this group"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the MergeGroupResult.
func (MergeGroupResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("merge_plan", MergePlan.Type).
			Ref("merge_group_results").
			Field("merge_plan_id").
			Unique().
			Required().
			Immutable(),
		edge.To("table_results", TableResult.Type),
	}
}

// Indexes of the MergeGroupResult.
func (MergeGroupResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("merge_plan_id"),
	}
}
