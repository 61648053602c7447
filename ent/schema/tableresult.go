package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TableResult holds the schema definition for the TableResult entity:
// one detected Schedule-of-Activities table within a protocol, prior to
// merge-group assignment.
type TableResult struct {
	ent.Schema
}

// Fields of the TableResult.
func (TableResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("table_result_id").
			Unique().
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.String("table_label").
			Optional().
			Comment("Business id assigned at detection time, e.g. SOA-1"),
		field.String("category").
			Optional().
			Comment("MAIN_SOA, PK_SOA, SAFETY_SOA, or PD_SOA"),
		field.Int("page_start").
			Comment("Physical page the table begins on"),
		field.Int("page_end"),
		field.JSON("raw_rows", [][]string{}).
			Comment("Extracted table cells, row-major"),
		field.JSON("column_headers", []string{}).
			Optional(),
		field.JSON("output_payload", map[string]interface{}{}).
			Optional().
			Comment("Extracted USDM-shaped table data, written once extraction completes"),
		field.Int("visits_count").
			Default(0),
		field.Int("activities_count").
			Default(0),
		field.Int("instances_count").
			Default(0),
		field.Int("footnotes_count").
			Default(0),
		field.Float("confidence").
			Optional().
			Nillable().
			Comment("Detection confidence for this table boundary"),
		field.String("status").
			Default("detected").
			Comment("detected, assigned, merged"),
		field.String("merge_group_result_id").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the TableResult.
func (TableResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", Job.Type).
			Ref("table_results").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
		edge.From("merge_group_result", MergeGroupResult.Type).
			Ref("table_results").
			Field("merge_group_result_id").
			Unique(),
	}
}

// Indexes of the TableResult.
func (TableResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id", "page_start"),
	}
}
