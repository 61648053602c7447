package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Protocol holds the schema definition for the Protocol entity: one
// ingested clinical-trial PDF.
type Protocol struct {
	ent.Schema
}

// Fields of the Protocol.
func (Protocol) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("protocol_id").
			Unique().
			Immutable(),
		field.String("filename").
			Comment("Original uploaded PDF filename"),
		field.Bytes("content").
			Comment("Raw PDF bytes, immutable once ingested"),
		field.String("content_hash").
			Unique().
			Immutable().
			Comment("SHA-256 of content, 64 hex chars; upload dedup key"),
		field.Int64("size_bytes"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.String("remote_file_uri").
			Optional().
			Nillable().
			Comment("Cached handle from the source-document client"),
		field.Time("remote_file_expires_at").
			Optional().
			Nillable(),
		field.Int("page_count").
			Optional().
			Nillable(),
		field.Int("page_offset").
			Optional().
			Nillable().
			Comment("Printed-vs-physical page offset detected by the combiner"),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Soft delete for retention policy"),
	}
}

// Edges of the Protocol.
func (Protocol) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("jobs", Job.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("cache_entries", CacheEntry.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Protocol.
func (Protocol) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("content_hash").
			Unique(),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}

// Annotations for PostgreSQL-specific features.
func (Protocol) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
