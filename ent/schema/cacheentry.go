package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CacheEntry holds the schema definition for the CacheEntry entity: the
// DB-backed tier of the content-addressed module extraction cache.
// A filesystem-tree fallback mirrors the same key under pkg/cache when
// the database tier is unavailable.
type CacheEntry struct {
	ent.Schema
}

// Fields of the CacheEntry.
func (CacheEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("cache_entry_id").
			Unique().
			Immutable(),
		field.String("cache_key").
			Unique().
			Immutable().
			Comment("SHA-256 of protocol content hash + module id + prompt version"),
		field.String("protocol_id").
			Immutable(),
		field.String("module_id").
			Immutable(),
		field.JSON("data", map[string]interface{}{}).
			Comment("Cached module extraction result"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_hit_at").
			Optional().
			Nillable(),
		field.Int64("hit_count").
			Default(0),
	}
}

// Edges of the CacheEntry.
func (CacheEntry) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("protocol", Protocol.Type).
			Ref("cache_entries").
			Field("protocol_id").
			Unique().
			Required().
			Immutable().
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the CacheEntry.
func (CacheEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("cache_key").
			Unique(),
		index.Fields("protocol_id", "module_id"),
	}
}
