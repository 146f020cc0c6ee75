package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ReportArtifact holds one exported report file by (session_id, name).
type ReportArtifact struct {
	ent.Schema
}

func (ReportArtifact) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty(),
		field.String("name").
			NotEmpty(),
		field.Bytes("content").
			Default([]byte{}),
		field.String("content_type").
			Default("application/octet-stream"),
		field.Int64("size").
			NonNegative(),
		field.Time("created_at").
			Default(time.Now),
	}
}

func (ReportArtifact) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "name").Unique(),
	}
}
