package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SessionSnapshot is the last saved state of one mentoring session.
// The payload is the JSON-encoded session snapshot.
type SessionSnapshot struct {
	ent.Schema
}

// Fields of the SessionSnapshot.
func (SessionSnapshot) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("session_id").
			NotEmpty().
			Unique().
			Immutable(),
		field.JSON("payload", json.RawMessage{}),
		field.Int("progress_percent").
			Range(0, 100).
			Default(0),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the SessionSnapshot.
func (SessionSnapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("updated_at"),
	}
}
