package schema

import (
	"testing"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columns(t *testing.T, fields []ent.Field) map[string]field.Type {
	t.Helper()
	out := make(map[string]field.Type, len(fields))
	for _, f := range fields {
		d := f.Descriptor()
		require.NoError(t, d.Err, d.Name)
		name := d.Name
		if d.StorageKey != "" {
			name = d.StorageKey
		}
		out[name] = d.Info.Type
	}
	return out
}

// Columns must stay in step with the tables the pgx stores create.
func TestSessionSnapshotColumns(t *testing.T) {
	assert.Equal(t, map[string]field.Type{
		"session_id":       field.TypeString,
		"payload":          field.TypeJSON,
		"progress_percent": field.TypeInt,
		"updated_at":       field.TypeTime,
	}, columns(t, SessionSnapshot{}.Fields()))

	idx := SessionSnapshot{}.Indexes()
	require.Len(t, idx, 1)
	assert.Equal(t, []string{"updated_at"}, idx[0].Descriptor().Fields)
}

func TestReportArtifactColumns(t *testing.T) {
	assert.Equal(t, map[string]field.Type{
		"session_id":   field.TypeString,
		"name":         field.TypeString,
		"content":      field.TypeBytes,
		"content_type": field.TypeString,
		"size":         field.TypeInt64,
		"created_at":   field.TypeTime,
	}, columns(t, ReportArtifact{}.Fields()))

	idx := ReportArtifact{}.Indexes()
	require.Len(t, idx, 1)
	d := idx[0].Descriptor()
	assert.True(t, d.Unique)
	assert.Equal(t, []string{"session_id", "name"}, d.Fields)
}
