package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPreservesOrder(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "Comment faire une boucle ?")
	l.Append(RoleModel, "Utilise while.")
	l.Append(RoleUser, "Merci")

	assert.Equal(t, []Turn{
		{Role: RoleUser, Text: "Comment faire une boucle ?"},
		{Role: RoleModel, Text: "Utilise while."},
		{Role: RoleUser, Text: "Merci"},
	}, l.Turns())
}

func TestTurnsReturnsCopy(t *testing.T) {
	l := NewLog(Turn{Role: RoleUser, Text: "a"})
	got := l.Turns()
	got[0].Text = "mutated"
	assert.Equal(t, "a", l.Turns()[0].Text)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleModel, r)

	r, err = ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	_, err = ParseRole("system")
	assert.Error(t, err)
}

func TestNilLog(t *testing.T) {
	var l *Log
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Turns())
}
