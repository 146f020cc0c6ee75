package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymentor/internal/requirement"
)

func TestBuildPromptFlat(t *testing.T) {
	p, err := BuildPrompt("while True:\n    pass", requirement.Default().Items(), RenderFlat)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "[PURPOSE]\n"))
	assert.Contains(t, p, "[REQUIREMENTS]\n- req_1: Boucle infinie\n- req_2: Ajouter des tâches")
	assert.Contains(t, p, "```python\nwhile True:\n    pass\n```")
	assert.Contains(t, p, "[LANGUAGE]")
}

func TestBuildPromptStructured(t *testing.T) {
	p, err := BuildPrompt("", requirement.Default().Items(), RenderStructured)
	require.NoError(t, err)
	assert.Contains(t, p, `"id": "req_4"`)
	assert.Contains(t, p, `"category": "technical"`)
	assert.NotContains(t, p, "- req_4: ")
}

func TestBuildPromptUnknownMode(t *testing.T) {
	_, err := BuildPrompt("", nil, RenderMode("yaml"))
	assert.Error(t, err)
}

func TestParseRenderMode(t *testing.T) {
	m, err := ParseRenderMode("")
	require.NoError(t, err)
	assert.Equal(t, RenderFlat, m)

	m, err = ParseRenderMode("STRUCTURED")
	require.NoError(t, err)
	assert.Equal(t, RenderStructured, m)

	_, err = ParseRenderMode("xml")
	assert.Error(t, err)
}
