package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 5, c.Len())

	items := c.Items()
	assert.Equal(t, "req_1", items[0].ID)
	assert.Equal(t, "Boucle infinie", items[0].Title)
	assert.Equal(t, CategoryTechnical, items[4].Category)
	for _, it := range items {
		assert.False(t, it.Completed, it.ID)
	}
}

func TestNewCatalogRejectsBadItems(t *testing.T) {
	_, err := NewCatalog([]Item{{ID: "a", Title: "x"}, {ID: "a", Title: "y"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewCatalog([]Item{{ID: " ", Title: "x"}})
	assert.ErrorContains(t, err, "id is required")

	_, err = NewCatalog([]Item{{ID: "a", Title: "x", Category: "extra"}})
	assert.ErrorContains(t, err, "unknown category")
}

func TestItemsIsACopy(t *testing.T) {
	c := Default()
	items := c.Items()
	items[0].Completed = true
	got, _ := c.Get("req_1")
	assert.False(t, got.Completed)
}

func TestToggle(t *testing.T) {
	c := Default()
	v, err := c.Toggle("req_2")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = c.Toggle("req_2")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = c.Toggle("nope")
	assert.ErrorIs(t, err, ErrUnknownRequirement)
}

func TestProgress(t *testing.T) {
	c := Default()
	assert.Equal(t, Progress{Completed: 0, Total: 5, Percent: 0}, c.Progress())

	_, _ = c.Toggle("req_1")
	_, _ = c.Toggle("req_3")
	assert.Equal(t, Progress{Completed: 2, Total: 5, Percent: 40}, c.Progress())

	var empty *Catalog
	assert.Equal(t, Progress{}, empty.Progress())
}

func TestCloneIsIndependent(t *testing.T) {
	c := Default()
	cp := c.Clone()
	_, _ = cp.Toggle("req_1")
	got, _ := c.Get("req_1")
	assert.False(t, got.Completed)
}

func TestRestoreIgnoresUnknownIDs(t *testing.T) {
	c := Default()
	c.Restore([]Item{{ID: "req_4", Completed: true}, {ID: "gone", Completed: true}})
	got, _ := c.Get("req_4")
	assert.True(t, got.Completed)
	assert.Equal(t, 1, c.Progress().Completed)
}

func TestListing(t *testing.T) {
	c, err := NewCatalog([]Item{{ID: "1", Title: "Ajouter une tâche"}, {ID: "2", Title: "Lister"}})
	require.NoError(t, err)
	assert.Equal(t, "- 1: Ajouter une tâche\n- 2: Lister", Listing(c.Items()))
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
requirements:
  - id: r1
    title: Fonctions
    category: bonus
`))
	require.NoError(t, err)
	it, ok := c.Get("r1")
	require.True(t, ok)
	assert.Equal(t, CategoryBonus, it.Category)

	_, err = Parse([]byte("requirements: []"))
	assert.Error(t, err)
	_, err = Parse([]byte("requirements: ["))
	assert.Error(t, err)
}
