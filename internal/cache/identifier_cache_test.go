package cache

import (
	"testing"

	"github.com/m2ux/concept-rag-sub008/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCategories() []*store.Category {
	root := &store.Category{ID: 1, Name: "computer science", DocumentCount: 50}
	childParent := uint32(1)
	child := &store.Category{
		ID:            2,
		Name:          "distributed systems",
		ParentID:      &childParent,
		Aliases:       []string{"distsys"},
		DocumentCount: 20,
	}
	grandchildParent := uint32(2)
	grandchild := &store.Category{
		ID:            3,
		Name:          "consensus",
		ParentID:      &grandchildParent,
		DocumentCount: 5,
	}
	return []*store.Category{root, child, grandchild}
}

func TestCategoryCache_GetID_ResolvesByNormalizedName(t *testing.T) {
	c := NewCategoryCache(testCategories())
	id, ok := c.GetID("Distributed Systems")
	require.True(t, ok)
	assert.Equal(t, uint32(2), id)
}

func TestCategoryCache_GetIDByAlias_Resolves(t *testing.T) {
	c := NewCategoryCache(testCategories())
	id, ok := c.GetIDByAlias("distsys")
	require.True(t, ok)
	assert.Equal(t, uint32(2), id)
}

func TestCategoryCache_GetChildren_ReturnsDirectChildrenOnly(t *testing.T) {
	c := NewCategoryCache(testCategories())
	assert.Equal(t, []uint32{2}, c.GetChildren(1))
	assert.Equal(t, []uint32{3}, c.GetChildren(2))
	assert.Empty(t, c.GetChildren(3))
}

func TestCategoryCache_GetHierarchyPathNames_WalksToRoot(t *testing.T) {
	c := NewCategoryCache(testCategories())
	path := c.GetHierarchyPathNames(3)
	assert.Equal(t, []string{"computer science", "distributed systems", "consensus"}, path)
}

func TestCategoryCache_GetTopCategories_OrdersByDocumentCount(t *testing.T) {
	c := NewCategoryCache(testCategories())
	top := c.GetTopCategories(2)
	require.Len(t, top, 2)
	assert.Equal(t, uint32(1), top[0].ID)
	assert.Equal(t, uint32(2), top[1].ID)
}

func TestCategoryCache_FindRootCategories_ReturnsOnlyParentless(t *testing.T) {
	c := NewCategoryCache(testCategories())
	roots := c.FindRootCategories()
	require.Len(t, roots, 1)
	assert.Equal(t, uint32(1), roots[0].ID)
}

func TestCategoryCache_SearchByName_IsCaseInsensitiveSubstring(t *testing.T) {
	c := NewCategoryCache(testCategories())
	matches := c.SearchByName("SYSTEM")
	require.Len(t, matches, 1)
	assert.Equal(t, "distributed systems", matches[0].Name)
}

func TestCategoryCache_Refresh_ReplacesContents(t *testing.T) {
	c := NewCategoryCache(testCategories())
	c.Refresh([]*store.Category{{ID: 99, Name: "new category"}})

	_, ok := c.GetID("computer science")
	assert.False(t, ok)
	id, ok := c.GetID("new category")
	require.True(t, ok)
	assert.Equal(t, uint32(99), id)
}

func TestConceptCache_GetID_ResolvesByNormalizedName(t *testing.T) {
	c := NewConceptCache([]*store.Concept{{ID: 10, Name: "Eventual Consistency"}})
	id, ok := c.GetID("eventual consistency")
	require.True(t, ok)
	assert.Equal(t, uint32(10), id)
}

func TestConceptCache_GetNames_ResolvesBatch(t *testing.T) {
	c := NewConceptCache([]*store.Concept{
		{ID: 1, Name: "concept one"},
		{ID: 2, Name: "concept two"},
	})
	names := c.GetNames([]uint32{1, 2, 999})
	assert.Equal(t, []string{"concept one", "concept two"}, names)
}

func TestConceptCache_GetStats_ReportsEntryCount(t *testing.T) {
	c := NewConceptCache([]*store.Concept{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	stats := c.GetStats()
	assert.Equal(t, 2, stats.EntryCount)
}
