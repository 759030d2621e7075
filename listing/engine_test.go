package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seedlight/beacon/shared"
)

func podcastItems() []Item {
	return []Item{
		{ID: "1", Type: shared.TYPE_PODCAST, Title: "Freedom Talk", Category: "Economic", PublishedAt: "2024-03-01"},
		{ID: "2", Type: shared.TYPE_PODCAST, Title: "Youth Summit", Category: "Leadership", PublishedAt: "2024-02-01"},
	}
}

func TestApply_TextAndFacetAreANDed(t *testing.T) {
	items := podcastItems()

	result := Apply(items, Query{
		Text:   "free",
		Facets: map[string]string{"category": "Economic"},
		Sort:   SortDateDesc,
	})

	assert.Len(t, result, 1)
	assert.Equal(t, "Freedom Talk", result[0].Title)
}

func TestApply_MultiSelectFacetIsORed(t *testing.T) {
	items := podcastItems()

	result := Apply(items, Query{
		FacetsAny: map[string][]string{"category": {"Economic", "Leadership"}},
		Sort:      SortDateDesc,
	})

	assert.Len(t, result, 2)
}

func TestApply_FacetAllRetainsEverything(t *testing.T) {
	items := podcastItems()

	result := Apply(items, Query{
		Facets: map[string]string{"category": FacetAll},
		Sort:   SortDateDesc,
	})

	assert.Len(t, result, 2)
}

func TestApply_TextMatchIsCaseInsensitiveSubstring(t *testing.T) {
	items := []Item{
		{ID: "1", Type: shared.TYPE_BLOG, Title: "Rebuilding After the Floods", Author: "Adaeze Obi", PublishedAt: "2024-01-10"},
		{ID: "2", Type: shared.TYPE_BLOG, Title: "Annual Report", Author: "Tunde Bakare", PublishedAt: "2024-01-12"},
	}

	result := Apply(items, Query{Text: "FLOODS", Sort: SortDateDesc})
	assert.Len(t, result, 1)
	assert.Equal(t, "1", result[0].ID)

	// Author is a searchable field for blog posts
	result = Apply(items, Query{Text: "bakare", Sort: SortDateDesc})
	assert.Len(t, result, 1)
	assert.Equal(t, "2", result[0].ID)
}

func TestApply_EventLocationIsSearchable(t *testing.T) {
	items := []Item{
		{ID: "1", Type: shared.TYPE_EVENT, Title: "Town Hall", Location: "Lagos", PublishedAt: "2024-05-01"},
		{ID: "2", Type: shared.TYPE_EVENT, Title: "Fundraiser", Location: "Abuja", PublishedAt: "2024-05-02"},
	}

	result := Apply(items, Query{Text: "lagos", Sort: SortDateDesc})
	assert.Len(t, result, 1)
	assert.Equal(t, "Town Hall", result[0].Title)
}

func TestApply_SortByDate(t *testing.T) {
	items := []Item{
		{ID: "old", Type: shared.TYPE_NEWS, Title: "Old", PublishedAt: "2023-01-01"},
		{ID: "new", Type: shared.TYPE_NEWS, Title: "New", PublishedAt: "2024-01-01"},
		{ID: "mid", Type: shared.TYPE_NEWS, Title: "Mid", PublishedAt: "2023-06-01"},
	}

	result := Apply(items, Query{Sort: SortDateDesc})
	assert.Equal(t, []string{"new", "mid", "old"}, ids(result))

	result = Apply(items, Query{Sort: SortDateAsc})
	assert.Equal(t, []string{"old", "mid", "new"}, ids(result))
}

func TestApply_SortByTitle(t *testing.T) {
	items := []Item{
		{ID: "1", Type: shared.TYPE_BOOK, Title: "Zebra Crossings", PublishedAt: "2024-01-01"},
		{ID: "2", Type: shared.TYPE_BOOK, Title: "a quiet strength", PublishedAt: "2024-01-02"},
		{ID: "3", Type: shared.TYPE_BOOK, Title: "Beyond Borders", PublishedAt: "2024-01-03"},
	}

	result := Apply(items, Query{Sort: SortTitle})
	assert.Equal(t, []string{"2", "3", "1"}, ids(result))
}

func TestApply_SortIsStableOnEqualDates(t *testing.T) {
	items := []Item{
		{ID: "first", Type: shared.TYPE_NEWS, Title: "First", PublishedAt: "2024-01-01"},
		{ID: "second", Type: shared.TYPE_NEWS, Title: "Second", PublishedAt: "2024-01-01"},
		{ID: "third", Type: shared.TYPE_NEWS, Title: "Third", PublishedAt: "2024-01-01"},
	}

	result := Apply(items, Query{Sort: SortDateDesc})
	assert.Equal(t, []string{"first", "second", "third"}, ids(result))
}

func TestApply_MalformedDatesKeepOriginalOrder(t *testing.T) {
	items := []Item{
		{ID: "1", Type: shared.TYPE_NEWS, Title: "Bad date", PublishedAt: "not a date"},
		{ID: "2", Type: shared.TYPE_NEWS, Title: "Also bad", PublishedAt: ""},
	}

	result := Apply(items, Query{Sort: SortDateDesc})
	assert.Equal(t, []string{"1", "2"}, ids(result))
}

func TestApply_DefaultQueryReturnsFullCollection(t *testing.T) {
	items := []Item{
		{ID: "1", Type: shared.TYPE_BLOG, Title: "One", PublishedAt: "2024-01-02"},
		{ID: "2", Type: shared.TYPE_BLOG, Title: "Two", PublishedAt: "2024-01-01"},
	}

	// A cleared filter state is exactly the default query
	result := Apply(items, DefaultQuery())
	assert.Equal(t, []string{"1", "2"}, ids(result))
}

func TestApply_NeverMutatesInput(t *testing.T) {
	items := []Item{
		{ID: "b", Type: shared.TYPE_BLOG, Title: "Bravo", PublishedAt: "2023-01-01"},
		{ID: "a", Type: shared.TYPE_BLOG, Title: "Alpha", PublishedAt: "2024-01-01"},
	}

	_ = Apply(items, Query{Sort: SortTitle})

	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}

func TestApply_EmptyResultIsNotAnError(t *testing.T) {
	result := Apply(podcastItems(), Query{Text: "no such thing", Sort: SortDateDesc})
	assert.NotNil(t, result)
	assert.Len(t, result, 0)
}

func ids(items []Item) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
