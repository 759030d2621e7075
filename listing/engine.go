package listing

import (
	"sort"
	"strings"
	"time"

	"github.com/seedlight/beacon/shared"
)

type SortOrder string

const (
	SortDateDesc SortOrder = "date-desc"
	SortDateAsc  SortOrder = "date-asc"
	SortTitle    SortOrder = "title"

	// FacetAll is the sentinel value for a single-select facet that retains
	// every item.
	FacetAll = "all"
)

// Query captures everything a listing page can ask for: a free-text search,
// single-select facets, multi-select facets and a sort order. Facets combine
// with the text filter with AND semantics; the values within one multi-select
// facet combine with OR.
type Query struct {
	Text      string
	Facets    map[string]string
	FacetsAny map[string][]string
	Sort      SortOrder
}

func DefaultQuery() Query {
	return Query{Sort: SortDateDesc}
}

// Apply filters and sorts items according to the query. The input slice is
// never mutated; the result is always a fresh slice. An empty result is a
// valid outcome, not an error.
func Apply(items []Item, q Query) []Item {
	result := make([]Item, 0, len(items))
	text := strings.ToLower(strings.TrimSpace(q.Text))

	for _, item := range items {
		if text != "" && !matchesText(item, text) {
			continue
		}
		if !matchesFacets(item, q) {
			continue
		}
		result = append(result, item)
	}

	sortItems(result, q.Sort)

	return result
}

// matchesText retains an item if the query is a substring of any searchable
// field for its type.
func matchesText(item Item, query string) bool {
	for _, field := range searchableFields(item) {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// searchableFields returns the fields the free-text filter inspects. Title is
// always included; the rest depends on what the content type actually shows.
func searchableFields(item Item) []string {
	fields := []string{item.Title}
	switch item.Type {
	case shared.TYPE_BLOG, shared.TYPE_ARTICLE, shared.TYPE_JOURNAL, shared.TYPE_BOOK, shared.TYPE_PODCAST:
		fields = append(fields, item.Author, item.Excerpt)
		fields = append(fields, item.Tags...)
	case shared.TYPE_NEWS, shared.TYPE_MEDIAHIT:
		fields = append(fields, item.Author, item.Excerpt, item.Category)
	case shared.TYPE_EVENT:
		fields = append(fields, item.Excerpt, item.Location, item.Category)
	case shared.TYPE_GALLERY:
		fields = append(fields, item.Category)
	default:
		fields = append(fields, item.Author, item.Excerpt)
	}
	return fields
}

func matchesFacets(item Item, q Query) bool {
	for field, want := range q.Facets {
		if want == "" || want == FacetAll {
			continue
		}
		if !strings.EqualFold(facetValue(item, field), want) {
			return false
		}
	}
	for field, wants := range q.FacetsAny {
		if len(wants) == 0 {
			continue
		}
		value := facetValue(item, field)
		matched := false
		for _, want := range wants {
			if strings.EqualFold(value, want) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func facetValue(item Item, field string) string {
	switch field {
	case "category":
		return item.Category
	case "location":
		return item.Location
	case "author":
		return item.Author
	case "type":
		return item.Type
	default:
		return ""
	}
}

// sortItems orders the slice in place. Sorting is stable: items that compare
// equal, including items whose dates fail to parse, keep their original
// relative order.
func sortItems(items []Item, order SortOrder) {
	switch order {
	case SortDateAsc:
		sort.SliceStable(items, func(i, j int) bool {
			a, aOk := parseDate(items[i].PublishedAt)
			b, bOk := parseDate(items[j].PublishedAt)
			if !aOk || !bOk {
				return false
			}
			return a.Before(b)
		})
	case SortTitle:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
		})
	default:
		// date-desc is the default ordering everywhere on the site
		sort.SliceStable(items, func(i, j int) bool {
			a, aOk := parseDate(items[i].PublishedAt)
			b, bOk := parseDate(items[j].PublishedAt)
			if !aOk || !bOk {
				return false
			}
			return a.After(b)
		})
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
