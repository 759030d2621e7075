package listing

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Rank powers the site-wide search box. Unlike the listing filter, which is
// an exact substring match, this returns items ordered by how closely their
// title matches the query.
func Rank(query string, items []Item) []Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Item{}
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)

	result := make([]Item, 0, len(ranks))
	for _, r := range ranks {
		result = append(result, items[r.OriginalIndex])
	}
	return result
}
