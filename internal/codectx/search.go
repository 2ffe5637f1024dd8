package codectx

import (
	"errors"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyQuery is returned when a search query has no searchable terms.
var ErrEmptyQuery = errors.New("search query has no searchable terms")

// SearchResult is one tracked file ranked against a query.
type SearchResult struct {
	Path  string
	Score float64
}

// Search ranks tracked files by how densely they mention the query terms.
// Scores are normalized so the best match is 1. Files that mention no term
// are left out.
func (c *Context) Search(query string) ([]SearchResult, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	var results []SearchResult
	best := 0.0
	for _, path := range c.Paths() {
		words := tokenize(path + "\n" + strings.Join(c.files[path], "\n"))
		if len(words) == 0 {
			continue
		}
		counts := make(map[string]int, len(words))
		for _, w := range words {
			counts[w]++
		}

		hits := 0
		for _, term := range terms {
			hits += counts[term]
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(words))
		best = max(best, score)
		results = append(results, SearchResult{Path: path, Score: score})
	}

	for i := range results {
		results[i].Score /= best
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
