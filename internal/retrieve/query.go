package retrieve

import "strings"

// buildOrQuery rewrites a free-text query into an OR-joined
// websearch_to_tsquery input, dropping words of length <= 2, matching
// hybrid_search.py's build_or_query. A query with no words longer than
// two characters is passed through unchanged.
func buildOrQuery(query string) string {
	fields := strings.Fields(query)
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		w = strings.TrimSpace(w)
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return query
	}
	return strings.Join(words, " OR ")
}
