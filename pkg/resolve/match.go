package resolve

import (
	"strings"
	"unicode"
)

// Words splits query on runs of non-letter characters.
// "Perth, Australia" yields ["Perth" "Australia"]; a query without letters yields nil.
func Words(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// suffixMatches returns the indexes of identifiers whose lowercased final segment equals q.
func suffixMatches(q string, suffixes []string) []int {
	q = strings.ToLower(q)
	var idx []int
	for i, s := range suffixes {
		if s == q {
			idx = append(idx, i)
		}
	}
	return idx
}

// wordMatches returns the indexes of identifiers containing every word, in any order.
func wordMatches(words []string, lowered []string) []int {
	if len(words) == 0 {
		return nil
	}
	want := make([]string, len(words))
	for i, w := range words {
		want[i] = strings.ToLower(w)
	}

	var idx []int
	for i, id := range lowered {
		if containsAll(id, want) {
			idx = append(idx, i)
		}
	}
	return idx
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

// shortest returns the shortest identifier, preferring the earliest on equal length.
func shortest(ids []string) string {
	best := ids[0]
	for _, id := range ids[1:] {
		if len(id) < len(best) {
			best = id
		}
	}
	return best
}
