package resolve

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Matcher selects the candidates that approximately contain query.
// maxDistance is the allowed number of edits as a fraction of the query length.
type Matcher interface {
	Match(query string, candidates []string, maxDistance float64) []string
}

// Agrep matches like an approximate grep: query may occur anywhere inside a candidate with
// up to ceil(maxDistance * len(query)) insertions, deletions or substitutions.
// Comparison is case-insensitive.
type Agrep struct{}

// Match returns the matching candidates in their original order. An empty query matches nothing.
func (Agrep) Match(query string, candidates []string, maxDistance float64) []string {
	if query == "" {
		return nil
	}
	limit := MaxEdits(utf8.RuneCountInString(query), maxDistance)
	var matches []string
	for _, c := range candidates {
		if Distance(query, c) <= limit {
			matches = append(matches, c)
		}
	}
	return matches
}

// MaxEdits converts a normalized distance into an edit budget for a pattern of n runes.
func MaxEdits(n int, maxDistance float64) int {
	if maxDistance <= 0 || n == 0 {
		return 0
	}
	// The epsilon keeps exact products such as 5*0.2 from rounding up to 2.
	return int(math.Ceil(float64(n)*maxDistance - 1e-9))
}

// Distance returns the smallest edit distance between pattern and any substring of text,
// ignoring case.
func Distance(pattern, text string) int {
	p := []rune(strings.ToLower(pattern))
	t := []rune(strings.ToLower(text))

	// prev[j] is the cost of matching the pattern prefix against a substring ending at t[j-1].
	// Row zero is all zeroes because a match may start anywhere in text.
	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for i := 1; i <= len(p); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if p[i-1] == t[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	best := prev[0]
	for _, d := range prev[1:] {
		best = min(best, d)
	}
	return best
}
