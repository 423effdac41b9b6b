package benchmark

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// MatchKind classifies the outcome of a benchmark lookup.
type MatchKind int

const (
	// MatchInvalid means the query did not normalize to the id grammar.
	MatchInvalid MatchKind = iota
	// MatchExact means the normalized query is a known id.
	MatchExact
	// MatchFuzzy means a similar known id scored at or above the threshold.
	MatchFuzzy
	// MatchNone means no known id was similar enough.
	MatchNone
)

// DefaultThreshold is the minimum similarity ratio (0-100) accepted for
// a fuzzy match.
const DefaultThreshold = 80

// MatchResult carries the matched id (empty for MatchInvalid and
// MatchNone) plus the similarity score of the winning candidate.
type MatchResult struct {
	ID    string
	Kind  MatchKind
	Score int
}

// Message renders the user-facing text for the result.
func (r MatchResult) Message() string {
	switch r.Kind {
	case MatchExact:
		return fmt.Sprintf("Exact match found for %s.", r.ID)
	case MatchFuzzy:
		return fmt.Sprintf("Did you mean %s?", r.ID)
	case MatchInvalid:
		return "Invalid benchmark format."
	default:
		return "No matching benchmark found."
	}
}

// Matcher finds the best benchmark id for a free-text query.
type Matcher struct {
	// Threshold is the minimum fuzzy score on the 0-100 scale.
	Threshold int
}

// NewMatcher returns a Matcher with the default threshold.
func NewMatcher() *Matcher {
	return &Matcher{Threshold: DefaultThreshold}
}

// Match normalizes raw and resolves it against known. Exact set
// membership short-circuits before any similarity scoring. Otherwise
// every candidate is scored with a levenshtein similarity ratio and the
// best one wins if it reaches the threshold. Candidates are scanned in
// lexical order and replaced only on a strictly greater score, so ties
// resolve to the lexically smallest id regardless of input ordering.
func (m *Matcher) Match(raw string, known []string) MatchResult {
	normalized, ok := Normalize(raw)
	if !ok {
		return MatchResult{Kind: MatchInvalid}
	}

	for _, id := range known {
		if id == normalized {
			return MatchResult{ID: normalized, Kind: MatchExact, Score: 100}
		}
	}

	candidates := append([]string(nil), known...)
	sort.Strings(candidates)

	best := MatchResult{Kind: MatchNone}
	for _, id := range candidates {
		score := Ratio(normalized, id)
		if score > best.Score {
			best = MatchResult{ID: id, Kind: MatchFuzzy, Score: score}
		}
	}
	if best.Score < m.Threshold {
		return MatchResult{Kind: MatchNone}
	}
	return best
}

// Ratio is an edit-distance similarity on a 0-100 scale: 100 means
// identical strings, 0 means nothing in common.
func Ratio(a, b string) int {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist > longest {
		dist = longest
	}
	return 100 - (100*dist)/longest
}
