package memory

import (
	"sort"
	"strings"
	"unicode"

	"graphmem/internal/store"
)

// rankTriples orders candidate triples by lexical overlap with the query.
// Embedding similarity already chose which nodes to pull; this second pass
// scores the edges themselves against the query tokens, which is a better
// proxy for answer relevance. Stable sort, score descending, so backend
// iteration order breaks ties deterministically.
func rankTriples(query string, triples []store.Triple) []store.Triple {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(triples) == 0 {
		return triples
	}

	querySet := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = struct{}{}
	}

	type scored struct {
		triple store.Triple
		score  float64
	}
	ranked := make([]scored, len(triples))
	for i, t := range triples {
		ranked[i] = scored{triple: t, score: overlapScore(querySet, t)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	out := make([]store.Triple, len(ranked))
	for i, s := range ranked {
		out[i] = s.triple
	}
	return out
}

// overlapScore counts triple tokens present in the query, normalized by the
// triple's token count so short exact matches outrank long rambling edges.
func overlapScore(querySet map[string]struct{}, t store.Triple) float64 {
	tokens := tripleTokens(t)
	if len(tokens) == 0 {
		return 0
	}
	matches := 0
	for _, tok := range tokens {
		if _, ok := querySet[tok]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(tokens))
}

// tripleTokens flattens a triple into lexical tokens. Normalized names use
// underscores as separators, so those split too.
func tripleTokens(t store.Triple) []string {
	var tokens []string
	for _, part := range []string{t.Source, t.Relationship, t.Destination} {
		tokens = append(tokens, tokenize(part)...)
	}
	return tokens
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
