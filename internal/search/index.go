package search

import (
	"sort"
	"strings"
)

const (
	// DefaultLimit is used when Search is given a non-positive limit.
	DefaultLimit = 6
	// FuzzyThreshold is the minimum similarity for the typo-tolerant pass.
	FuzzyThreshold = 0.62
	// fuzzyMinLen is the shortest normalized query that gets a fuzzy pass.
	fuzzyMinLen = 3
)

var stopwords = map[string]struct{}{"the": {}, "of": {}, "and": {}, "a": {}, "an": {}}

type candidate struct {
	orig   string
	norm   string
	tokens []string
}

// Index holds de-duplicated display strings and a token index over their
// normalized forms. An Index is read-only after Build and safe for
// concurrent queries.
type Index struct {
	cands  []candidate
	tokens map[string][]int
}

// Build indexes values in order. Values that normalize to the same text as
// an earlier one are dropped, so the first spelling seen is kept.
func Build(values []string) *Index {
	idx := &Index{tokens: make(map[string][]int)}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		n := Normalize(v)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}

		pos := len(idx.cands)
		c := candidate{orig: v, norm: n, tokens: strings.Fields(n)}
		idx.cands = append(idx.cands, c)

		indexed := make(map[string]struct{}, len(c.tokens))
		for _, t := range c.tokens {
			if _, stop := stopwords[t]; stop {
				continue
			}
			if _, done := indexed[t]; done {
				continue
			}
			indexed[t] = struct{}{}
			idx.tokens[t] = append(idx.tokens[t], pos)
		}
	}
	return idx
}

// Len returns the number of candidates.
func (idx *Index) Len() int { return len(idx.cands) }

// Candidates returns the indexed display strings in insertion order.
func (idx *Index) Candidates() []string {
	out := make([]string, len(idx.cands))
	for i, c := range idx.cands {
		out[i] = c.orig
	}
	return out
}

type scored struct {
	score int
	orig  string
}

func sortScored(s []scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].orig < s[j].orig
	})
}

func anyPrefix(tokens []string, prefix string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// Search returns up to limit display strings matching query, best first.
// Prefix and substring matches are ranked first; when they do not fill the
// limit and the query has at least three characters, close spellings are
// appended.
func (idx *Index) Search(query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := Normalize(query)
	if q == "" || idx == nil {
		return []string{}
	}

	var qTokens []string
	for _, t := range strings.Fields(q) {
		if _, stop := stopwords[t]; !stop {
			qTokens = append(qTokens, t)
		}
	}

	var hits []scored
	for _, i := range idx.narrow(qTokens) {
		c := idx.cands[i]
		if !strings.HasPrefix(c.norm, q) && !strings.Contains(c.norm, q) && !anyPrefix(c.tokens, q) {
			continue
		}
		hits = append(hits, scored{score: score(c, q, qTokens), orig: c.orig})
	}
	sortScored(hits)

	results := make([]string, 0, limit)
	for _, h := range hits {
		if len(results) == limit {
			return results
		}
		results = append(results, h.orig)
	}
	if len(results) >= limit || len([]rune(q)) < fuzzyMinLen {
		return results
	}

	taken := make(map[string]struct{}, len(results))
	for _, r := range results {
		taken[r] = struct{}{}
	}
	first := string([]rune(q)[0])

	var fuzzy []scored
	for _, c := range idx.cands {
		if _, ok := taken[c.orig]; ok {
			continue
		}
		if !anyPrefix(c.tokens, first) {
			continue
		}
		sim := similarity(q, c.norm)
		if sim < FuzzyThreshold {
			continue
		}
		bonus := 0
		switch {
		case strings.HasPrefix(c.norm, q):
			bonus = 100
		case anyPrefix(c.tokens, q):
			bonus = 60
		case strings.Contains(c.norm, q):
			bonus = 30
		}
		fuzzy = append(fuzzy, scored{score: bonus + int(sim*100), orig: c.orig})
	}
	sortScored(fuzzy)

	for _, f := range fuzzy {
		if len(results) == limit {
			break
		}
		results = append(results, f.orig)
	}
	return results
}

// narrow returns the candidate positions holding a token that starts with
// one of the query tokens, or every position when none do.
func (idx *Index) narrow(qTokens []string) []int {
	if len(qTokens) > 0 {
		set := make(map[int]struct{})
		for token, positions := range idx.tokens {
			for _, qt := range qTokens {
				if strings.HasPrefix(token, qt) {
					for _, p := range positions {
						set[p] = struct{}{}
					}
					break
				}
			}
		}
		if len(set) > 0 {
			out := make([]int, 0, len(set))
			for p := range set {
				out = append(out, p)
			}
			sort.Ints(out)
			return out
		}
	}
	out := make([]int, len(idx.cands))
	for i := range out {
		out[i] = i
	}
	return out
}

func score(c candidate, q string, qTokens []string) int {
	s := 0
	if strings.HasPrefix(c.norm, q) {
		s += 100
	}
	if len(qTokens) > 0 && anyPrefix(c.tokens, qTokens[0]) {
		s += 50
	}
	if strings.Contains(c.norm, q) {
		s += 10
	}
	if len(qTokens) > 0 {
		all := true
		for _, qt := range qTokens {
			if anyPrefix(c.tokens, qt) {
				s += 8
			} else {
				all = false
			}
		}
		if all {
			s += 20
		}
	}
	return s
}
