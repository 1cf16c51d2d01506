package genre

import (
	"regexp"
	"strings"
)

var genericTags = map[string]struct{}{
	"fiction": {}, "nonfiction": {}, "non-fiction": {}, "books": {}, "literature": {},
	"novel": {}, "novels": {}, "stories": {}, "story": {}, "general": {},
	"english": {}, "american": {}, "20th century": {}, "21st century": {},
}

// subtags lists subgenre phrases that do not contain their genre keyword.
var subtags = map[string]map[string]struct{}{
	"science fiction": set(
		"space opera", "dystopia", "cyberpunk", "time travel", "post-apocalyptic",
		"military science fiction", "hard science fiction", "soft science fiction",
		"alternate history", "alien invasion", "first contact", "near future",
	),
	"fantasy": set(
		"epic fantasy", "high fantasy", "urban fantasy", "dark fantasy",
		"sword and sorcery", "portal fantasy", "grimdark",
	),
	"romance": set(
		"historical romance", "paranormal romance", "romantic comedy",
		"contemporary romance", "dark romance",
	),
	"horror": set(
		"gothic horror", "cosmic horror", "body horror", "psychological horror",
		"supernatural horror",
	),
	"mystery":     set("cozy mystery", "police procedural", "noir", "detective fiction"),
	"thriller":    set("psychological thriller", "legal thriller", "political thriller"),
	"young adult": set("coming of age"),
}

var (
	subjectSplit = regexp.MustCompile(`[;,]`)
	userTagSplit = regexp.MustCompile(`[,\n;]+`)
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// NormTag lower-cases a tag and collapses internal whitespace.
func NormTag(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsGenericTag reports whether t is empty, stoplisted or shorter than 3 characters.
func IsGenericTag(t string) bool {
	t = NormTag(t)
	if t == "" {
		return true
	}
	if _, ok := genericTags[t]; ok {
		return true
	}
	return len([]rune(t)) < 3
}

// SplitSubjects splits a subject string on commas and semicolons.
func SplitSubjects(s string) []string {
	var out []string
	for _, p := range subjectSplit.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitUserTags splits free-form user input on commas, semicolons and
// newlines into normalized tags.
func SplitUserTags(raw string) []string {
	var out []string
	for _, p := range userTagSplit.Split(raw, -1) {
		if t := NormTag(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Keyword returns the lower-cased term used to recognise subgenre phrases of g.
func Keyword(g string) string {
	k := strings.ToLower(strings.TrimSpace(g))
	switch k {
	case "science fiction", "sci fi", "sci-fi", "scifi":
		return "science fiction"
	}
	return k
}

// DeriveTags returns the subgenre tags of g found in subjects, in first-seen order.
func DeriveTags(subjects, g string) []string {
	kw := Keyword(g)
	if kw == "" {
		return []string{}
	}
	wholeWord := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	known := subtags[kw]

	out := []string{}
	seen := make(map[string]struct{})
	for _, raw := range SplitSubjects(subjects) {
		t := NormTag(raw)
		if IsGenericTag(t) || t == kw {
			continue
		}
		_, isKnown := known[t]
		if !wholeWord.MatchString(t) && !isKnown {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// MergeTags unions existing and incoming tags, normalized, with generic
// entries dropped and the first occurrence of each tag kept.
func MergeTags(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	add := func(tags []string) {
		for _, raw := range tags {
			t := NormTag(raw)
			if IsGenericTag(t) {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	add(existing)
	add(incoming)
	return out
}
