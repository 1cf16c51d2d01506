// Package genre maps free-text subject strings onto a closed set of genres
// and derives subgenre tags from them.
package genre

import (
	"strings"
	"unicode"
)

// FictionGenres are the starter fiction genres.
var FictionGenres = []string{
	"Fantasy", "Contemporary", "Classics", "Childrens", "Manga", "Graphic Novels",
	"Horror", "LGBTQ+", "Mystery", "Supernatural", "Romance", "Science Fiction",
	"Short Stories", "Thriller", "Western", "Young Adult", "Poetry", "Drama",
	"Adventure", "Mythology",
}

// NonfictionGenres are the starter nonfiction genres.
var NonfictionGenres = []string{
	"Art & Photography", "Memoirs", "Essays", "Food & Drink", "History", "How-To/Guides",
	"Social Sciences", "Humor", "Philosophy", "Religion", "Science & Technology",
	"Self-Help", "Travel", "True Crime", "Nature", "Health & Medicine", "Finance",
	"Education", "Parenting", "Hobbies", "Home & Garden", "Reference",
}

// Rule maps any of its keywords, matched as a substring of the lower-cased
// subject string, to Genre.
type Rule struct {
	Genre    string
	Keywords []string
}

// Rules is evaluated in order; the first matching rule wins.
var Rules = []Rule{
	{"Fantasy", []string{"fantasy", "magic", "dragon"}},
	{"Mystery", []string{"mystery", "detective", "whodunit"}},
	{"Thriller", []string{"thriller", "suspense"}},
	{"Horror", []string{"horror", "ghost", "vampire", "zombie", "haunted"}},
	{"Romance", []string{"romance", "love story", "romantic"}},
	{"Science Fiction", []string{"science fiction", "sci-fi", "scifi", "dystopia", "cyberpunk", "space"}},
	{"Young Adult", []string{"young adult", "ya", "juvenile fiction", "teen"}},
	{"Manga", []string{"manga"}},
	{"Graphic Novels", []string{"graphic novel", "comics"}},
	{"Mythology", []string{"mythology", "myths", "legend"}},
	{"Poetry", []string{"poetry", "poems"}},
	{"Drama", []string{"drama", "plays", "theatre"}},
	{"Adventure", []string{"adventure", "quest"}},
	{"Western", []string{"western", "cowboy"}},
	{"Classics", []string{"classics", "classic literature"}},
	{"Childrens", []string{"children", "childrens", "picture book"}},
	{"LGBTQ+", []string{"lgbt", "lgbtq", "queer"}},
	{"Short Stories", []string{"short story"}},

	{"Memoirs", []string{"memoir", "autobiography"}},
	{"Essays", []string{"essay"}},
	{"History", []string{"history"}},
	{"How-To/Guides", []string{"how-to", "guide", "handbook", "manual"}},
	{"Social Sciences", []string{"social science", "sociology", "anthropology"}},
	{"Humor", []string{"humor", "comedy"}},
	{"Philosophy", []string{"philosophy"}},
	{"Religion", []string{"religion", "bible", "christian", "islam", "judaism", "buddh"}},
	{"Science & Technology", []string{"science", "technology", "computer", "physics", "biology"}},
	{"Self-Help", []string{"self-help", "self improvement", "personal development"}},
	{"Travel", []string{"travel"}},
	{"True Crime", []string{"true crime"}},
	{"Nature", []string{"nature", "wildlife", "environment"}},
	{"Health & Medicine", []string{"health", "medicine", "nutrition", "fitness"}},
	{"Finance", []string{"finance", "economics", "investing", "money"}},
	{"Education", []string{"education", "teaching", "school"}},
	{"Parenting", []string{"parenting"}},
	{"Hobbies", []string{"hobby", "craft"}},
	{"Home & Garden", []string{"home", "garden"}},
	{"Reference", []string{"reference", "encyclopedia", "dictionary"}},
	{"Art & Photography", []string{"art", "photography", "design"}},
	{"Food & Drink", []string{"food", "cook", "recipe", "drink"}},
}

// starters maps the lower-cased starter name to its canonical spelling.
var starters = func() map[string]string {
	m := make(map[string]string, len(FictionGenres)+len(NonfictionGenres))
	for _, g := range FictionGenres {
		m[strings.ToLower(g)] = g
	}
	for _, g := range NonfictionGenres {
		m[strings.ToLower(g)] = g
	}
	return m
}()

// Bucket returns the genre of the first rule matching subjects, or "".
func Bucket(subjects string) string {
	s := strings.ToLower(subjects)
	if strings.TrimSpace(s) == "" {
		return ""
	}
	for _, rule := range Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(s, kw) {
				return rule.Genre
			}
		}
	}
	return ""
}

// StarterOnly returns the canonical starter spelling of g, or "" when g is
// not a starter genre.
func StarterOnly(g string) string {
	return starters[strings.ToLower(strings.TrimSpace(g))]
}

// IsStarter reports whether g names a starter genre.
func IsStarter(g string) bool {
	return StarterOnly(g) != ""
}

// TitleCase upper-cases the first letter of every alphabetic run and
// lower-cases the rest, after trimming surrounding space.
func TitleCase(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
