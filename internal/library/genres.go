package library

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/genre"
)

// UnknownGenre is the group name for books without a genre.
const UnknownGenre = "Unknown"

// DefaultTopTags is the TopTags limit used when none is given.
const DefaultTopTags = 8

// Genres returns the allowed genres sorted case-insensitively.
func (l *Library) Genres() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.genres.Active()
}

// AddGenre registers a user genre and returns its stored spelling.
func (l *Library) AddGenre(g string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, err := l.genres.Add(g)
	if err != nil {
		return "", err
	}
	return name, l.genres.Save()
}

// RenameGenre renames a genre and moves every book carrying it to the new
// name. It returns the number of books changed.
func (l *Library) RenameGenre(oldName, newName string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, to, err := l.genres.Rename(oldName, newName)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, b := range l.catalog.Books() {
		if !strings.EqualFold(genre.TitleCase(b.Genre), from) {
			continue
		}
		b.Genre = to
		l.catalog.Put(b)
		changed++
	}
	return changed, errors.Join(l.genres.Save(), l.saveLocked())
}

// DeleteGenre removes a genre from the allowed set and clears it from every
// book, which puts those books back on the genre queue. It returns the
// number of books changed.
func (l *Library) DeleteGenre(g string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	names, err := l.genres.Delete(g)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, b := range l.catalog.Books() {
		current := genre.TitleCase(b.Genre)
		if current == "" || !slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, current) }) {
			continue
		}
		b.Genre = ""
		l.catalog.Put(b)
		l.queues.Genre.Add(b.ID)
		changed++
	}
	return changed, errors.Join(l.genres.Save(), l.saveLocked(), l.queues.Save())
}

// RecanonizeGenres maps every stored genre onto the allowed set. When any
// book changes the queues are rebuilt from scratch. It returns the number of
// books changed.
func (l *Library) RecanonizeGenres() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := l.catalog.Recanonize(l.genres)
	if changed == 0 {
		return 0, nil
	}
	return changed, errors.Join(l.saveLocked(), l.queues.Rebuild(true))
}

// GenreGroup is a genre and its books ordered by title.
type GenreGroup struct {
	Genre string
	Books []catalog.Book
}

// GroupByGenre groups books by genre. Books without a genre fall under
// UnknownGenre. Groups are sorted case-insensitively by name.
func GroupByGenre(books []catalog.Book) []GenreGroup {
	byName := make(map[string][]catalog.Book)
	for _, b := range books {
		g := strings.TrimSpace(b.Genre)
		if g == "" {
			g = UnknownGenre
		}
		byName[g] = append(byName[g], b)
	}

	groups := make([]GenreGroup, 0, len(byName))
	for g, list := range byName {
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Title) < strings.ToLower(list[j].Title)
		})
		groups = append(groups, GenreGroup{Genre: g, Books: list})
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Genre) < strings.ToLower(groups[j].Genre)
	})
	return groups
}

// TopTags returns the most common tags across the books in ids. Ties keep
// the order in which tags were first seen.
func (l *Library) TopTags(ids []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultTopTags
	}

	counts := make(map[string]int)
	var order []string
	for _, b := range l.GetMany(ids) {
		for _, t := range b.Tags {
			t = genre.NormTag(t)
			if t == "" {
				continue
			}
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
