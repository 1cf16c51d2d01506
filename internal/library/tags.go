package library

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
	"github.com/lepinkainen/shelfkeeper/internal/genre"
)

const (
	maxRecentTags     = 50
	DefaultRecentTags = 6
)

func loadRecentTags(path string) []string {
	var raw []string
	if _, err := fileutil.ReadJSONFile(path, &raw); err != nil {
		slog.Warn("Ignoring unreadable recent tags", "path", path, "error", err)
		return nil
	}
	return uniqueTags(raw)
}

func (l *Library) saveRecentTags() error {
	recent := l.recent
	if recent == nil {
		recent = []string{}
	}
	if err := fileutil.WriteJSONFile(recent, filepath.Join(l.dir, RecentTagsFile)); err != nil {
		return fmt.Errorf("saving recent tags: %w", err)
	}
	return nil
}

// uniqueTags normalizes tags and drops blanks and repeats.
func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = genre.NormTag(t); t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Tags returns the tags of id.
func (l *Library) Tags(id string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return nil, err
	}
	return b.Tags, nil
}

// SetTags replaces the tags of id.
func (l *Library) SetTags(id string, tags []string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return nil, err
	}
	b.Tags = uniqueTags(tags)
	l.catalog.Put(b)
	return b.Tags, l.saveLocked()
}

// AddTags parses raw as comma, semicolon or newline separated tags and adds
// them to id. The added tags become the most recently used ones.
func (l *Library) AddTags(id, raw string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return nil, err
	}
	incoming := genre.SplitUserTags(raw)
	if len(incoming) == 0 {
		return b.Tags, nil
	}
	b.Tags = uniqueTags(append(slices.Clone(b.Tags), incoming...))
	l.catalog.Put(b)
	l.noteTagUse(incoming)
	if err := l.saveLocked(); err != nil {
		return b.Tags, err
	}
	return b.Tags, l.saveRecentTags()
}

// RemoveTag removes tag from id and forgets it as a recent tag when no book
// carries it anymore.
func (l *Library) RemoveTag(id, tag string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return nil, err
	}
	t := genre.NormTag(tag)
	b.Tags = slices.DeleteFunc(b.Tags, func(s string) bool { return genre.NormTag(s) == t })
	l.catalog.Put(b)
	l.pruneRecent()
	if err := l.saveLocked(); err != nil {
		return b.Tags, err
	}
	return b.Tags, l.saveRecentTags()
}

// RecentTags returns up to limit recently used tags that some book still
// carries, most recent first. A limit of zero or less means DefaultRecentTags.
func (l *Library) RecentTags(limit int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = DefaultRecentTags
	}
	existing := l.tagSet()
	var out []string
	for _, t := range l.recent {
		if _, ok := existing[t]; ok {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func (l *Library) noteTagUse(tags []string) {
	used := uniqueTags(tags)
	rest := slices.DeleteFunc(slices.Clone(l.recent), func(t string) bool {
		return slices.Contains(used, t)
	})
	l.recent = append(used, rest...)
	if len(l.recent) > maxRecentTags {
		l.recent = l.recent[:maxRecentTags]
	}
}

func (l *Library) pruneRecent() {
	existing := l.tagSet()
	l.recent = slices.DeleteFunc(l.recent, func(t string) bool {
		_, ok := existing[t]
		return !ok
	})
}

func (l *Library) tagSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, b := range l.catalog.Books() {
		for _, t := range b.Tags {
			set[genre.NormTag(t)] = struct{}{}
		}
	}
	return set
}
