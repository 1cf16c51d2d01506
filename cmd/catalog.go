package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/library"
)

// QueueCmd groups the queue commands
type QueueCmd struct {
	Status  QueueStatusCmd  `cmd:"" help:"Print the queue lengths"`
	Rebuild QueueRebuildCmd `cmd:"" help:"Rebuild the queues from the catalog"`
}

// QueueStatusCmd represents the queue status command
type QueueStatusCmd struct{}

// QueueRebuildCmd represents the queue rebuild command
type QueueRebuildCmd struct {
	Force bool `short:"f" help:"Rescan every book instead of pruning stale entries"`
}

func (q *QueueStatusCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		cover, genre := lib.QueueLens()
		_, err := fmt.Fprintf(stdout, "books\t%d\ncover\t%d\ngenre\t%d\n", lib.Len(), cover, genre)
		return err
	})
}

func (q *QueueRebuildCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		if err := lib.RebuildQueues(q.Force); err != nil {
			return err
		}
		cover, genre := lib.QueueLens()
		slog.Info("Queues rebuilt", "force", q.Force, "cover", cover, "genre", genre)
		return nil
	})
}

// GenreCmd groups the genre commands
type GenreCmd struct {
	List       GenreListCmd       `cmd:"" help:"List the allowed genres"`
	Add        GenreAddCmd        `cmd:"" help:"Add a user genre"`
	Rename     GenreRenameCmd     `cmd:"" help:"Rename a genre and every book carrying it"`
	Delete     GenreDeleteCmd     `cmd:"" help:"Delete a genre and clear it from its books"`
	Recanonize GenreRecanonizeCmd `cmd:"" help:"Re-apply renames and deletions to every book"`
}

// GenreListCmd represents the genre list command
type GenreListCmd struct {
	Books bool `help:"Also print the number of books per genre"`
}

// GenreAddCmd represents the genre add command
type GenreAddCmd struct {
	Name string `arg:"" help:"Genre name"`
}

// GenreRenameCmd represents the genre rename command
type GenreRenameCmd struct {
	From string `arg:"" help:"Current name"`
	To   string `arg:"" help:"New name"`
}

// GenreDeleteCmd represents the genre delete command
type GenreDeleteCmd struct {
	Name string `arg:"" help:"Genre name"`
}

// GenreRecanonizeCmd represents the genre recanonize command
type GenreRecanonizeCmd struct{}

func (g *GenreListCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		if !g.Books {
			for _, name := range lib.Genres() {
				if _, err := fmt.Fprintln(stdout, name); err != nil {
					return err
				}
			}
			return nil
		}
		for _, group := range library.GroupByGenre(lib.Books()) {
			if _, err := fmt.Fprintf(stdout, "%s\t%d\n", group.Genre, len(group.Books)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *GenreAddCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		name, err := lib.AddGenre(g.Name)
		if err != nil {
			return err
		}
		slog.Info("Genre added", "genre", name)
		return nil
	})
}

func (g *GenreRenameCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		n, err := lib.RenameGenre(g.From, g.To)
		if err != nil {
			return err
		}
		slog.Info("Genre renamed", "from", g.From, "to", g.To, "books", n)
		return nil
	})
}

func (g *GenreDeleteCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		n, err := lib.DeleteGenre(g.Name)
		if err != nil {
			return err
		}
		slog.Info("Genre deleted", "genre", g.Name, "books_cleared", n)
		return nil
	})
}

func (g *GenreRecanonizeCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		n, err := lib.RecanonizeGenres()
		if err != nil {
			return err
		}
		slog.Info("Genres recanonized", "books", n)
		return nil
	})
}

// TagsCmd groups the tag commands
type TagsCmd struct {
	Derive TagsDeriveCmd `cmd:"" help:"Print the subgenre tags found in a subject string"`
	Merge  TagsMergeCmd  `cmd:"" help:"Merge two comma separated tag lists"`
	Recent TagsRecentCmd `cmd:"" help:"Print the most recently used tags"`
	Add    TagsAddCmd    `cmd:"" help:"Add tags to a book"`
	Remove TagsRemoveCmd `cmd:"" name:"rm" help:"Remove a tag from a book"`
}

// TagsDeriveCmd represents the tags derive command
type TagsDeriveCmd struct {
	Subjects string `arg:"" help:"Comma or semicolon separated subjects"`
	Genre    string `arg:"" help:"Genre the tags belong to"`
}

// TagsMergeCmd represents the tags merge command
type TagsMergeCmd struct {
	Existing string `arg:"" help:"Existing tags, comma separated"`
	Incoming string `arg:"" help:"Incoming tags, comma separated"`
}

// TagsRecentCmd represents the tags recent command
type TagsRecentCmd struct {
	Limit int `short:"n" help:"Number of tags" default:"6"`
}

// TagsAddCmd represents the tags add command
type TagsAddCmd struct {
	ID   string `arg:"" help:"Book ID"`
	Tags string `arg:"" help:"Tags separated by commas, semicolons or newlines"`
}

// TagsRemoveCmd represents the tags rm command
type TagsRemoveCmd struct {
	ID  string `arg:"" help:"Book ID"`
	Tag string `arg:"" help:"Tag to remove"`
}

func (t *TagsDeriveCmd) Run() error {
	return printTags(library.DeriveTags(t.Subjects, t.Genre))
}

func (t *TagsMergeCmd) Run() error {
	return printTags(library.MergeTags(strings.Split(t.Existing, ","), strings.Split(t.Incoming, ",")))
}

func (t *TagsRecentCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		return printTags(lib.RecentTags(t.Limit))
	})
}

func (t *TagsAddCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		tags, err := lib.AddTags(t.ID, t.Tags)
		if err != nil {
			return err
		}
		return printTags(tags)
	})
}

func (t *TagsRemoveCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		tags, err := lib.RemoveTag(t.ID, t.Tag)
		if err != nil {
			return err
		}
		return printTags(tags)
	})
}

func printTags(tags []string) error {
	_, err := fmt.Fprintln(stdout, strings.Join(tags, ", "))
	return err
}
