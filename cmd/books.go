package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/config"
	"github.com/lepinkainen/shelfkeeper/internal/library"
	"github.com/lepinkainen/shelfkeeper/internal/tui"
)

// AddCmd represents the add command
type AddCmd struct {
	Title     string `help:"Book title" required:""`
	Author    string `help:"Author as it should be displayed"`
	ISBN      string `name:"isbn" help:"ISBN-10 or ISBN-13, any punctuation"`
	Publisher string `help:"Publisher"`
	Year      string `help:"Publication year or date"`
	Genre     string `help:"Genre; must be one of the allowed genres"`
	Tags      string `help:"Comma separated tags"`
}

// ShowCmd represents the show command
type ShowCmd struct {
	Book string `arg:"" help:"Book ID, or a search query when no book has that ID"`
}

// ReadCmd represents the read command
type ReadCmd struct {
	ID string `arg:"" help:"Book ID"`
}

// RemoveCmd represents the rm command
type RemoveCmd struct {
	ID string `arg:"" help:"Book ID"`
}

// SearchCmd represents the search command
type SearchCmd struct {
	Query string `arg:"" help:"Search terms"`
	Limit int    `short:"n" help:"Maximum number of matching names" default:"20"`
}

// ISBNCmd represents the isbn command
type ISBNCmd struct {
	Value string `arg:"" help:"Raw ISBN value"`
}

func withLibrary(fn func(lib *library.Library) error) error {
	lib, err := openLibrary(config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open library at %s: %w", config.DataDir, err)
	}
	return fn(lib)
}

func (a *AddCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		in := catalog.Book{
			Title:     a.Title,
			Creators:  a.Author,
			ISBN:      a.ISBN,
			Publisher: a.Publisher,
			Year:      a.Year,
		}
		b, err := lib.Add(in)
		if err != nil {
			return err
		}
		if strings.TrimSpace(a.Genre) != "" {
			if _, err := lib.SetGenre(b.ID, a.Genre); err != nil {
				return err
			}
		}
		if strings.TrimSpace(a.Tags) != "" {
			if _, err := lib.AddTags(b.ID, a.Tags); err != nil {
				return err
			}
		}

		slog.Info("Book saved", "id", b.ID, "title", b.Title)
		_, err = fmt.Fprintln(stdout, b.ID)
		return err
	})
}

func (s *ShowCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		b, ok := lib.Get(s.Book)
		if !ok {
			matches := lib.Find(s.Book, 0)
			res, err := selectBook(s.Book, matches)
			if err != nil {
				return err
			}
			if res.Action != tui.ActionSelected || res.Selection == nil {
				return fmt.Errorf("%w: %s", library.ErrBookNotFound, s.Book)
			}
			b = *res.Selection
		}
		return writeJSON(b)
	})
}

func (r *ReadCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		read, err := lib.ToggleRead(r.ID)
		if err != nil {
			return err
		}
		slog.Info("Read flag updated", "id", r.ID, "read", read)
		return nil
	})
}

func (r *RemoveCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		if err := lib.Delete(r.ID); err != nil {
			return err
		}
		slog.Info("Book removed", "id", r.ID)
		return nil
	})
}

func (s *SearchCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		for _, b := range lib.Find(s.Query, s.Limit) {
			if _, err := fmt.Fprintf(stdout, "%s\t%s\t%s\n", b.ID, b.DisplayTitle(), b.AuthorDisplay()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (i *ISBNCmd) Run() error {
	canonical := library.CanonicalISBN(i.Value)
	if canonical == "" {
		return fmt.Errorf("no valid ISBN in %q", i.Value)
	}
	_, err := fmt.Fprintln(stdout, canonical)
	return err
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
