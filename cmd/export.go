package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lepinkainen/shelfkeeper/internal/datastore"
	"github.com/lepinkainen/shelfkeeper/internal/library"
	"github.com/lepinkainen/shelfkeeper/internal/notes"
	"github.com/spf13/viper"
)

var (
	newSQLiteStore    = func(path string) datastore.Store { return datastore.NewSQLiteStore(path) }
	newDatasetteStore = func(url, token string) datastore.Store { return datastore.NewDatasetteClient(url, token) }
)

// ExportCmd represents the export command
type ExportCmd struct {
	DB           string `help:"SQLite file to write (defaults to --datasette-db)"`
	DatasetteURL string `help:"Remote Datasette base URL; when set the SQLite file is not written"`
	Database     string `help:"Remote Datasette database name" default:"shelfkeeper"`
	Notes        string `help:"Write one markdown note per book into this directory instead"`
}

func (e *ExportCmd) store() (datastore.Store, string) {
	url := e.DatasetteURL
	if url == "" {
		url = viper.GetString("datasette.url")
	}
	if url != "" {
		return newDatasetteStore(url, viper.GetString("datasette.token")), url
	}

	path := e.DB
	if path == "" {
		path = viper.GetString("datasette.dbfile")
	}
	return newSQLiteStore(path), path
}

func (e *ExportCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		cover := func(id string) string {
			if p := lib.CoverPath(id); p != "" {
				return filepath.Base(p)
			}
			return ""
		}

		if e.Notes != "" {
			n, err := notes.Write(e.Notes, lib.Books(), cover)
			if err != nil {
				return err
			}
			slog.Info("Notes written", "dir", e.Notes, "books", n)
			return nil
		}

		store, target := e.store()
		if err := store.Connect(); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", target, err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close export store", "error", err)
			}
		}()

		n, err := datastore.ExportBooks(store, e.Database, lib.Books(), cover)
		if err != nil {
			return err
		}
		slog.Info("Catalog exported", "target", target, "books", n)
		return nil
	})
}
