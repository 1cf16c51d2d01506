package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/lepinkainen/shelfkeeper/internal/cache"
	"github.com/lepinkainen/shelfkeeper/internal/config"
	"github.com/lepinkainen/shelfkeeper/internal/enrichment"
	"github.com/lepinkainen/shelfkeeper/internal/errors"
	"github.com/lepinkainen/shelfkeeper/internal/library"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
	"github.com/lepinkainen/shelfkeeper/internal/tui"
	"github.com/spf13/viper"
)

var (
	openLibrary = library.Open
	newLookup   = func() enrichment.Lookup { return openlibrary.NewFromConfig() }
	runSyncView = tui.RunSync
	selectBook  = tui.SelectBook

	stdout io.Writer = os.Stdout

	envKeyReplacer = strings.NewReplacer(".", "_")
)

// CLI represents the complete command structure for the shelfkeeper application
type CLI struct {
	// Global flags
	DataDir string `help:"Directory holding the catalog, queues and covers (defaults to data_dir in config)"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`
	NoCache     bool   `help:"Do not read or write the lookup cache"`

	// Datasette flags
	DatasetteDB string `help:"Path to SQLite database file used by export" default:"./shelfkeeper.db"`

	Add    AddCmd    `cmd:"" help:"Add a book or merge it into an existing record"`
	Show   ShowCmd   `cmd:"" help:"Print a book as JSON"`
	Read   ReadCmd   `cmd:"" help:"Toggle the read flag of a book"`
	Remove RemoveCmd `cmd:"" name:"rm" help:"Remove a book from the catalog"`
	Search SearchCmd `cmd:"" help:"Search the catalog by title, author and publisher"`
	Sync   SyncCmd   `cmd:"" help:"Fetch missing covers and genres from Open Library"`
	Queue  QueueCmd  `cmd:"" help:"Inspect or rebuild the sync queues"`
	Genre  GenreCmd  `cmd:"" help:"Manage the allowed genres"`
	Tags   TagsCmd   `cmd:"" help:"Tag helpers"`
	ISBN   ISBNCmd   `cmd:"" name:"isbn" help:"Print the canonical form of an ISBN"`
	Export ExportCmd `cmd:"" help:"Export the catalog to SQLite or a remote Datasette"`
	Cache  CacheCmd  `cmd:"" help:"Manage the lookup cache"`
}

// CacheCmd groups the cache maintenance commands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Delete every cached entry of a source"`
	Prune      cache.PruneCacheCmd      `cmd:"" help:"Delete expired cache entries"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("shelfkeeper"),
		kong.Description("A local book catalog with Open Library enrichment."),
		kong.UsageOnError(),
	)

	if cli.Verbose {
		initLogging(true)
	}
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		if errors.IsStopProcessingError(err) {
			slog.Info("Stopped", "reason", err.Error())
		} else {
			slog.Error("Command failed", "error", err)
		}
		os.Exit(1)
	}
}

func initConfig() {
	config.SetDefaults()

	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days
	viper.SetDefault("datasette.dbfile", "./shelfkeeper.db")

	// SHELFKEEPER_SYNC_WORKERS overrides sync.workers and so on
	viper.SetEnvPrefix("shelfkeeper")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	if err := viper.BindEnv("datasette.token", "DATASETTE_TOKEN"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("Config file not found, using defaults")
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetDataDir(cli.DataDir)

	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
	if cli.NoCache {
		config.CacheEnabled = false
	}

	viper.Set("datasette.dbfile", cli.DatasetteDB)
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
