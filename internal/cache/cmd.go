package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: openlibrary" required:""`
}

// PruneCacheCmd removes expired entries from every cache table.
type PruneCacheCmd struct{}

func sourceNames() string {
	names := make([]string, 0, len(Sources))
	for name := range Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (i *InvalidateCacheCmd) Run() error {
	slog.Info("Invalidating cache", "source", i.Source, "database", viper.GetString("cache.dbfile"))

	tableName, ok := Sources[i.Source]
	if !ok {
		return fmt.Errorf("invalid cache source '%s'; valid sources are: %s", i.Source, sourceNames())
	}

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	rowsDeleted, err := cacheInstance.InvalidateSource(tableName)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", rowsDeleted)
	return nil
}

func (p *PruneCacheCmd) Run() error {
	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	ttl := configuredTTL()
	var total int64
	for table := range ValidCacheTableNames {
		n, err := cacheInstance.ClearExpired(table, ttl)
		if err != nil {
			return err
		}
		total += n
	}
	slog.Info("Cache pruned", "rows_deleted", total)
	return nil
}
