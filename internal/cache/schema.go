package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency.
// expires_at is NULL for entries that follow the configured default TTL.

// OpenLibraryTable caches Open Library lookup documents.
const OpenLibraryTable = "openlibrary_cache"

// OpenLibraryCacheSchema defines the schema for the Open Library document cache
const OpenLibraryCacheSchema = `
CREATE TABLE IF NOT EXISTS openlibrary_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_openlibrary_cached_at ON openlibrary_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	OpenLibraryCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	OpenLibraryTable: true,
}

// Sources maps the source names accepted on the command line to tables.
var Sources = map[string]string{
	"openlibrary": OpenLibraryTable,
}
