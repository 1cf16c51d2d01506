package library

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/enrichment"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
	"github.com/lepinkainen/shelfkeeper/internal/queue"
	"github.com/lepinkainen/shelfkeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	duneISBN     = "9780441172719"
	hyperionISBN = "9780553283686"
)

// fakeOpenLibrary serves the books API for known ISBNs, empty searches and
// large covers for every ISBN in covers.
type fakeOpenLibrary struct {
	records  map[string]string
	covers   map[string][]byte
	coverReq atomic.Int32
	onCover  func(n int32)
}

func (f *fakeOpenLibrary) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/books":
		key := r.URL.Query().Get("bibkeys")
		w.Header().Set("Content-Type", "application/json")
		rec, ok := f.records[strings.TrimPrefix(key, "ISBN:")]
		if !ok {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"` + key + `": ` + rec + `}`))
	case r.URL.Path == "/search.json":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs": []}`))
	case strings.HasPrefix(r.URL.Path, "/b/isbn/"):
		n := f.coverReq.Add(1)
		if f.onCover != nil {
			f.onCover(n)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/b/isbn/"), ".jpg")
		data, ok := f.covers[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func newFakeOpenLibrary(t *testing.T) (*fakeOpenLibrary, *openlibrary.Client) {
	t.Helper()
	fake := &fakeOpenLibrary{
		records: map[string]string{
			duneISBN: `{"key": "/books/OL26242482M", "publish_date": "September 1990",
				"publishers": [{"name": "Ace"}],
				"subjects": [{"name": "Science fiction"}, {"name": "Space opera"}, {"name": "Fiction"}]}`,
			hyperionISBN: `{"key": "/books/OL7594431M", "subjects": [{"name": "Science fiction"}]}`,
		},
		covers: map[string][]byte{
			duneISBN + "-L":     testutil.CoverImageSeed(t, 40, 60, 1),
			hyperionISBN + "-L": testutil.CoverImageSeed(t, 40, 60, 2),
		},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := openlibrary.NewClient(
		openlibrary.WithBaseURL(srv.URL),
		openlibrary.WithCoversURL(srv.URL),
		openlibrary.WithRateLimiter(nil),
		openlibrary.WithBackoff(time.Millisecond),
		openlibrary.WithRetryAttempts(1),
	)
	return fake, client
}

func TestSyncDownloadsAndEnriches(t *testing.T) {
	lib, env := openTestLibrary(t)
	_, client := newFakeOpenLibrary(t)
	ids, err := lib.AddMany([]catalog.Book{
		{Title: "Dune", Creators: "Frank Herbert", ISBN13: duneISBN},
		{Title: "Nowhere", Creators: "Nobody"},
	})
	require.NoError(t, err)

	summary, err := lib.Sync(context.Background(), client, enrichment.Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, enrichment.Summary{Total: 2, Downloaded: 1, Enriched: 1, Failed: 1, Outcome: enrichment.Completed}, summary)

	dune, _ := lib.Get(ids[0])
	assert.Equal(t, "Science Fiction", dune.Genre)
	assert.Equal(t, "Ace", dune.Publisher)
	assert.Equal(t, "/books/OL26242482M", dune.OpenLibraryWorkKey)
	assert.Equal(t, []string{"space opera"}, dune.Tags)
	assert.Equal(t, env.Path("library", CoversDir, duneISBN+".jpg"), lib.CoverPath(ids[0]))

	// Results are on disk, and only the book nothing was found for stays queued.
	reopened, err := Open(env.Path("library"))
	require.NoError(t, err)
	saved, _ := reopened.Get(ids[0])
	assert.Equal(t, "Science Fiction", saved.Genre)
	assert.False(t, reopened.NeedsCover(ids[0]))
	assert.Equal(t, []string{ids[1]}, readIDs(t, env, queue.CoverQueueFile))
	assert.Equal(t, []string{ids[1]}, readIDs(t, env, queue.GenreQueueFile))
}

func TestSyncCancelRollsBackCovers(t *testing.T) {
	lib, env := openTestLibrary(t)
	fake, client := newFakeOpenLibrary(t)
	ids, err := lib.AddMany([]catalog.Book{
		{Title: "Dune", ISBN13: duneISBN},
		{Title: "Hyperion", ISBN13: hyperionISBN},
	})
	require.NoError(t, err)

	before := env.Snapshot(filepath.Join("library", CoversDir))
	stopper := enrichment.NewStopper()
	// The second book's first cover request cancels the run.
	fake.onCover = func(n int32) {
		if n == 2 {
			stopper.Cancel()
		}
	}

	summary, err := lib.Sync(context.Background(), client, enrichment.Options{Workers: 1, Stopper: stopper})
	require.NoError(t, err)
	assert.Equal(t, enrichment.Cancelled, summary.Outcome)

	assert.Equal(t, before, env.Snapshot(filepath.Join("library", CoversDir)))
	var index map[string]string
	require.NoError(t, json.Unmarshal(env.ReadFile(filepath.Join("library", CoverIndexFile)), &index))
	assert.Empty(t, index)
	assert.ElementsMatch(t, ids, readIDs(t, env, queue.CoverQueueFile))

	// Genre enrichment of the finished book is kept.
	var enrichedGenres int
	for _, id := range ids {
		if b, _ := lib.Get(id); b.Genre == "Science Fiction" {
			enrichedGenres++
		}
	}
	assert.Equal(t, 1, enrichedGenres)
}

func TestSyncStopAndSaveKeepsCovers(t *testing.T) {
	lib, env := openTestLibrary(t)
	fake, client := newFakeOpenLibrary(t)
	ids, err := lib.AddMany([]catalog.Book{
		{Title: "Dune", ISBN13: duneISBN},
		{Title: "Hyperion", ISBN13: hyperionISBN},
	})
	require.NoError(t, err)

	stopper := enrichment.NewStopper()
	fake.onCover = func(n int32) {
		if n == 2 {
			stopper.StopAndSave()
		}
	}

	summary, err := lib.Sync(context.Background(), client, enrichment.Options{Workers: 1, Stopper: stopper})
	require.NoError(t, err)
	assert.Equal(t, enrichment.Stopped, summary.Outcome)
	assert.Equal(t, 1, summary.Downloaded)

	files := env.ListFiles(filepath.Join("library", CoversDir))
	require.Len(t, files, 1)
	var index map[string]string
	require.NoError(t, json.Unmarshal(env.ReadFile(filepath.Join("library", CoverIndexFile)), &index))
	require.Len(t, index, 1)

	var kept string
	for id := range index {
		kept = id
	}
	assert.Contains(t, ids, kept)
	assert.NotContains(t, readIDs(t, env, queue.CoverQueueFile), kept)
}

func TestSyncNothingPending(t *testing.T) {
	lib, _ := openTestLibrary(t)
	fake, client := newFakeOpenLibrary(t)

	summary, err := lib.Sync(context.Background(), client, enrichment.Options{})
	require.NoError(t, err)
	assert.Equal(t, enrichment.Summary{Outcome: enrichment.Completed}, summary)
	assert.Zero(t, fake.coverReq.Load())
}
