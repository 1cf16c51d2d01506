package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const booksAPIDune = `{
  "ISBN:9780441172719": {
    "key": "/books/OL26242482M",
    "publishers": [{"name": "Ace"}, {"name": "Penguin"}],
    "publish_date": "August 2, 2005",
    "subjects": [{"name": "Science fiction"}, "Desert planets", {"name": "  "}],
    "identifiers": {"isbn_13": ["9780441172719"], "isbn_10": ["0441172717"]}
  }
}`

const searchDune = `{"numFound":1,"docs":[{
  "key": "/works/OL893415W",
  "cover_i": 11481354,
  "edition_key": ["OL26242482M", "OL1M"],
  "subject": ["Science fiction", "Dune (Imaginary place)"],
  "isbn": ["0441172717", "9780441172719"],
  "publisher": ["Ace Books"],
  "first_publish_year": 1965
}]}`

func TestByISBNUsesBooksAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, "ISBN:9780441172719", r.URL.Query().Get("bibkeys"))
		assert.Equal(t, "data", r.URL.Query().Get("jscmd"))
		_, _ = w.Write([]byte(booksAPIDune))
	}))
	defer server.Close()

	client := newTestClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	doc, err := client.ByISBN(context.Background(), "978-0-441-17271-9")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "/books/OL26242482M", doc.Key)
	assert.Equal(t, []string{"Science fiction", "Desert planets"}, doc.Subjects)
	assert.Equal(t, []string{"Ace"}, doc.Publishers)
	assert.Equal(t, 2005, doc.FirstPublishYear)
	assert.Equal(t, []string{"9780441172719", "0441172717"}, doc.ISBNs)
}

func TestByISBNFallsBackToSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/books":
			_, _ = w.Write([]byte(`{}`))
		case "/search.json":
			assert.Equal(t, "isbn:9780441172719", r.URL.Query().Get("q"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, SearchFields, r.URL.Query().Get("fields"))
			_, _ = w.Write([]byte(searchDune))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	doc, err := client.ByISBN(context.Background(), "9780441172719")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "/works/OL893415W", doc.Key)
	assert.EqualValues(t, 11481354, doc.CoverID)
}

func TestSearchBuildsQuery(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(searchDune))
	}))
	defer server.Close()

	client := newTestClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	doc, err := client.Search(context.Background(), " Dune ", "Frank Herbert")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "title:Dune AND author:Frank Herbert", query.Load())

	_, err = client.Search(context.Background(), "Dune", "")
	require.NoError(t, err)
	assert.Equal(t, "title:Dune", query.Load())
}

func TestSearchWithoutTitle(t *testing.T) {
	client := newTestClient(WithHTTPClient(&testHTTPDoer{}))
	doc, err := client.Search(context.Background(), "  ", "Someone")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSearchNoDocs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	defer server.Close()

	client := newTestClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	doc, err := client.Search(context.Background(), "Nothing", "")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestBestFallsThroughToTitleSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/books" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("q") == "isbn:9780441172719" {
			_, _ = w.Write([]byte(`{"docs":[]}`))
			return
		}
		_, _ = w.Write([]byte(searchDune))
	}))
	defer server.Close()

	client := newTestClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithRetryAttempts(1))

	doc, err := client.Best(context.Background(), "Dune", "Frank Herbert", "9780441172719")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "/works/OL893415W", doc.Key)
}

func TestBestReportsErrorWhenNothingFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithRetryAttempts(1))

	doc, err := client.Best(context.Background(), "", "", "9780441172719")
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestDocHelpers(t *testing.T) {
	doc := &Doc{
		EditionKeys: []string{"OL1M", "OL2M"},
		Subjects:    []string{"a", "b", "c"},
		ISBNs:       []string{"bogus", "0-441-17271-7", "978-0441172719", "12345", "0441013597"},
		Publishers:  []string{" ", "Ace"},
	}
	assert.Equal(t, "a, b", doc.SubjectString(2))
	assert.Equal(t, "a, b, c", doc.SubjectString(12))
	assert.Equal(t, "OL1M", doc.EditionKey())
	assert.Equal(t, "Ace", doc.Publisher())
	assert.Equal(t, "", doc.Year())
	assert.Equal(t, []string{"0441172717", "9780441172719", "0441013597"}, doc.AlternateISBNs(3))
	assert.Equal(t, []string{"0441172717"}, doc.AlternateISBNs(1))
	assert.Equal(t, "9780441172719", doc.BestISBN())

	doc.FirstPublishYear = 1965
	assert.Equal(t, "1965", doc.Year())
	assert.Equal(t, "", (&Doc{}).EditionKey())
	assert.Equal(t, "0441172717", (&Doc{ISBNs: []string{"0441172717"}}).BestISBN())
}
