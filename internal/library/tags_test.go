package library

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagEditing(t *testing.T) {
	lib, _ := openTestLibrary(t)
	stored, err := lib.Add(catalog.Book{Title: "Dune", ISBN13: "9780441172719", Tags: []string{"desert"}})
	require.NoError(t, err)

	tags, err := lib.AddTags(stored.ID, "Spice, politics;\n  Desert ")
	require.NoError(t, err)
	assert.Equal(t, []string{"desert", "spice", "politics"}, tags)

	tags, err = lib.SetTags(stored.ID, []string{" Ecology ", "ecology", "", "Fiction"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ecology", "fiction"}, tags, "user tags keep generic entries")

	tags, err = lib.RemoveTag(stored.ID, "ECOLOGY")
	require.NoError(t, err)
	assert.Equal(t, []string{"fiction"}, tags)

	got, err := lib.Tags(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fiction"}, got)

	_, err = lib.AddTags("isbn:nope", "x")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRecentTags(t *testing.T) {
	lib, env := openTestLibrary(t)
	ids, err := lib.AddMany([]catalog.Book{
		{Title: "Dune", ISBN13: "9780441172719"},
		{Title: "Hyperion", ISBN13: "9780553283686"},
	})
	require.NoError(t, err)

	_, err = lib.AddTags(ids[0], "desert, spice")
	require.NoError(t, err)
	_, err = lib.AddTags(ids[1], "pilgrims, spice")
	require.NoError(t, err)

	assert.Equal(t, []string{"pilgrims", "spice", "desert"}, lib.RecentTags(0))
	assert.Equal(t, []string{"pilgrims"}, lib.RecentTags(1))

	var saved []string
	require.NoError(t, json.Unmarshal(env.ReadFile(filepath.Join("library", RecentTagsFile)), &saved))
	assert.Equal(t, []string{"pilgrims", "spice", "desert"}, saved)

	// Removing the last use of a tag forgets it.
	_, err = lib.RemoveTag(ids[0], "desert")
	require.NoError(t, err)
	assert.Equal(t, []string{"pilgrims", "spice"}, lib.RecentTags(0))

	// Tags still on a book survive a removal elsewhere.
	_, err = lib.RemoveTag(ids[0], "spice")
	require.NoError(t, err)
	assert.Equal(t, []string{"pilgrims", "spice"}, lib.RecentTags(0))

	reopened, err := Open(env.Path("library"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pilgrims", "spice"}, reopened.RecentTags(0))
}

func TestRecentTagsAreCapped(t *testing.T) {
	lib, _ := openTestLibrary(t)
	stored, err := lib.Add(catalog.Book{Title: "Dune", ISBN13: "9780441172719"})
	require.NoError(t, err)

	for i := 0; i < maxRecentTags+5; i++ {
		_, err := lib.AddTags(stored.ID, "tag "+string(rune('a'+i%26))+string(rune('a'+i/26)))
		require.NoError(t, err)
	}

	lib.mu.Lock()
	defer lib.mu.Unlock()
	assert.Len(t, lib.recent, maxRecentTags)
	assert.Equal(t, "tag "+string(rune('a'+(maxRecentTags+4)%26))+string(rune('a'+(maxRecentTags+4)/26)), lib.recent[0])
}

func TestRecentTagsIgnoreMalformedFile(t *testing.T) {
	env := newEnvWithFile(t, RecentTagsFile, `{"not": "a list"}`)
	lib, err := Open(env.Path("library"))
	require.NoError(t, err)
	assert.Empty(t, lib.RecentTags(0))
}
