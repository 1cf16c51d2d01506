package testutil

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/shelfkeeper/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("subdir", "file.txt")
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(env.RootDir(), "subdir", "file.txt"), path)
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("a/b.txt", "content")
	assert.True(t, env.FileExists("a/b.txt"))
	assert.Equal(t, "content", env.ReadFileString("a/b.txt"))
}

func TestTestEnv_ListFilesAndSnapshot(t *testing.T) {
	env := NewTestEnv(t)

	assert.Empty(t, env.ListFiles("missing"))

	env.WriteFileString("dir/b.txt", "B")
	env.WriteFileString("dir/a.txt", "A")
	assert.Equal(t, []string{"a.txt", "b.txt"}, env.ListFiles("dir"))
	assert.Equal(t, map[string]string{"a.txt": "A", "b.txt": "B"}, env.Snapshot("dir"))
}

func TestCoverImage(t *testing.T) {
	data := CoverImage(t, 32, 48)
	assert.Greater(t, len(data), 1500)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	assert.NotEqual(t, data, CoverImageSeed(t, 32, 48, 2))
}

func TestSetTestConfig(t *testing.T) {
	env := NewTestEnv(t)
	SetTestConfig(t, env)

	assert.Equal(t, env.Path("library"), config.DataDir)
	assert.Zero(t, config.SyncDelay)
	assert.False(t, config.CacheEnabled)
	assert.Equal(t, config.DefaultSyncWorkers, config.SyncWorkers)
}

func TestSetViperValue(t *testing.T) {
	ResetConfig(t)

	SetViperValue(t, "test.key", "value")
	assert.Equal(t, "value", viper.GetString("test.key"))
}

func TestSetupTestCache(t *testing.T) {
	ResetConfig(t)
	env := NewTestEnv(t)

	dbPath := SetupTestCache(t, env)
	assert.Equal(t, dbPath, viper.GetString("cache.dbfile"))
	assert.True(t, env.FileExists("cache"))
}
