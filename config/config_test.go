package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"merklepatriciatrie/triedb"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "halfpath", cfg.Scheme)
	require.False(t, cfg.Secured)
	require.Equal(t, defaultCleanCacheBytes, cfg.CleanCacheBytes)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `Scheme = "hash"
DataDir = "./data"
Secured = true
CleanCacheBytes = 1048576
DecodedCacheSize = 8192
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "hash", cfg.Scheme)
	require.Equal(t, "./data", cfg.DataDir)
	require.True(t, cfg.Secured)
	require.Equal(t, 1048576, cfg.CleanCacheBytes)
	require.Equal(t, 8192, cfg.DecodedCacheSize)
}

func TestLoadAppliesDefaultCleanCacheWhenZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `Scheme = "current"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultCleanCacheBytes, cfg.CleanCacheBytes)
}

func TestOpenBuildsMemStorageByDefault(t *testing.T) {
	cfg := Default()
	storage, forest, err := cfg.Open()
	require.NoError(t, err)
	require.Equal(t, triedb.SchemeHalfPath, storage.GetScheme())

	forest.Put(nil, []byte("k"), []byte("v"))
	require.Equal(t, []byte("v"), forest.Get(nil, []byte("k")))
}

func TestOpenBuildsLevelStorageWhenDataDirSet(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = filepath.Join(dir, "db")

	storage, forest, err := cfg.Open()
	require.NoError(t, err)
	require.Equal(t, triedb.SchemeHalfPath, storage.GetScheme())

	forest.Put(nil, []byte("k"), []byte("v"))
	_, err = forest.Commit(nil)
	require.NoError(t, err)
}

func TestDefaultIsStable(t *testing.T) {
	a := Default()
	b := Default()
	require.Equal(t, *a, *b)
}
