// Package config loads the ambient trie and storage options: which key
// scheme node storage starts in, where the backing LevelDB database
// lives, and how large the clean/decoded node caches are. Grounded on
// the teacher pack's TOML config loader.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"merklepatriciatrie/cmpt"
	"merklepatriciatrie/kv"
	"merklepatriciatrie/triedb"
)

// Config holds the options a process wires into triedb.Storage and
// cmpt.Forest at startup.
type Config struct {
	// Scheme is "hash", "halfpath", or "current" (case-insensitive).
	Scheme string `toml:"Scheme"`
	// DataDir is where the on-disk LevelDB store is opened. Empty means
	// "use an in-memory store" (no persistence across process restarts).
	DataDir string `toml:"DataDir"`
	// Secured configures new tries to keccak-hash their keys by default.
	Secured bool `toml:"Secured"`
	// CleanCacheBytes sizes the node storage's clean-node fastcache.
	CleanCacheBytes int `toml:"CleanCacheBytes"`
	// DecodedCacheSize is a decoded-node LRU size, in entries. It is read
	// from the file but Open does not apply it: Open builds no Loader, and
	// triedb.NewLoader always uses its built-in size.
	DecodedCacheSize int `toml:"DecodedCacheSize"`
}

const defaultCleanCacheBytes = 32 * 1024 * 1024

// Default returns the configuration used when no file is present: a
// HalfPath-scheme, unsecured, in-memory store with a 32MiB clean cache.
func Default() *Config {
	return &Config{
		Scheme:          "halfpath",
		DataDir:         "",
		Secured:         false,
		CleanCacheBytes: defaultCleanCacheBytes,
	}
}

// Load reads a TOML config file at path, writing out Default() first if
// the file does not yet exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if cfg.CleanCacheBytes == 0 {
		cfg.CleanCacheBytes = defaultCleanCacheBytes
	}
	return cfg, nil
}

// ResolveScheme parses the Scheme field into a triedb.Scheme, defaulting
// to HalfPath for an empty or unrecognized value.
func (c *Config) ResolveScheme() triedb.Scheme {
	switch strings.ToLower(c.Scheme) {
	case "hash":
		return triedb.SchemeHash
	case "current":
		return triedb.SchemeCurrent
	default:
		return triedb.SchemeHalfPath
	}
}

// Open builds a node storage and owner-scoped trie forest from c: a
// LevelDB-backed Store when DataDir is set, an in-memory Store otherwise.
func (c *Config) Open() (*triedb.Storage, *cmpt.Forest, error) {
	var backing kv.Store
	if c.DataDir != "" {
		ls, err := kv.OpenLevelStore(c.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("config: open leveldb at %s: %w", c.DataDir, err)
		}
		backing = ls
	} else {
		backing = kv.NewMemStore()
	}

	cacheBytes := c.CleanCacheBytes
	if cacheBytes == 0 {
		cacheBytes = defaultCleanCacheBytes
	}

	storage := triedb.NewStorage(backing, c.ResolveScheme(), cacheBytes)
	forest := cmpt.NewForest(storage, c.Secured)
	return storage, forest, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write default %s: %w", path, err)
	}
	return cfg, nil
}
