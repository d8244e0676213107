// Package cache provides disk-based caching for fetched API responses so
// repeated runs against the same target do not burn rate limit budget.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store is the cache interface the fetch layer consumes. Implementations
// must tolerate concurrent use from the analysis worker pool.
type Store interface {
	Get(key string, value interface{}) (bool, error)
	Set(key string, value interface{}, ttl time.Duration) error
	Clear() error
}

// DiskCache stores entries as JSON files keyed by the SHA-256 of the key.
type DiskCache struct {
	baseDir string
}

// entry wraps cached data with its expiry metadata.
type entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// New creates a disk cache rooted at baseDir, defaulting to the user cache
// directory when empty.
func New(baseDir string) (*DiskCache, error) {
	if baseDir == "" {
		var err error
		baseDir, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &DiskCache{baseDir: baseDir}, nil
}

// Get retrieves a cached value by key. Expired or corrupt entries are
// removed and reported as misses.
func (c *DiskCache) Get(key string, value interface{}) (bool, error) {
	cacheFile := c.filePath(key)

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(cacheFile)
		return false, nil
	}

	if time.Now().After(e.ExpiresAt) {
		_ = os.Remove(cacheFile)
		return false, nil
	}

	if err := json.Unmarshal(e.Data, value); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return true, nil
}

// Set stores a value with the given TTL.
func (c *DiskCache) Set(key string, value interface{}, ttl time.Duration) error {
	cacheFile := c.filePath(key)

	if err := os.MkdirAll(filepath.Dir(cacheFile), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	now := time.Now()
	e := entry{
		Key:       key,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	entryData, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.WriteFile(cacheFile, entryData, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Clear removes all cached entries.
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.baseDir)
}

// Stats returns the count of unexpired entries and the total size on disk.
func (c *DiskCache) Stats() (int, int64, error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	validCount := 0

	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		totalSize += info.Size()

		data, err := os.ReadFile(filepath.Join(c.baseDir, dirEntry.Name()))
		if err != nil {
			continue
		}

		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}

		if time.Now().Before(e.ExpiresAt) {
			validCount++
		}
	}

	return validCount, totalSize, nil
}

func (c *DiskCache) filePath(key string) string {
	// Hash the key so arbitrary strings map to safe filenames.
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(c.baseDir, hex.EncodeToString(hash[:])+".json")
}

// DefaultPath returns the default cache directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".gh-pulse", "cache"), nil
}
