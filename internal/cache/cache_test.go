package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	if c.baseDir != tmpDir {
		t.Errorf("Expected baseDir %s, got %s", tmpDir, c.baseDir)
	}

	// Empty directory should fall back to the default location
	c2, err := New("")
	if err != nil {
		t.Fatalf("Failed to create cache with default dir: %v", err)
	}
	if c2.baseDir == "" {
		t.Error("Expected non-empty baseDir for default cache")
	}
}

func TestSetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	testData := map[string]interface{}{
		"name":  "test",
		"count": 42,
		"items": []string{"a", "b", "c"},
	}

	err = c.Set("test-key", testData, 24*time.Hour)
	if err != nil {
		t.Fatalf("Failed to set cache entry: %v", err)
	}

	var retrieved map[string]interface{}
	found, err := c.Get("test-key", &retrieved)
	if err != nil {
		t.Fatalf("Failed to get cache entry: %v", err)
	}
	if !found {
		t.Error("Expected cache hit, got miss")
	}

	if retrieved["name"] != "test" {
		t.Errorf("Expected name 'test', got %v", retrieved["name"])
	}
	if retrieved["count"].(float64) != 42 {
		t.Errorf("Expected count 42, got %v", retrieved["count"])
	}
}

func TestGetCacheMiss(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	var data interface{}
	found, err := c.Get("nonexistent-key", &data)
	if err != nil {
		t.Fatalf("Unexpected error on cache miss: %v", err)
	}
	if found {
		t.Error("Expected cache miss, got hit")
	}
}

func TestTTLExpiration(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	err = c.Set("test-key", "test-value", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to set cache entry: %v", err)
	}

	// Should be available immediately
	var retrieved string
	found, err := c.Get("test-key", &retrieved)
	if err != nil {
		t.Fatalf("Failed to get cache entry: %v", err)
	}
	if !found {
		t.Error("Expected cache hit")
	}

	// Wait for expiration
	time.Sleep(150 * time.Millisecond)

	found, err = c.Get("test-key", &retrieved)
	if err != nil {
		t.Fatalf("Unexpected error on expired entry: %v", err)
	}
	if found {
		t.Error("Expected cache miss due to expiration")
	}
}

func TestPerEntryTTL(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	if err := c.Set("short", 1, 50*time.Millisecond); err != nil {
		t.Fatalf("Failed to set short entry: %v", err)
	}
	if err := c.Set("long", 2, time.Hour); err != nil {
		t.Fatalf("Failed to set long entry: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	var v int
	if found, _ := c.Get("short", &v); found {
		t.Error("Expected short-TTL entry to be expired")
	}
	if found, _ := c.Get("long", &v); !found || v != 2 {
		t.Errorf("Expected long-TTL entry to survive, found=%v v=%d", found, v)
	}
}

func TestInvalidCacheEntry(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	// Write invalid JSON to the cache file
	cacheFile := c.filePath("test-key")
	err = os.WriteFile(cacheFile, []byte("invalid json"), 0644)
	if err != nil {
		t.Fatalf("Failed to write invalid cache file: %v", err)
	}

	var data interface{}
	found, err := c.Get("test-key", &data)
	if err != nil {
		t.Fatalf("Unexpected error on invalid cache entry: %v", err)
	}
	if found {
		t.Error("Expected cache miss for invalid entry")
	}

	// Invalid file should be removed
	if _, err := os.Stat(cacheFile); !os.IsNotExist(err) {
		t.Error("Expected invalid cache file to be removed")
	}
}

func TestClear(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		err = c.Set(key, i, 24*time.Hour)
		if err != nil {
			t.Fatalf("Failed to set cache entry: %v", err)
		}
	}

	validCount, _, err := c.Stats()
	if err != nil {
		t.Fatalf("Failed to get cache stats: %v", err)
	}
	if validCount != 5 {
		t.Errorf("Expected 5 cache entries, got %d", validCount)
	}

	err = c.Clear()
	if err != nil {
		t.Fatalf("Failed to clear cache: %v", err)
	}

	if _, err := os.Stat(tmpDir); !os.IsNotExist(err) {
		entries, _ := os.ReadDir(tmpDir)
		if len(entries) > 0 {
			t.Errorf("Expected empty cache directory, got %d entries", len(entries))
		}
	}
}

func TestStatsWithExpiredEntries(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	err = c.Set("test-key", "test-value", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to set cache entry: %v", err)
	}

	validCount, _, err := c.Stats()
	if err != nil {
		t.Fatalf("Failed to get cache stats: %v", err)
	}
	if validCount != 1 {
		t.Errorf("Expected 1 valid entry, got %d", validCount)
	}

	time.Sleep(150 * time.Millisecond)

	// Expired entries no longer count but the file is still there
	validCount, totalSize, err := c.Stats()
	if err != nil {
		t.Fatalf("Failed to get cache stats after expiration: %v", err)
	}
	if validCount != 0 {
		t.Errorf("Expected 0 valid entries after expiration, got %d", validCount)
	}
	if totalSize == 0 {
		t.Error("Expected non-zero total size (file still exists)")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			key := string(rune('a' + idx))
			err := c.Set(key, idx, 24*time.Hour)
			if err != nil {
				t.Errorf("Failed to set cache entry %d: %v", idx, err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		var value int
		found, err := c.Get(key, &value)
		if err != nil {
			t.Errorf("Failed to get cache entry %d: %v", i, err)
		}
		if !found {
			t.Errorf("Expected to find cache entry for key %s", key)
		}
		if value != i {
			t.Errorf("Expected value %d, got %d", i, value)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("Failed to get default cache path: %v", err)
	}
	if path == "" {
		t.Error("Expected non-empty default cache path")
	}
	if !filepath.IsAbs(path) {
		t.Error("Expected absolute path")
	}
}

func TestCacheFilePathHashing(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	path1 := c.filePath("key1")
	path2 := c.filePath("key2")
	if path1 == path2 {
		t.Error("Expected different cache file paths for different keys")
	}

	if path1 != c.filePath("key1") {
		t.Error("Expected same cache file path for same key")
	}
}

func TestManuallyCorruptedEntry(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	// Valid JSON but not a cache entry; the zero expiry reads as expired
	badEntry := map[string]string{"wrong": "structure"}
	badData, _ := json.Marshal(badEntry)
	cacheFile := c.filePath("test-key")
	err = os.WriteFile(cacheFile, badData, 0644)
	if err != nil {
		t.Fatalf("Failed to write corrupted cache file: %v", err)
	}

	var data interface{}
	found, err := c.Get("test-key", &data)
	if err != nil {
		t.Fatalf("Unexpected error on corrupted entry: %v", err)
	}
	if found {
		t.Error("Expected cache miss for corrupted entry")
	}
}
