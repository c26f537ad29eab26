package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DiskCache stores raw LLM responses on disk so unchanged tests cost
// nothing on a rerun. Each entry is a plain text file named after the
// request key; a missing or empty file is a miss.
type DiskCache struct {
	dir string
}

// NewDiskCache returns a cache rooted at dir. The directory is created on
// the first write.
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

// Key derives the cache key for a request payload. Payloads hold only
// strings and numbers; json.Marshal sorts map keys, so equal payloads
// always produce the same key.
func Key(payload map[string]any) string {
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Read returns the cached response for key, reporting whether it was found.
func (c *DiskCache) Read(key string) (string, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil || len(strings.TrimSpace(string(data))) == 0 {
		return "", false
	}
	return string(data), true
}

// Write stores a response under key.
func (c *DiskCache) Write(key, value string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(key), []byte(value), 0o644)
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".txt")
}
