package statics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SizeCache sums regular file sizes below a directory and memoizes the result
// for every directory it visits. Entries are never refreshed on their own;
// callers decide the cache lifetime and call Reset when the tree may have
// changed.
type SizeCache struct {
	mu    sync.Mutex
	sizes map[string]int64
}

// NewSizeCache returns an empty cache.
func NewSizeCache() *SizeCache {
	return &SizeCache{sizes: make(map[string]int64)}
}

// SizeOf returns the total size in bytes of regular files under dir,
// including nested directories. Symlinks and other special files are ignored.
func (c *SizeCache) SizeOf(dir string) (int64, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", dir, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizeOfLocked(abs)
}

// Reset drops every cached entry.
func (c *SizeCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes = make(map[string]int64)
}

// Len reports how many directories are cached.
func (c *SizeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sizes)
}

func (c *SizeCache) sizeOfLocked(dir string) (int64, error) {
	if size, ok := c.sizes[dir]; ok {
		return size, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var total int64
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			sub, err := c.sizeOfLocked(full)
			if err != nil {
				return 0, err
			}
			total += sub
		case e.Type().IsRegular():
			info, err := e.Info()
			if err != nil {
				return 0, fmt.Errorf("stat %s: %w", full, err)
			}
			total += info.Size()
		}
	}
	c.sizes[dir] = total
	return total, nil
}
