// Package sha1cache implements the text SHA-1 map file of spec.md §6.4: one
// "<key-sha1> <git-sha1>\n" per line, loaded at start and rewritten at end,
// with no concurrent-writer contract (mutation happens on the main thread
// per spec.md §5). It implements internal/gitdriver.PersistentMap.
package sha1cache

import (
	"bufio"
	"fmt"
	"os"
	"sort"
)

// Cache is an in-memory key->value map backed by a flat text file.
type Cache struct {
	entries map[string]string
	dirty   bool
}

// Load reads path if it exists, or starts empty.
func Load(path string) (*Cache, error) {
	c := &Cache{entries: map[string]string{}}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var key, val string
		if _, err := fmt.Sscanf(line, "%s %s", &key, &val); err != nil {
			return nil, fmt.Errorf("sha1cache: %s:%d: malformed line %q", path, lineNo, line)
		}
		c.entries[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get implements gitdriver.PersistentMap.
func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Set implements gitdriver.PersistentMap.
func (c *Cache) Set(key, value string) {
	if c.entries[key] == value {
		return
	}
	c.entries[key] = value
	c.dirty = true
}

// Dirty reports whether any entry changed since Load.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// Save rewrites path with every entry, sorted by key for a stable diff
// between runs.
func (c *Cache) Save(path string) error {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s %s\n", k, c.entries[k]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
