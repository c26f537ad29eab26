package discovery

import "sync"

// fileCache memoizes raw file text and parsed YAML documents by path.
// Discovery re-reads the same ancestor prompttest.yml for every suite below
// it; the cache keeps that to one read and one parse per file. The mutex
// keeps a Discoverer safe to share across goroutines.
type fileCache struct {
	mu     sync.Mutex
	text   map[string]string
	parsed map[string]map[string]any
}

func newFileCache() *fileCache {
	return &fileCache{
		text:   make(map[string]string),
		parsed: make(map[string]map[string]any),
	}
}

func (c *fileCache) getText(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.text[path]
	return text, ok
}

func (c *fileCache) putText(path, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text[path] = text
}

func (c *fileCache) getParsed(path string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.parsed[path]
	return doc, ok
}

func (c *fileCache) putParsed(path string, doc map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parsed[path] = doc
}

func (c *fileCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = make(map[string]string)
	c.parsed = make(map[string]map[string]any)
}
