package h1ql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/Hacker0x01/h1ql/pkg/authz"
)

// rewriteCache memoizes rewrite results for one snapshot version at a
// time. A snapshot swap invalidates everything, since any entry may be
// stale; within a version, results are immutable.
type rewriteCache struct {
	mu      sync.RWMutex
	version string
	max     int
	entries map[string]string
}

func newRewriteCache(max int) *rewriteCache {
	return &rewriteCache{max: max, entries: map[string]string{}}
}

func (c *rewriteCache) get(version, key string) (string, bool) {
	if c.max <= 0 {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.version != version {
		return "", false
	}
	out, ok := c.entries[key]
	return out, ok
}

func (c *rewriteCache) put(version, key, value string) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version || len(c.entries) >= c.max {
		c.version = version
		c.entries = make(map[string]string, c.max/4)
	}
	c.entries[key] = value
}

// fingerprint canonically identifies one rewrite: query text, requester
// identity and attributes, and the snapshot version.
func fingerprint(version, sql string, req authz.Requester) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", version, sql, req.Subject)

	names := make([]string, 0, len(req.Attributes))
	for name := range req.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "%s=%#v\x00", name, req.Attributes[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
