package policy

import (
	"sort"
	"strings"
)

// Snapshot is an immutable view of all registered rules. A snapshot is
// shared by reference across concurrent requests; any in-flight request
// keeps the snapshot it started with across reloads.
type Snapshot struct {
	version string
	entries map[string]*TableEntry
}

// Version returns the snapshot's identity, unique per load.
func (s *Snapshot) Version() string {
	return s.version
}

// Lookup finds the entry for a table reference. Unqualified references
// fall back to the default schema, and qualified references in the default
// schema match entries registered under the bare table name.
// Lookup never blocks and never allocates rules.
func (s *Snapshot) Lookup(schema, table string) (*TableEntry, bool) {
	const defaultSchema = "public"

	if schema != "" {
		if e, ok := s.entries[Resource{Schema: schema, Table: table}.Key()]; ok {
			return e, true
		}
		if strings.EqualFold(schema, defaultSchema) {
			e, ok := s.entries[Resource{Table: table}.Key()]
			return e, ok
		}
		return nil, false
	}

	if e, ok := s.entries[Resource{Table: table}.Key()]; ok {
		return e, true
	}
	e, ok := s.entries[Resource{Schema: defaultSchema, Table: table}.Key()]
	return e, ok
}

// Entries returns all entries ordered by resource key.
func (s *Snapshot) Entries() []*TableEntry {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*TableEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.entries[k])
	}
	return out
}

// Len returns the number of registered table entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}
