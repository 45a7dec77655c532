// Package catalog provides the list of canonical IANA timezone identifiers known to timenow.
//
// The identifier list is embedded at build time and the Go timezone database is linked in
// through time/tzdata, so every identifier in the catalog can be loaded with
// time.LoadLocation even on hosts without /usr/share/zoneinfo.
package catalog

import (
	_ "embed"
	"slices"
	"strings"
	"sync"
	_ "time/tzdata" // every catalog entry must be loadable
)

//go:embed zones.txt
var zonesFile string

// Catalog is an immutable, ordered set of canonical timezone identifiers.
type Catalog struct {
	index map[string]struct{}
	ids   []string
}

// New builds a catalog from ids. Blank entries are skipped and duplicates are dropped,
// keeping the first occurrence so the order stays stable.
func New(ids []string) *Catalog {
	c := &Catalog{
		index: make(map[string]struct{}, len(ids)),
		ids:   make([]string, 0, len(ids)),
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := c.index[id]; dup {
			continue
		}
		c.index[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c := New(strings.Split(zonesFile, "\n"))
	if c.Len() == 0 {
		// Nothing can be resolved or validated without a catalog.
		panic("catalog: embedded timezone list is empty")
	}
	return c
})

// Default returns the catalog built from the embedded IANA identifier list.
func Default() *Catalog {
	return defaultCatalog()
}

// All returns every identifier in catalog order.
func (c *Catalog) All() []string {
	return slices.Clone(c.ids)
}

// IsValid reports whether s is exactly (case-sensitively) a catalog identifier.
func (c *Catalog) IsValid(s string) bool {
	_, ok := c.index[s]
	return ok
}

// Len returns the number of identifiers.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// FinalSegment returns the part of id after its last '/', e.g. "Perth" for "Australia/Perth".
func FinalSegment(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}
