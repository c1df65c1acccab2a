package migrate

import (
	"errors"
	"fmt"
	"sort"
)

// ErrVersionNotFound is returned when a catalog lookup misses.
var ErrVersionNotFound = errors.New("migration version not found")

// Catalog is the append-only registry mapping version numbers to migrations.
type Catalog struct {
	migrations map[int]Migration
}

// NewCatalog builds a catalog from the given migrations. Duplicate or
// non-positive versions are a programming error and panic at construction.
func NewCatalog(migrations ...Migration) *Catalog {
	c := &Catalog{migrations: make(map[int]Migration, len(migrations))}
	for _, m := range migrations {
		if err := c.Register(m); err != nil {
			panic(err)
		}
	}
	return c
}

// Register adds a migration to the catalog.
func (c *Catalog) Register(m Migration) error {
	v := m.Version()
	if v < 1 {
		return fmt.Errorf("migration version must be positive, got %d", v)
	}
	if _, exists := c.migrations[v]; exists {
		return fmt.Errorf("migration version %d already registered", v)
	}
	c.migrations[v] = m
	return nil
}

// Load returns the migration registered for version.
func (c *Catalog) Load(version int) (Migration, error) {
	m, ok := c.migrations[version]
	if !ok {
		return nil, fmt.Errorf("loading migration %d: %w", version, ErrVersionNotFound)
	}
	return m, nil
}

// All returns a copy of the version to migration mapping.
func (c *Catalog) All() map[int]Migration {
	out := make(map[int]Migration, len(c.migrations))
	for v, m := range c.migrations {
		out[v] = m
	}
	return out
}

// Versions returns the registered versions in ascending order.
func (c *Catalog) Versions() []int {
	versions := make([]int, 0, len(c.migrations))
	for v := range c.migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Latest returns the highest registered version, or 0 for an empty catalog.
func (c *Catalog) Latest() int {
	latest := 0
	for v := range c.migrations {
		if v > latest {
			latest = v
		}
	}
	return latest
}

// Pending returns the migrations with versions strictly greater than current.
func (c *Catalog) Pending(current int) map[int]Migration {
	pending := make(map[int]Migration)
	for v, m := range c.migrations {
		if v > current {
			pending[v] = m
		}
	}
	return pending
}

// ValidateSequence reports whether the registered versions form the
// contiguous range [1, max]. An empty catalog is vacuously valid.
func (c *Catalog) ValidateSequence() bool {
	versions := c.Versions()
	for i, v := range versions {
		if v != i+1 {
			return false
		}
	}
	return true
}
