package loader

import (
	"sync"
	"time"

	"github.com/agentic-research/rollcall/api"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/familytree"
	"github.com/agentic-research/rollcall/internal/roster"
)

// Dataset is one committed load: the raw payloads and everything derived
// from them. It is never mutated after construction.
type Dataset struct {
	Roster   []roster.Record
	Tree     *api.TreeNode
	Family   *familytree.Index
	Entities []directory.Entity
	Lookup   directory.Lookup
	Index    *directory.Index
	LoadedAt time.Time

	facetsOnce sync.Once
	facets     directory.Facets
}

// NewDataset indexes the tree and merges it with the roster.
func NewDataset(records []roster.Record, tree *api.TreeNode, opts directory.MergeOptions) *Dataset {
	family := familytree.Build(tree)
	entities := directory.MergeWith(records, family, opts)
	return &Dataset{
		Roster:   records,
		Tree:     tree,
		Family:   family,
		Entities: entities,
		Lookup:   directory.NewLookup(entities),
		Index:    directory.NewIndex(entities),
		LoadedAt: time.Now(),
	}
}

// Facets returns the distinct filter values, computed on first use.
func (d *Dataset) Facets() directory.Facets {
	d.facetsOnce.Do(func() {
		d.facets = directory.ExtractFacets(d.Entities)
	})
	return d.facets
}

// Search returns the entities matching c in canonical order.
func (d *Dataset) Search(c directory.Criteria) []directory.Entity {
	return d.Index.Filter(c)
}

// Student returns the entity with the given roll number.
func (d *Dataset) Student(roll string) (directory.Entity, bool) {
	return d.Lookup.Find(d.Entities, roll)
}

// Relatives returns the introducer and introducees of roll.
func (d *Dataset) Relatives(roll string) directory.Relatives {
	return d.Lookup.Relatives(roll, d.Family, d.Entities)
}
