package directory

import (
	"strconv"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/rollcall/internal/cohort"
)

// attribute names a set-membership facet of Entity.
type attribute int

const (
	attrBatch attribute = iota
	attrDepartment
	attrProgram
	attrHall
	attrGender
	attrBloodGroup
	attrState
	numAttributes
)

// Index answers Criteria over a fixed entity slice using one roaring bitmap
// of entity positions per attribute value. Set predicates become bitmap
// unions and intersections; only the free-text predicate scans entities.
type Index struct {
	entities []Entity
	all      *roaring.Bitmap
	values   [numAttributes]map[string]*roaring.Bitmap
}

// NewIndex indexes entities. The slice must not be modified afterwards.
func NewIndex(entities []Entity) *Index {
	ix := &Index{entities: entities, all: roaring.New()}
	for a := range ix.values {
		ix.values[a] = make(map[string]*roaring.Bitmap)
	}
	for i, e := range entities {
		pos := uint32(i)
		ix.all.Add(pos)
		if e.BatchYear > 0 {
			ix.add(attrBatch, yearKey(e.BatchYear), pos)
		}
		ix.add(attrDepartment, e.Department, pos)
		ix.add(attrProgram, e.Program, pos)
		ix.add(attrHall, e.Hall, pos)
		ix.add(attrGender, e.Gender, pos)
		ix.add(attrBloodGroup, e.BloodGroup, pos)
		ix.add(attrState, e.State, pos)
	}
	return ix
}

func (ix *Index) add(a attribute, value string, pos uint32) {
	if value == "" {
		return
	}
	bm, ok := ix.values[a][value]
	if !ok {
		bm = roaring.New()
		ix.values[a][value] = bm
	}
	bm.Add(pos)
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	return len(ix.entities)
}

// Count returns how many entities carry value for the given facet
// attribute ("batch", "department", "program", "hall", "gender",
// "blood_group", "state").
func (ix *Index) Count(facet, value string) uint64 {
	a, ok := attributeNames[facet]
	if !ok {
		return 0
	}
	bm, ok := ix.values[a][value]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

var attributeNames = map[string]attribute{
	"batch":       attrBatch,
	"department":  attrDepartment,
	"program":     attrProgram,
	"hall":        attrHall,
	"gender":      attrGender,
	"blood_group": attrBloodGroup,
	"state":       attrState,
}

// Filter returns the same entities, in the same order, as
// Filter(entities, c) over the indexed slice.
func (ix *Index) Filter(c Criteria) []Entity {
	candidates := ix.all.Clone()

	years := make([]string, len(c.BatchYears))
	for i, y := range c.BatchYears {
		years[i] = yearKey(y)
	}
	sets := [numAttributes][]string{
		attrBatch:      years,
		attrDepartment: c.Departments,
		attrProgram:    c.Programs,
		attrHall:       c.Halls,
		attrGender:     c.Genders,
		attrBloodGroup: c.BloodGroups,
		attrState:      c.States,
	}
	for a, set := range sets {
		if len(set) == 0 {
			continue
		}
		candidates.And(ix.union(attribute(a), set))
		if candidates.IsEmpty() {
			return []Entity{}
		}
	}

	m := c.matcher()
	out := make([]Entity, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		e := ix.entities[it.Next()]
		if m.matchesText(e) {
			out = append(out, e)
		}
	}
	return out
}

// union returns the positions holding any of values for attribute a.
func (ix *Index) union(a attribute, values []string) *roaring.Bitmap {
	out := roaring.New()
	for _, v := range values {
		if v == "" {
			continue
		}
		if bm, ok := ix.values[a][v]; ok {
			out.Or(bm)
		}
	}
	return out
}

func yearKey(y cohort.Year) string {
	return strconv.Itoa(int(y))
}
