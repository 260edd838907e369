// Package directory holds the canonical entity set and the pure operations
// over it: merging the two sources, facet extraction, filtering and
// relationship navigation.
package directory

import "github.com/agentic-research/rollcall/internal/cohort"

// NotAvailable stands in for a department, program or hostel the roster
// does not provide.
const NotAvailable = "N/A"

// UnknownName is the display name of placeholder entities.
const UnknownName = "Unknown"

// Entity is one individual in the merged directory. String attributes are
// empty when absent. Entities are not modified after Merge returns them.
type Entity struct {
	Roll       string      `json:"rollNo"`
	Name       string      `json:"name"`
	Department string      `json:"department,omitempty"`
	Program    string      `json:"program,omitempty"`
	BatchYear  cohort.Year `json:"batchYear,omitempty"`
	Email      string      `json:"email,omitempty"`
	Username   string      `json:"username,omitempty"`
	Gender     string      `json:"gender,omitempty"`
	BloodGroup string      `json:"bloodGroup,omitempty"`
	Hall       string      `json:"hall,omitempty"`
	Room       string      `json:"room,omitempty"`
	Hostel     string      `json:"hostel,omitempty"`
	State      string      `json:"state,omitempty"`
	Hometown   string      `json:"hometown,omitempty"`
	PhotoURL   string      `json:"imageUrl,omitempty"`

	// HasFullData is false for individuals known only from the tree.
	HasFullData bool `json:"hasFullData"`
}

// BatchLabel is the display label of the entity's cohort.
func (e Entity) BatchLabel() string {
	return cohort.Label(e.BatchYear)
}

// Placeholder stands in for a roll number that has no entity.
func Placeholder(roll string) Entity {
	return Entity{Roll: roll, Name: UnknownName}
}

// Lookup finds entities by roll number.
type Lookup map[string]int

// NewLookup indexes entities by roll number. If a roll number repeats, the
// first position wins, matching a linear scan.
func NewLookup(entities []Entity) Lookup {
	l := make(Lookup, len(entities))
	for i, e := range entities {
		if _, ok := l[e.Roll]; !ok {
			l[e.Roll] = i
		}
	}
	return l
}

// Find returns the entity for roll from entities, which must be the slice
// the lookup was built from.
func (l Lookup) Find(entities []Entity, roll string) (Entity, bool) {
	i, ok := l[roll]
	if !ok || i >= len(entities) {
		return Entity{}, false
	}
	return entities[i], true
}
