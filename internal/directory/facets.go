package directory

import (
	"slices"
	"strings"

	"github.com/agentic-research/rollcall/internal/cohort"
)

// BatchOption is one selectable cohort.
type BatchOption struct {
	Value cohort.Year `json:"value"`
	Label string      `json:"label"`
}

// Facets lists the distinct values of every filterable attribute.
type Facets struct {
	BatchYears  []BatchOption `json:"batchYears"`
	Departments []string      `json:"departments"`
	Programs    []string      `json:"programs"`
	Halls       []string      `json:"halls"`
	Genders     []string      `json:"genders"`
	BloodGroups []string      `json:"bloodGroups"`
	States      []string      `json:"states"`
}

// ExtractFacets computes every facet of entities.
func ExtractFacets(entities []Entity) Facets {
	return Facets{
		BatchYears:  BatchYears(entities),
		Departments: Departments(entities),
		Programs:    Programs(entities),
		Halls:       Halls(entities),
		Genders:     Genders(entities),
		BloodGroups: BloodGroups(entities),
		States:      States(entities),
	}
}

// BatchYears returns the known cohorts, most recent first.
func BatchYears(entities []Entity) []BatchOption {
	seen := make(map[cohort.Year]struct{})
	for _, e := range entities {
		if e.BatchYear > 0 {
			seen[e.BatchYear] = struct{}{}
		}
	}
	years := make([]cohort.Year, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	slices.Sort(years)
	slices.Reverse(years)

	out := make([]BatchOption, len(years))
	for i, y := range years {
		out[i] = BatchOption{Value: y, Label: cohort.Label(y)}
	}
	return out
}

func Departments(entities []Entity) []string {
	return distinct(entities, func(e Entity) string { return e.Department })
}

func Programs(entities []Entity) []string {
	return distinct(entities, func(e Entity) string { return e.Program })
}

func Halls(entities []Entity) []string {
	return distinct(entities, func(e Entity) string { return e.Hall })
}

func Genders(entities []Entity) []string {
	return distinct(entities, func(e Entity) string { return e.Gender })
}

func BloodGroups(entities []Entity) []string {
	return distinct(entities, func(e Entity) string { return e.BloodGroup })
}

func States(entities []Entity) []string {
	return distinct(entities, func(e Entity) string { return e.State })
}

// distinct collects the values of attr that are neither blank nor the
// not-available sentinel, sorted ascending.
func distinct(entities []Entity, attr func(Entity) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range entities {
		v := attr(e)
		if strings.TrimSpace(v) == "" || v == NotAvailable {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
