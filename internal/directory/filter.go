package directory

import (
	"slices"
	"strconv"
	"strings"

	"github.com/agentic-research/rollcall/internal/cohort"
)

// Criteria is a conjunction of optional predicates. An empty query or an
// empty set places no restriction.
type Criteria struct {
	Query       string        `json:"q,omitempty"`
	BatchYears  []cohort.Year `json:"batchYears,omitempty"`
	Departments []string      `json:"departments,omitempty"`
	Programs    []string      `json:"programs,omitempty"`
	Halls       []string      `json:"halls,omitempty"`
	Genders     []string      `json:"genders,omitempty"`
	BloodGroups []string      `json:"bloodGroups,omitempty"`
	States      []string      `json:"states,omitempty"`
}

// Active reports whether any predicate restricts the result.
func (c Criteria) Active() bool {
	return c.needle() != "" || len(c.BatchYears) > 0 || len(c.Departments) > 0 ||
		len(c.Programs) > 0 || len(c.Halls) > 0 || len(c.Genders) > 0 ||
		len(c.BloodGroups) > 0 || len(c.States) > 0
}

// Key is a canonical form of c: criteria selecting the same entities for
// the same reasons produce the same key regardless of set order.
func (c Criteria) Key() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strconv.Quote(c.needle()))

	years := make([]string, len(c.BatchYears))
	for i, y := range c.BatchYears {
		years[i] = strconv.Itoa(int(y))
	}
	writeSet(&b, "batch", years)
	writeSet(&b, "dept", c.Departments)
	writeSet(&b, "program", c.Programs)
	writeSet(&b, "hall", c.Halls)
	writeSet(&b, "gender", c.Genders)
	writeSet(&b, "blood", c.BloodGroups)
	writeSet(&b, "state", c.States)
	return b.String()
}

func writeSet(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	b.WriteString("&")
	b.WriteString(name)
	b.WriteString("=")
	for i, v := range sorted {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Quote(v))
	}
}

// needle is the normalized free-text query.
func (c Criteria) needle() string {
	return strings.ToLower(strings.TrimSpace(c.Query))
}

// Filter returns the entities satisfying every predicate of c, in input
// order. Filtering a result again with the same criteria returns it
// unchanged.
func Filter(entities []Entity, c Criteria) []Entity {
	m := c.matcher()
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if m.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// matcher is Criteria with the query normalized once.
type matcher struct {
	Criteria
	needle string
}

func (c Criteria) matcher() matcher {
	return matcher{Criteria: c, needle: c.needle()}
}

func (m matcher) matches(e Entity) bool {
	return m.matchesText(e) && m.matchesSets(e)
}

func (m matcher) matchesText(e Entity) bool {
	if m.needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), m.needle) ||
		strings.Contains(strings.ToLower(e.Roll), m.needle) ||
		strings.Contains(strings.ToLower(e.Email), m.needle)
}

func (m matcher) matchesSets(e Entity) bool {
	if len(m.BatchYears) > 0 && (e.BatchYear == 0 || !slices.Contains(m.BatchYears, e.BatchYear)) {
		return false
	}
	return member(m.Departments, e.Department) &&
		member(m.Programs, e.Program) &&
		member(m.Halls, e.Hall) &&
		member(m.Genders, e.Gender) &&
		member(m.BloodGroups, e.BloodGroup) &&
		member(m.States, e.State)
}

// member treats an empty set as no restriction and an absent value as a
// miss.
func member(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	return v != "" && slices.Contains(set, v)
}
