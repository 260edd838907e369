package directory

import "github.com/agentic-research/rollcall/internal/familytree"

// Relatives are the immediate tree neighbours of one individual.
type Relatives struct {
	// SG is the introducer, nil at a root or when the roll number is not in
	// the tree.
	SG       *Entity  `json:"sg"`
	Children []Entity `json:"children"`
}

// FindRelatives resolves the introducer and children of roll against
// entities. Roll numbers with no entity resolve to placeholders.
func FindRelatives(roll string, index *familytree.Index, entities []Entity) Relatives {
	return NewLookup(entities).Relatives(roll, index, entities)
}

// Relatives is FindRelatives with a prebuilt lookup.
func (l Lookup) Relatives(roll string, index *familytree.Index, entities []Entity) Relatives {
	rel := Relatives{Children: []Entity{}}
	rec, ok := index.Lookup(roll)
	if !ok {
		return rel
	}

	resolve := func(r string) Entity {
		if e, ok := l.Find(entities, r); ok {
			return e
		}
		return Placeholder(r)
	}

	if rec.SG != "" {
		sg := resolve(rec.SG)
		rel.SG = &sg
	}
	for _, c := range rec.Children {
		rel.Children = append(rel.Children, resolve(c))
	}
	return rel
}
