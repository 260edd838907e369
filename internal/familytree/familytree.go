// Package familytree flattens the recursive "who introduced whom" tree into
// a lookup table keyed by roll number.
package familytree

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/agentic-research/rollcall/api"
)

// separator splits a node name into display name and roll number. Names may
// contain it too, so only the last occurrence counts.
const separator = "-"

// Record is what the tree says about one individual.
type Record struct {
	Roll     string   `json:"rollNo"`
	Name     string   `json:"name"`
	Children []string `json:"children"`
	// SG is the roll number of the individual's introducer. Empty at a root.
	SG string `json:"sg,omitempty"`
}

// Label is a successfully parsed node name.
type Label struct {
	Name string
	Roll string
}

// ParseName reads "<name>-<roll>". It reports false for the root sentinel,
// an empty name, a name without separator, or an empty roll number.
func ParseName(s string) (Label, bool) {
	if s == "" || s == api.RootName {
		return Label{}, false
	}
	i := strings.LastIndex(s, separator)
	if i < 0 {
		return Label{}, false
	}
	roll := strings.TrimSpace(s[i+len(separator):])
	if roll == "" {
		return Label{}, false
	}
	return Label{Name: strings.TrimSpace(s[:i]), Roll: roll}, true
}

// Index maps roll numbers to their relationship records. It is built once by
// Build and never modified afterwards. A nil *Index is empty.
type Index struct {
	records map[string]*Record
	order   []string // first-seen traversal order
}

// frame is one pending visit: a node and the nearest parsed ancestor above it.
type frame struct {
	node   *api.TreeNode
	parent string
}

// Build walks the tree depth-first from root. A node whose name does not
// parse contributes no record, and its children are visited as new roots:
// nothing below it is linked to anything above it.
//
// The walk uses an explicit stack, so tree depth is not bounded by the call
// stack. Visit order matches a recursive pre-order walk.
func Build(root *api.TreeNode) *Index {
	ix := &Index{records: make(map[string]*Record)}
	if root == nil {
		return ix
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// A parse failure resets the parent for everything beneath it.
		parent := ""
		if label, ok := ParseName(f.node.Name); ok {
			ix.put(&Record{
				Roll:     label.Roll,
				Name:     label.Name,
				Children: childRolls(f.node),
				SG:       f.parent,
			})
			parent = label.Roll
		}

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: &f.node.Children[i], parent: parent})
		}
	}
	return ix
}

// childRolls lists the roll numbers of a node's parseable children.
func childRolls(n *api.TreeNode) []string {
	rolls := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		if label, ok := ParseName(c.Name); ok {
			rolls = append(rolls, label.Roll)
		}
	}
	return rolls
}

// put stores r; a repeated roll number replaces the earlier record but keeps
// its original position.
func (ix *Index) put(r *Record) {
	if _, exists := ix.records[r.Roll]; !exists {
		ix.order = append(ix.order, r.Roll)
	}
	ix.records[r.Roll] = r
}

// Lookup returns the record for roll.
func (ix *Index) Lookup(roll string) (Record, bool) {
	if ix == nil {
		return Record{}, false
	}
	r, ok := ix.records[roll]
	if !ok {
		return Record{}, false
	}
	out := *r
	out.Children = slices.Clone(r.Children)
	return out, true
}

// Contains reports whether roll has a record.
func (ix *Index) Contains(roll string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.records[roll]
	return ok
}

// Len returns the number of records.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.order)
}

// Rolls returns every indexed roll number in first-seen traversal order.
func (ix *Index) Rolls() []string {
	if ix == nil {
		return nil
	}
	return slices.Clone(ix.order)
}

// Roots returns the roll numbers of records without an introducer.
func (ix *Index) Roots() []string {
	if ix == nil {
		return nil
	}
	var roots []string
	for _, roll := range ix.order {
		if ix.records[roll].SG == "" {
			roots = append(roots, roll)
		}
	}
	return roots
}

// MarshalJSON renders the index as an object keyed by roll number.
func (ix *Index) MarshalJSON() ([]byte, error) {
	if ix == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(ix.records)
}
