package graph

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/loader"
)

const profileFile = "profile.json"

// Project lays a dataset out as a browsable tree:
//
//	students/<roll>.json
//	batches/<label>/<roll>.json
//	departments/<department>/<roll>.json
//	family/<roll>/profile.json
//	family/<roll>/<introducee>/profile.json ...
//
// Files under students, batches and departments share one encoding per
// entity. The family tree mirrors the relationship forest; each roll number
// appears in it at most once.
func Project(d *loader.Dataset) (*MemoryStore, error) {
	b := &builder{store: NewMemoryStore(), mod: d.LoadedAt}
	profiles := make(map[string][]byte, len(d.Entities))

	students := b.root("students")
	batches := newGroups(b, "batches")
	departments := newGroups(b, "departments")

	for _, e := range d.Entities {
		name := segment(e.Roll)
		if name == "" {
			continue
		}
		data, err := encode(e)
		if err != nil {
			return nil, err
		}
		profiles[e.Roll] = data
		file := name + ".json"

		b.file(students, file, data)
		batches.add(e.BatchLabel(), file, data)
		if dept := e.Department; dept != "" && dept != directory.NotAvailable {
			departments.add(dept, file, data)
		}
	}
	batches.finish()
	departments.finish()

	if err := b.family(d, profiles); err != nil {
		return nil, err
	}
	return b.store, nil
}

type builder struct {
	store *MemoryStore
	mod   time.Time
}

func (b *builder) root(id string) *Node {
	n := &Node{ID: id, Mode: fs.ModeDir, ModTime: b.mod}
	b.store.AddRoot(n)
	return n
}

func (b *builder) dir(parent *Node, name string) *Node {
	n := &Node{ID: parent.ID + "/" + name, Mode: fs.ModeDir, ModTime: b.mod}
	b.store.AddNode(n)
	parent.Children = append(parent.Children, n.ID)
	return n
}

func (b *builder) file(parent *Node, name string, data []byte) {
	n := &Node{ID: parent.ID + "/" + name, ModTime: b.mod, Data: data}
	b.store.AddNode(n)
	parent.Children = append(parent.Children, n.ID)
}

func (b *builder) family(d *loader.Dataset, profiles map[string][]byte) error {
	root := b.root("family")

	type item struct {
		roll   string
		parent *Node
	}
	roots := d.Family.Roots()
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{roots[i], root})
	}

	placed := make(map[string]bool, d.Family.Len())
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		name := segment(it.roll)
		if name == "" || placed[it.roll] {
			continue
		}
		placed[it.roll] = true

		data, ok := profiles[it.roll]
		if !ok {
			var err error
			if data, err = encode(directory.Placeholder(it.roll)); err != nil {
				return err
			}
		}
		n := b.dir(it.parent, name)
		b.file(n, profileFile, data)

		rec, _ := d.Family.Lookup(it.roll)
		for i := len(rec.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{rec.Children[i], n})
		}
	}
	return nil
}

// groups collects entity files under one directory per attribute value.
type groups struct {
	b      *builder
	parent *Node
	dirs   map[string]*Node
}

func newGroups(b *builder, root string) *groups {
	return &groups{b: b, parent: b.root(root), dirs: make(map[string]*Node)}
}

func (g *groups) add(value, file string, data []byte) {
	name := segment(value)
	if name == "" {
		return
	}
	n, ok := g.dirs[name]
	if !ok {
		n = g.b.dir(g.parent, name)
		g.dirs[name] = n
	}
	g.b.file(n, file, data)
}

// finish orders the value directories by name.
func (g *groups) finish() {
	slices.Sort(g.parent.Children)
}

// segment makes s usable as one path element.
func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "." || s == ".." {
		return ""
	}
	return strings.ReplaceAll(s, "/", "_")
}

func encode(e directory.Entity) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Roll, err)
	}
	return append(data, '\n'), nil
}

// Summary describes a projected dataset.
type Summary struct {
	Entities    int       `json:"entities"`
	FullRecords int       `json:"full_records"`
	TreeRecords int       `json:"tree_records"`
	Batches     []string  `json:"batches"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Summarize renders the Summary of d as indented JSON.
func Summarize(d *loader.Dataset) []byte {
	s := Summary{
		Entities:    len(d.Entities),
		TreeRecords: d.Family.Len(),
		Batches:     []string{},
		LoadedAt:    d.LoadedAt.UTC(),
	}
	for _, e := range d.Entities {
		if e.HasFullData {
			s.FullRecords++
		}
	}
	for _, b := range d.Facets().BatchYears {
		s.Batches = append(s.Batches, b.Label)
	}
	data, _ := json.MarshalIndent(s, "", "  ") // plain struct, cannot fail
	return append(data, '\n')
}
