package graph

import (
	"errors"
	"io/fs"
	"sync"
	"time"
)

var ErrNotFound = errors.New("node not found")

// Node is the universal primitive.
// The Mode field explicitly declares whether this is a file or directory.
type Node struct {
	ID       string
	Mode     fs.FileMode // fs.ModeDir for directories, 0 for regular files
	ModTime  time.Time
	Data     []byte   // file content
	Children []string // child node IDs (directories only)
}

// ContentSize returns the byte length of this node's content.
func (n *Node) ContentSize() int64 {
	return int64(len(n.Data))
}

// Graph is the read interface of the mount layer.
type Graph interface {
	GetNode(id string) (*Node, error)
	ListChildren(id string) ([]string, error)
	ReadContent(id string, buf []byte, offset int64) (int, error)
}

// MemoryStore is an in-memory Graph. Nodes are not modified once added.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string // top-level nodes, e.g. "students"
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*Node),
		roots: []string{},
	}
}

// AddRoot registers a node as a top-level root and adds it to the store.
// Callers must explicitly declare roots; there is no heuristic.
func (s *MemoryStore) AddRoot(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	for _, r := range s.roots {
		if r == n.ID {
			return
		}
	}
	s.roots = append(s.roots, n.ID)
}

// AddNode adds a non-root node to the store.
func (s *MemoryStore) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
}

// Len returns the number of nodes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// GetNode implements Graph.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[normalize(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren implements Graph.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" || id == "/" {
		return s.roots, nil
	}
	n, ok := s.nodes[normalize(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Children, nil
}

// ReadContent implements Graph.
func (s *MemoryStore) ReadContent(id string, buf []byte, offset int64) (int, error) {
	node, err := s.GetNode(id)
	if err != nil {
		return 0, err
	}
	if offset >= int64(len(node.Data)) {
		return 0, nil
	}
	return copy(buf, node.Data[offset:]), nil
}

// normalize strips the leading slash of mount paths.
func normalize(id string) string {
	if len(id) > 0 && id[0] == '/' {
		return id[1:]
	}
	return id
}
