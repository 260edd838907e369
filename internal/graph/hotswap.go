package graph

import "sync/atomic"

// HotSwapGraph serves reads from whichever projection was installed last.
// A reader that already resolved a node keeps the snapshot it started with.
type HotSwapGraph struct {
	current atomic.Pointer[snapshot]
}

type snapshot struct{ g Graph }

func NewHotSwapGraph(initial Graph) *HotSwapGraph {
	h := &HotSwapGraph{}
	h.current.Store(&snapshot{g: initial})
	return h
}

// Swap installs next and returns the projection it replaced.
func (h *HotSwapGraph) Swap(next Graph) Graph {
	return h.current.Swap(&snapshot{g: next}).g
}

// Current returns the installed projection.
func (h *HotSwapGraph) Current() Graph {
	return h.current.Load().g
}

func (h *HotSwapGraph) GetNode(id string) (*Node, error) {
	return h.Current().GetNode(id)
}

func (h *HotSwapGraph) ListChildren(id string) ([]string, error) {
	return h.Current().ListChildren(id)
}

func (h *HotSwapGraph) ReadContent(id string, buf []byte, offset int64) (int, error) {
	return h.Current().ReadContent(id, buf, offset)
}
