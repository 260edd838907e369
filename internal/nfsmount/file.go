package nfsmount

import (
	"io"

	"github.com/agentic-research/rollcall/internal/graph"
)

// content is the read side of a billy.File. bytes.Reader and
// io.SectionReader both provide it.
type content interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// readOnlyFile implements billy.File over a content; every mutation fails.
type readOnlyFile struct {
	name string
	content
}

func (f *readOnlyFile) Name() string              { return f.name }
func (f *readOnlyFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *readOnlyFile) Truncate(int64) error      { return errReadOnly }
func (f *readOnlyFile) Lock() error               { return nil }
func (f *readOnlyFile) Unlock() error             { return nil }
func (f *readOnlyFile) Close() error              { return nil }

// nodeReader reads a node's content through graph.ReadContent.
type nodeReader struct {
	graph graph.Graph
	id    string
}

func (r nodeReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.graph.ReadContent(r.id, p, off)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
