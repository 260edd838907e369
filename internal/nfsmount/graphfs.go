// Package nfsmount serves the directory projection over NFS.
// It adapts graph.Graph to billy.Filesystem for use with willscott/go-nfs.
package nfsmount

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/rollcall/internal/graph"
)

var errReadOnly = fmt.Errorf("read-only filesystem")

const summaryPath = "/_summary.json"

// GraphFS is a read-only billy.Filesystem over a graph.Graph, plus a
// virtual /_summary.json rendered on every open.
type GraphFS struct {
	graph     graph.Graph
	summary   func() []byte
	mountTime time.Time
}

// NewGraphFS creates a billy.Filesystem backed by g. summary may be nil,
// in which case /_summary.json holds an empty object.
func NewGraphFS(g graph.Graph, summary func() []byte) *GraphFS {
	if summary == nil {
		summary = func() []byte { return []byte("{}\n") }
	}
	return &GraphFS{graph: g, summary: summary, mountTime: time.Now()}
}

// --- billy.Basic ---

func (fs *GraphFS) Create(string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *GraphFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *GraphFS) OpenFile(filename string, flag int, _ os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, errReadOnly
	}
	filename = cleanPath(filename)

	if filename == summaryPath {
		return &readOnlyFile{name: "_summary.json", content: bytes.NewReader(fs.summary())}, nil
	}

	node, err := fs.graph.GetNode(filename)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	if node.Mode.IsDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: fmt.Errorf("is a directory")}
	}

	r := nodeReader{graph: fs.graph, id: filename}
	return &readOnlyFile{
		name:    filename,
		content: io.NewSectionReader(r, 0, node.ContentSize()),
	}, nil
}

func (fs *GraphFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *GraphFS) Rename(string, string) error { return errReadOnly }

func (fs *GraphFS) Remove(string) error { return errReadOnly }

func (fs *GraphFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *GraphFS) TempFile(string, string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *GraphFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)

	if path != "/" {
		node, err := fs.graph.GetNode(path)
		if err != nil {
			return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
		}
		if !node.Mode.IsDir() {
			return nil, &os.PathError{Op: "readdir", Path: path, Err: fmt.Errorf("not a directory")}
		}
	}

	children, err := fs.graph.ListChildren(path)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
	}

	infos := make([]os.FileInfo, 0, len(children)+1)
	if path == "/" {
		infos = append(infos, fs.summaryInfo())
	}
	for _, childID := range children {
		childNode, err := fs.graph.GetNode(childID)
		if err != nil {
			continue // swapped out from under us
		}
		infos = append(infos, nodeToFileInfo(childNode, fs.mountTime))
	}
	return infos, nil
}

func (fs *GraphFS) MkdirAll(string, os.FileMode) error {
	return errReadOnly
}

// --- billy.Symlink ---

func (fs *GraphFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	switch filename {
	case "/":
		return &staticFileInfo{name: "/", mode: os.ModeDir | 0o555, modTime: fs.mountTime}, nil
	case summaryPath:
		return fs.summaryInfo(), nil
	}

	node, err := fs.graph.GetNode(filename)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}
	return nodeToFileInfo(node, fs.mountTime), nil
}

func (fs *GraphFS) Symlink(string, string) error {
	return errReadOnly
}

func (fs *GraphFS) Readlink(string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *GraphFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *GraphFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *GraphFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

func (fs *GraphFS) summaryInfo() os.FileInfo {
	return &staticFileInfo{
		name:    "_summary.json",
		size:    int64(len(fs.summary())),
		mode:    0o444,
		modTime: fs.mountTime,
	}
}

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	return filepath.Clean("/" + path)
}

func nodeToFileInfo(n *graph.Node, fallback time.Time) os.FileInfo {
	mode := os.FileMode(0o444)
	if n.Mode.IsDir() {
		mode = os.ModeDir | 0o555
	}
	modTime := n.ModTime
	if modTime.IsZero() {
		modTime = fallback
	}
	return &staticFileInfo{
		name:    filepath.Base(n.ID),
		size:    n.ContentSize(),
		mode:    mode,
		modTime: modTime,
	}
}

type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() any           { return nil }

var (
	_ billy.Filesystem = (*GraphFS)(nil)
	_ billy.Capable    = (*GraphFS)(nil)
	_ billy.File       = (*readOnlyFile)(nil)
)
