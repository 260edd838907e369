package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/export"
	"github.com/agentic-research/rollcall/internal/loader"
)

const rosterJSON = `[
  {"rollNo": "200123", "name": "Jane Doe", "department": "CSE", "program": "BT", "gender": "F"},
  {"rollNo": "190045", "name": "John Roe", "department": "CSE", "program": "MT", "gender": "M"}
]`

const treeJSON = `{"name": "all", "children": [
  {"name": "John Roe-190045", "children": [
    {"name": "Jane Doe-200123", "children": [{"name": "Tree Only-210777"}]}
  ]}
]}`

var testPaths = loader.Paths{Roster: "students.json", Tree: "familytree.json"}

func writeDataset(t *testing.T, dir, roster, tree string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, testPaths.Roster), []byte(roster), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, testPaths.Tree), []byte(tree), 0o644))
}

func newTestService(t *testing.T) (*catalog.Service, *loader.Loader, string) {
	t.Helper()
	dir := t.TempDir()
	writeDataset(t, dir, rosterJSON, treeJSON)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := loader.New(loader.NewSource(dir, testPaths, nil), loader.WithLogger(quiet))
	svc, err := catalog.New(l, 0, catalog.WithLogger(quiet))
	require.NoError(t, err)
	return svc, l, dir
}

func TestRunSearch_Table(t *testing.T) {
	svc, _, _ := newTestService(t)
	var out bytes.Buffer
	require.NoError(t, runSearch(context.Background(), svc, &out, directory.Criteria{Query: "jane"}, 1, 0, false))

	s := out.String()
	assert.Contains(t, s, "ROLL")
	assert.Contains(t, s, "200123")
	assert.Contains(t, s, "Jane Doe")
	assert.NotContains(t, s, "190045")
	assert.Contains(t, s, "page 1 of 1, 1 matching")
}

func TestRunSearch_JSON(t *testing.T) {
	svc, _, _ := newTestService(t)
	var out bytes.Buffer
	require.NoError(t, runSearch(context.Background(), svc, &out, directory.Criteria{}, 1, 0, true))

	var page catalog.Page
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Students, 3)
	assert.Equal(t, "200123", page.Students[0].Roll)
	assert.False(t, page.Students[2].HasFullData)
}

func TestRunFacets(t *testing.T) {
	svc, _, _ := newTestService(t)

	var out bytes.Buffer
	require.NoError(t, runFacets(context.Background(), svc, &out, false))
	assert.Contains(t, out.String(), "dept")
	assert.Contains(t, out.String(), "CSE")

	out.Reset()
	require.NoError(t, runFacets(context.Background(), svc, &out, true))
	var f directory.Facets
	require.NoError(t, json.Unmarshal(out.Bytes(), &f))
	assert.Equal(t, []string{"CSE"}, f.Departments)
	assert.Equal(t, []string{"F", "M"}, f.Genders)
}

func TestRunRelatives(t *testing.T) {
	svc, _, _ := newTestService(t)

	var out bytes.Buffer
	require.NoError(t, runRelatives(context.Background(), svc, &out, "200123", false))
	s := out.String()
	assert.Contains(t, s, "Jane Doe")
	assert.Contains(t, s, "sg:\n  190045  John Roe")
	assert.Contains(t, s, "children:\n  210777")

	out.Reset()
	require.NoError(t, runRelatives(context.Background(), svc, &out, "200123", true))
	var p catalog.Profile
	require.NoError(t, json.Unmarshal(out.Bytes(), &p))
	require.NotNil(t, p.SG)
	assert.Equal(t, "190045", p.SG.Roll)

	err := runRelatives(context.Background(), svc, &out, "999999", false)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRunExport(t *testing.T) {
	svc, _, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "out.db")

	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), svc, &out, path))
	assert.Contains(t, out.String(), "wrote 3 students")

	students, err := export.ReadStudents(path)
	require.NoError(t, err)
	assert.Len(t, students, 3)
}

func TestViewRefresh(t *testing.T) {
	_, l, dir := newTestService(t)
	ctx := context.Background()

	v, err := newView(ctx, l)
	require.NoError(t, err)
	_, err = v.graph.GetNode("students/210777.json")
	require.NoError(t, err)

	grown := `[
  {"rollNo": "200123", "name": "Jane Doe", "department": "CSE", "program": "BT", "gender": "F"},
  {"rollNo": "190045", "name": "John Roe", "department": "CSE", "program": "MT", "gender": "M"},
  {"rollNo": "230001", "name": "New Kid", "department": "EE", "program": "BT", "gender": "F"}
]`
	writeDataset(t, dir, grown, treeJSON)
	require.NoError(t, v.refresh(ctx, l))

	_, err = v.graph.GetNode("students/230001.json")
	require.NoError(t, err)
	assert.Contains(t, string(v.summary()), `"entities": 4`)
}

func TestViewRefresh_FailureKeepsPrevious(t *testing.T) {
	_, l, dir := newTestService(t)
	ctx := context.Background()

	v, err := newView(ctx, l)
	require.NoError(t, err)

	writeDataset(t, dir, "not json", treeJSON)
	require.Error(t, v.refresh(ctx, l))

	_, err = v.graph.GetNode("students/200123.json")
	assert.NoError(t, err)
}
