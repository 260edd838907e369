package export

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/rollcall/api"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/familytree"
	"github.com/agentic-research/rollcall/internal/loader"
	"github.com/agentic-research/rollcall/internal/roster"
)

func testDataset(t *testing.T) *loader.Dataset {
	t.Helper()
	records, err := roster.Parse([]byte(`[
		{"rollNo": "200123", "name": "Jane Doe", "department": "CSE", "program": "BT",
		 "username": "jdoe", "gender": "F", "blood_group": "O+", "hall": "HALL1", "room": "A-101",
		 "homestate": "Kerala", "hometown": "Kochi"},
		{"rollNo": "Y8100", "name": "Old Timer"}
	]`))
	require.NoError(t, err)

	var tree api.TreeNode
	require.NoError(t, json.Unmarshal([]byte(`{"name": "all", "children": [
		{"name": "Old Timer-Y8100", "children": [
			{"name": "Jane Doe-200123"},
			{"name": "Tree Only-210777"}
		]}
	]}`), &tree))
	return loader.NewDataset(records, &tree, directory.DefaultMergeOptions())
}

func TestWriteAndReadStudents(t *testing.T) {
	d := testDataset(t)
	path := filepath.Join(t.TempDir(), "rollcall.db")

	require.NoError(t, Write(path, d))

	got, err := ReadStudents(path)
	require.NoError(t, err)
	assert.Equal(t, d.Entities, got)
	assert.Equal(t, "Kochi", got[0].Hometown)
	assert.False(t, got[2].HasFullData)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAndReadRelationships(t *testing.T) {
	d := testDataset(t)
	path := filepath.Join(t.TempDir(), "rollcall.db")
	require.NoError(t, Write(path, d))

	got, err := ReadRelationships(path)
	require.NoError(t, err)
	assert.Equal(t, []familytree.Record{
		{Roll: "Y8100", Name: "Old Timer", Children: []string{"200123", "210777"}},
		{Roll: "200123", Name: "Jane Doe", Children: []string{}, SG: "Y8100"},
		{Roll: "210777", Name: "Tree Only", Children: []string{}, SG: "Y8100"},
	}, got)
}

func TestWrite_RootsHaveNullSG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.db")
	require.NoError(t, Write(path, testDataset(t)))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var roots int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM relationships WHERE sg IS NULL`).Scan(&roots))
	assert.Equal(t, 1, roots)

	var batch string
	require.NoError(t, db.QueryRow(`SELECT batch FROM students WHERE roll = 'Y8100'`).Scan(&batch))
	assert.Equal(t, "Y08", batch)
}

func TestWrite_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.db")
	require.NoError(t, Write(path, testDataset(t)))
	require.NoError(t, Write(path, loader.NewDataset(nil, nil, directory.DefaultMergeOptions())))

	got, err := ReadStudents(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := ReadStudents(filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
