// Package export writes a loaded directory to a SQLite file and reads it
// back.
package export

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/rollcall/internal/cohort"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/familytree"
	"github.com/agentic-research/rollcall/internal/loader"
)

const schema = `
CREATE TABLE students (
	position INTEGER PRIMARY KEY,
	roll TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	department TEXT,
	program TEXT,
	batch_year INTEGER,
	batch TEXT NOT NULL,
	email TEXT,
	username TEXT,
	gender TEXT,
	blood_group TEXT,
	hall TEXT,
	room TEXT,
	hostel TEXT,
	state TEXT,
	hometown TEXT,
	photo_url TEXT,
	has_full_data INTEGER NOT NULL
);
CREATE INDEX idx_students_batch ON students(batch_year);
CREATE INDEX idx_students_department ON students(department);

CREATE TABLE relationships (
	position INTEGER PRIMARY KEY,
	id TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	sg TEXT
);
CREATE INDEX idx_relationships_sg ON relationships(sg);

CREATE TABLE relationship_children (
	parent TEXT NOT NULL,
	child TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (parent, position)
) WITHOUT ROWID;
`

// Write replaces path with a SQLite database holding the entities and the
// relationship index of d. The file appears only once fully written.
func Write(path string, d *loader.Dataset) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp) // leftover from an earlier failed export

	if err := write(tmp, d); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func write(path string, d *loader.Dataset) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore (no-op if committed)

	if err := writeStudents(tx, d.Entities); err != nil {
		return err
	}
	if err := writeRelationships(tx, d.Family); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return db.Close()
}

func writeStudents(tx *sql.Tx, entities []directory.Entity) error {
	stmt, err := tx.Prepare(`
		INSERT INTO students (position, roll, name, department, program, batch_year, batch,
			email, username, gender, blood_group, hall, room, hostel, state, hometown,
			photo_url, has_full_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare students insert: %w", err)
	}
	defer func() { _ = stmt.Close() }() // safe to ignore

	for i, e := range entities {
		var year sql.NullInt64
		if e.BatchYear > 0 {
			year = sql.NullInt64{Int64: int64(e.BatchYear), Valid: true}
		}
		_, err := stmt.Exec(i, e.Roll, e.Name, e.Department, e.Program, year, e.BatchLabel(),
			e.Email, e.Username, e.Gender, e.BloodGroup, e.Hall, e.Room, e.Hostel, e.State,
			e.Hometown, e.PhotoURL, e.HasFullData)
		if err != nil {
			return fmt.Errorf("insert student %s: %w", e.Roll, err)
		}
	}
	return nil
}

func writeRelationships(tx *sql.Tx, family *familytree.Index) error {
	rel, err := tx.Prepare(`INSERT INTO relationships (position, id, name, sg) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare relationships insert: %w", err)
	}
	defer func() { _ = rel.Close() }() // safe to ignore

	child, err := tx.Prepare(`INSERT INTO relationship_children (parent, child, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare relationship_children insert: %w", err)
	}
	defer func() { _ = child.Close() }() // safe to ignore

	for i, roll := range family.Rolls() {
		r, _ := family.Lookup(roll)
		sg := sql.NullString{String: r.SG, Valid: r.SG != ""}
		if _, err := rel.Exec(i, r.Roll, r.Name, sg); err != nil {
			return fmt.Errorf("insert relationship %s: %w", r.Roll, err)
		}
		for j, c := range r.Children {
			if _, err := child.Exec(r.Roll, c, j); err != nil {
				return fmt.Errorf("insert child %s of %s: %w", c, r.Roll, err)
			}
		}
	}
	return nil
}

// ReadStudents returns the exported entities in their original order.
func ReadStudents(path string) ([]directory.Entity, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query(`
		SELECT roll, name, department, program, batch_year, email, username, gender,
			blood_group, hall, room, hostel, state, hometown, photo_url, has_full_data
		FROM students ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	entities := []directory.Entity{}
	for rows.Next() {
		var (
			e    directory.Entity
			year sql.NullInt64
		)
		if err := rows.Scan(&e.Roll, &e.Name, &e.Department, &e.Program, &year, &e.Email,
			&e.Username, &e.Gender, &e.BloodGroup, &e.Hall, &e.Room, &e.Hostel, &e.State,
			&e.Hometown, &e.PhotoURL, &e.HasFullData); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if year.Valid {
			e.BatchYear = cohort.Year(year.Int64)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// ReadRelationships returns the exported relationship records in their
// original order.
func ReadRelationships(path string) ([]familytree.Record, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	children := make(map[string][]string)
	crows, err := db.Query(`SELECT parent, child FROM relationship_children ORDER BY parent, position`)
	if err != nil {
		return nil, fmt.Errorf("query relationship_children: %w", err)
	}
	defer func() { _ = crows.Close() }() // safe to ignore
	for crows.Next() {
		var parent, child string
		if err := crows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children[parent] = append(children[parent], child)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT id, name, sg FROM relationships ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	records := []familytree.Record{}
	for rows.Next() {
		var (
			r  familytree.Record
			sg sql.NullString
		)
		if err := rows.Scan(&r.Roll, &r.Name, &sg); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		r.SG = sg.String
		r.Children = children[r.Roll]
		if r.Children == nil {
			r.Children = []string{}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("export %s: %w", path, err)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}
