// Package roster reads the flat roster resource. Records are kept untyped;
// each logical attribute is read through an ordered list of JSONPath
// accessors so that the first alias present wins.
package roster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Record is one roster entry as it appears in the source.
type Record map[string]any

// Field is one logical attribute and the source keys it may live under,
// in priority order.
type Field struct {
	Name  string
	Paths []jp.Expr
}

func field(name string, paths ...string) Field {
	f := Field{Name: name, Paths: make([]jp.Expr, len(paths))}
	for i, p := range paths {
		f.Paths[i] = jp.MustParseString(p)
	}
	return f
}

var (
	Roll       = field("roll", "$.roll", "$.rollNo")
	Name       = field("name", "$.name")
	Department = field("department", "$.dept", "$.department")
	Program    = field("program", "$.program")
	Username   = field("username", "$.username")
	Gender     = field("gender", "$.gender")
	BloodGroup = field("blood_group", "$.blood_group", "$.bloodGroup")
	Hall       = field("hall", "$.hall")
	Room       = field("room", "$.room")
	State      = field("state", "$.homestate", "$.state")
	Hometown   = field("hometown", "$.hometown")
)

// Resolve returns the first non-empty scalar found along f's paths.
func (f Field) Resolve(rec Record) (string, bool) {
	if rec == nil {
		return "", false
	}
	data := map[string]any(rec)
	for _, x := range f.Paths {
		if s, ok := scalar(x.First(data)); ok {
			return s, true
		}
	}
	return "", false
}

// Get is Resolve without the presence flag.
func (f Field) Get(rec Record) string {
	s, _ := f.Resolve(rec)
	return s
}

// scalar renders strings and numbers; everything else counts as absent.
func scalar(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int:
		s = strconv.Itoa(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return "", false
	}
	return s, s != ""
}

// Parse decodes a roster payload. The top level must be an array; elements
// that are not objects are skipped.
func Parse(data []byte) ([]Record, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parse roster: top level is %T, want array", v)
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, Record(obj))
		}
	}
	return records, nil
}
