package directory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentic-research/rollcall/internal/cohort"
	"github.com/agentic-research/rollcall/internal/familytree"
	"github.com/agentic-research/rollcall/internal/roster"
)

const (
	DefaultEmailDomain = "iitk.ac.in"
	DefaultPhotoURL    = "https://oa.cc.iitk.ac.in/Oa/Jsp/Photo/%s_0.jpg"
)

// paddedWidth is the width of the zero-padded form of a short roll number.
const paddedWidth = 6

// legacyMarker prefixes roll numbers that are never zero-padded.
const legacyMarker = "Y"

var (
	datedSuffix = regexp.MustCompile(`\s*\(\d{2}-\d{2}-\d{4}\)`)
	spaces      = regexp.MustCompile(`\s+`)
)

// MergeOptions controls the derived fields of merged entities.
type MergeOptions struct {
	// EmailDomain is appended to usernames to form email addresses.
	EmailDomain string
	// PhotoURL is a printf template taking the roll number. Empty disables
	// photo URLs.
	PhotoURL string
}

// DefaultMergeOptions returns the options Merge uses.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{EmailDomain: DefaultEmailDomain, PhotoURL: DefaultPhotoURL}
}

// Merge reconciles roster records and tree-only individuals into one entity
// per roll number. See MergeWith.
func Merge(records []roster.Record, index *familytree.Index) []Entity {
	return MergeWith(records, index, DefaultMergeOptions())
}

// MergeWith builds the canonical entity set.
//
// Roster records come first, in the order their roll numbers first appear;
// a repeated roll number keeps its position but takes the later record.
// Tree records whose roll number is not already present follow in tree
// order, unless the zero-padded form of a non-legacy roll number is already
// present.
func MergeWith(records []roster.Record, index *familytree.Index, opts MergeOptions) []Entity {
	entities := make([]Entity, 0, len(records)+index.Len())
	pos := make(map[string]int, cap(entities))

	for _, rec := range records {
		e := fromRoster(rec, opts)
		if i, ok := pos[e.Roll]; ok {
			entities[i] = e
			continue
		}
		pos[e.Roll] = len(entities)
		entities = append(entities, e)
	}

	for _, roll := range index.Rolls() {
		if _, ok := pos[roll]; ok {
			continue
		}
		if !strings.HasPrefix(roll, legacyMarker) {
			if _, ok := pos[padRoll(roll)]; ok {
				continue
			}
		}
		rec, _ := index.Lookup(roll)
		year, _ := cohort.Classify(roll)
		pos[roll] = len(entities)
		entities = append(entities, Entity{
			Roll:      roll,
			Name:      rec.Name,
			BatchYear: year,
			PhotoURL:  opts.photoURL(roll),
		})
	}
	return entities
}

func fromRoster(rec roster.Record, opts MergeOptions) Entity {
	roll := roster.Roll.Get(rec)
	year, _ := cohort.Classify(roll)
	e := Entity{
		Roll:        roll,
		Name:        CleanName(roster.Name.Get(rec)),
		Department:  orNotAvailable(roster.Department.Get(rec)),
		Program:     orNotAvailable(roster.Program.Get(rec)),
		BatchYear:   year,
		Username:    roster.Username.Get(rec),
		Gender:      roster.Gender.Get(rec),
		BloodGroup:  roster.BloodGroup.Get(rec),
		Hall:        roster.Hall.Get(rec),
		Room:        roster.Room.Get(rec),
		State:       roster.State.Get(rec),
		Hometown:    roster.Hometown.Get(rec),
		PhotoURL:    opts.photoURL(roll),
		HasFullData: true,
		Hostel:      NotAvailable,
	}
	if e.Username != "" && opts.EmailDomain != "" {
		e.Email = e.Username + "@" + opts.EmailDomain
	}
	if e.Hall != "" {
		e.Hostel = e.Hall + "," + e.Room
	}
	return e
}

// CleanName drops "(dd-mm-yyyy)" annotations and collapses whitespace.
func CleanName(name string) string {
	name = datedSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(spaces.ReplaceAllString(name, " "))
}

func (o MergeOptions) photoURL(roll string) string {
	if o.PhotoURL == "" || roll == "" {
		return ""
	}
	return fmt.Sprintf(o.PhotoURL, roll)
}

func padRoll(roll string) string {
	if len(roll) >= paddedWidth {
		return roll
	}
	return strings.Repeat("0", paddedWidth-len(roll)) + roll
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
