// Package cohort derives the intake year encoded in a roll number.
package cohort

import (
	"fmt"
	"strconv"
	"strings"
)

// Year is a four-digit cohort year. The zero value means "unknown".
type Year int

// legacyMarker prefixes roll numbers issued before the numeric scheme.
const legacyMarker = "Y"

// prefixRange is the accepted window for the two-digit year prefix of a
// numeric roll number of a given length.
type prefixRange struct{ lo, hi int }

var numericRanges = map[int]prefixRange{
	5: {10, 14},
	6: {15, 30},
	8: {15, 30},
}

// Classify returns the cohort year for a roll number, or false when the
// identifier does not follow any known encoding. It never fails.
func Classify(roll string) (Year, bool) {
	roll = strings.TrimSpace(roll)
	if roll == "" {
		return 0, false
	}

	if rest, ok := strings.CutPrefix(roll, legacyMarker); ok {
		if rest == "" {
			return 0, false
		}
		switch rest[0] {
		case '8':
			return 2008, true
		case '9':
			return 2009, true
		}
		return 0, false
	}

	r, ok := numericRanges[len(roll)]
	if !ok || !isDigits(roll) {
		return 0, false
	}
	prefix, err := strconv.Atoi(roll[:2])
	if err != nil || prefix < r.lo || prefix > r.hi {
		return 0, false
	}
	return Year(2000 + prefix), true
}

// Label renders a year the way the directory displays batches: "Y" followed
// by the last two digits, or "Unknown".
func Label(y Year) string {
	if y <= 0 {
		return "Unknown"
	}
	s := strconv.Itoa(int(y))
	if len(s) > 2 {
		s = s[len(s)-2:]
	}
	return "Y" + s
}

// ParseYear reads a cohort given either as a year ("2020") or as a batch
// label ("Y20").
func ParseYear(v string) (Year, error) {
	v = strings.TrimSpace(v)
	if rest, ok := strings.CutPrefix(v, legacyMarker); ok && len(rest) == 2 && isDigits(rest) {
		n, _ := strconv.Atoi(rest)
		return Year(2000 + n), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid cohort %q", v)
	}
	return Year(n), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
