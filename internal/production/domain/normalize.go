package production

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DayLayout is the canonical day format.
const DayLayout = "2006-01-02"

const (
	serialMin = 20000
	serialMax = 90000
	nsPerDay  = 24 * 60 * 60 * 1e9
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006.1.2 15:04:05",
	"2006.1.2",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// NormalizeDate converts a spreadsheet serial or a date string to YYYY-MM-DD in loc.
func NormalizeDate(raw string, loc *time.Location) (string, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		if n > serialMin && n < serialMax {
			return serialDay(n, loc), true
		}
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc).Format(DayLayout), true
		}
	}
	return "", false
}

// serialDay counts days from the 1899-12-30 epoch on the wall clock of loc.
func serialDay(n float64, loc *time.Location) string {
	whole := math.Floor(n)
	frac := int((n - whole) * nsPerDay)
	t := time.Date(1899, time.December, 30+int(whole), 0, 0, 0, frac, loc)
	return t.Format(DayLayout)
}

// NormalizeInverter converts a raw device label to INV-<CODE>. The code keeps
// every character of the label after the prefix so distinct devices never
// share a bracket.
func NormalizeInverter(raw string) (string, bool) {
	base, _, _ := strings.Cut(raw, "/")
	base = strings.TrimSpace(base)
	lower := strings.ToLower(base)
	switch {
	case strings.HasPrefix(lower, "inv-"):
		base = base[4:]
	case strings.HasPrefix(lower, "inv"):
		base = base[3:]
	}
	code := strings.ToUpper(strings.TrimSpace(base))
	if code == "" {
		return "", false
	}
	return "INV-" + code, true
}

var nullTokens = map[string]struct{}{
	"na":        {},
	"n/a":       {},
	"null":      {},
	"undefined": {},
}

// NormalizeNumber parses a yield cell, tolerating thousands separators and blanks.
func NormalizeNumber(raw string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0, false
	}
	if _, ok := nullTokens[strings.ToLower(cleaned)]; ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
