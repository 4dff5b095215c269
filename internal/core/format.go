package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the storage layout of bill dates.
const DateLayout = "2006-01-02"

var frenchMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// ParseDate parses a stored bill date. A trailing time part is accepted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a stored date for display, e.g. "2004-04-04" -> "4 Avr. 04".
func FormatDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	month := []rune(frenchMonths[t.Month()-1])
	if len(month) > 3 {
		month = month[:3]
	}
	month[0] = unicode.ToUpper(month[0])
	return fmt.Sprintf("%d %s. %02d", t.Day(), string(month), t.Year()%100), nil
}

// FormatStatus maps a status code to its display label. Unknown codes pass through.
func FormatStatus(s Status) string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refusé"
	}
	return string(s)
}

// SortAntiChrono orders bills most recent first. Unparseable dates sort last
// and keep their relative order.
func SortAntiChrono(bills []Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		ti, erri := ParseDate(bills[i].Date)
		tj, errj := ParseDate(bills[j].Date)
		switch {
		case erri != nil && errj != nil:
			return false
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return ti.After(tj)
	})
}

// ParseAmount coerces a form amount to a number; anything unparseable is 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParsePct coerces a form percentage, falling back to DefaultPct when the
// value is empty, non-numeric or zero.
func ParsePct(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v == 0 {
		return DefaultPct
	}
	return v
}
