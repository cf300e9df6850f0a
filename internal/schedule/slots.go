// Package schedule holds the fixed daily slot catalog shared by every doctor.
package schedule

import (
	"strings"
	"time"
)

const (
	// DateLayout is the wire and storage format for appointment dates.
	DateLayout = "2006-01-02"
	// LabelLayout renders slot labels such as "09:30 AM".
	LabelLayout = "03:04 PM"

	SlotDuration = 30 * time.Minute
)

// sessions are [start, end) windows of the working day; the lunch gap sits between them.
var sessions = [][2]time.Duration{
	{9 * time.Hour, 12*time.Hour + 30*time.Minute},
	{14 * time.Hour, 19 * time.Hour},
}

var (
	catalog = buildCatalog()
	index   = func() map[string]int {
		m := make(map[string]int, len(catalog))
		for i, label := range catalog {
			m[label] = i
		}
		return m
	}()
)

func buildCatalog() []string {
	var labels []string
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range sessions {
		for t := s[0]; t+SlotDuration <= s[1]; t += SlotDuration {
			labels = append(labels, day.Add(t).Format(LabelLayout))
		}
	}
	return labels
}

// Catalog returns the ordered slot labels. The slice is a copy.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// Normalize returns the canonical catalog label for s, accepting "9:00 AM"
// and "09:00 am" forms. ok is false when s is not a catalog slot.
func Normalize(s string) (label string, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	t, err := time.Parse("3:04 PM", s)
	if err != nil {
		return "", false
	}
	label = t.Format(LabelLayout)
	if _, ok := index[label]; !ok {
		return "", false
	}
	return label, true
}

// ParseDate parses a calendar date in DateLayout. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// Available returns the catalog minus booked, in catalog order.
func Available(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		if label, ok := Normalize(b); ok {
			taken[label] = struct{}{}
		}
	}

	free := make([]string, 0, len(catalog))
	for _, label := range catalog {
		if _, ok := taken[label]; !ok {
			free = append(free, label)
		}
	}
	return free
}
