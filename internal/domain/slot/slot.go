// Package slot handles the "HH:MM" labels doctors declare as bookable times
// of day.
package slot

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const layout = "15:04"

// Noon separates morning labels from afternoon ones. A 12:00 slot is PM.
const Noon = 12 * 60

// Minutes parses a well-formed 24h label into minutes past midnight.
func Minutes(label string) (int, error) {
	if len(label) != len(layout) {
		return 0, fmt.Errorf("slot %q: want HH:MM", label)
	}
	t, err := time.Parse(layout, label)
	if err != nil {
		return 0, fmt.Errorf("slot %q: want HH:MM", label)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks every label is a well-formed 24h time and none repeats.
func Validate(labels []string) error {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, err := Minutes(l); err != nil {
			return err
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("slot %q listed twice", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// Sort orders labels by time of day. Malformed labels sort last.
func Sort(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := Minutes(labels[i])
		b, errB := Minutes(labels[j])
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return a < b
	})
}

// Of projects an instant onto its label in loc.
func Of(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(layout)
}

// OnBoundary reports whether t carries no seconds or sub-second part, so it
// can match a label exactly.
func OnBoundary(t time.Time) bool {
	return t.Second() == 0 && t.Nanosecond() == 0
}

// DayRange returns the half-open interval [date 00:00, next day 00:00) in loc
// for the calendar date of d as seen in loc.
func DayRange(d time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, day := d.In(loc).Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Period is a half-day filter over declared labels.
type Period string

const (
	PeriodAny Period = ""
	PeriodAM  Period = "AM"
	PeriodPM  Period = "PM"
)

// ParsePeriod accepts "am"/"pm" in any case, or empty for no filter.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToUpper(strings.TrimSpace(s))) {
	case PeriodAny:
		return PeriodAny, nil
	case PeriodAM:
		return PeriodAM, nil
	case PeriodPM:
		return PeriodPM, nil
	}
	return PeriodAny, fmt.Errorf("time period must be AM or PM, got %q", s)
}

// Matches reports whether any label falls in the period.
func (p Period) Matches(labels []string) bool {
	if p == PeriodAny {
		return true
	}
	for _, l := range labels {
		m, err := Minutes(l)
		if err != nil {
			continue
		}
		if (p == PeriodAM) == (m < Noon) {
			return true
		}
	}
	return false
}
