package slot

import (
	"reflect"
	"testing"
	"time"
)

func TestMinutes(t *testing.T) {
	tests := []struct {
		label   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"9:30", 0, true},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Minutes(tt.label)
		if (err != nil) != tt.wantErr {
			t.Errorf("Minutes(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Minutes(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]string{"09:00", "09:30", "14:00"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Errorf("expected empty list to be valid, got %v", err)
	}
	if err := Validate([]string{"09:00", "09:00"}); err == nil {
		t.Error("expected duplicate label to be rejected")
	}
	if err := Validate([]string{"09:00", "9am"}); err == nil {
		t.Error("expected malformed label to be rejected")
	}
}

func TestSort(t *testing.T) {
	labels := []string{"14:00", "09:30", "bad", "09:00"}
	Sort(labels)
	want := []string{"09:00", "09:30", "14:00", "bad"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("Sort() = %v, want %v", labels, want)
	}
}

func TestOfAndDayRange(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	instant := time.Date(2025, 9, 18, 3, 30, 0, 0, time.UTC)

	if got := Of(instant, loc); got != "09:00" {
		t.Errorf("Of() = %s, want 09:00", got)
	}

	start, end := DayRange(instant, loc)
	wantStart := time.Date(2025, 9, 18, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantStart.Add(24 * time.Hour)) {
		t.Errorf("end = %v, want %v", end, wantStart.Add(24*time.Hour))
	}
	if instant.Before(start) || !instant.Before(end) {
		t.Error("expected instant to fall inside its own day range")
	}
}

func TestOnBoundary(t *testing.T) {
	if !OnBoundary(time.Date(2025, 9, 18, 9, 0, 0, 0, time.UTC)) {
		t.Error("expected whole minute to be on boundary")
	}
	if OnBoundary(time.Date(2025, 9, 18, 9, 0, 30, 0, time.UTC)) {
		t.Error("expected seconds to be off boundary")
	}
}

func TestPeriod(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Period
	}{
		{"", PeriodAny}, {"am", PeriodAM}, {" PM ", PeriodPM},
	} {
		got, err := ParsePeriod(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParsePeriod("evening"); err == nil {
		t.Error("expected error for unknown period")
	}

	morning := []string{"09:00", "11:30"}
	noon := []string{"12:00"}

	if !PeriodAM.Matches(morning) || PeriodPM.Matches(morning) {
		t.Error("expected morning labels to match AM only")
	}
	if PeriodAM.Matches(noon) || !PeriodPM.Matches(noon) {
		t.Error("expected 12:00 to count as PM")
	}
	if !PeriodAny.Matches(nil) {
		t.Error("expected PeriodAny to match anything")
	}
}
