package availability

import "testing"

func TestOrdinalSuffix(t *testing.T) {
	cases := map[int]string{
		1: "st", 2: "nd", 3: "rd", 4: "th",
		11: "th", 12: "th", 13: "th", 20: "th",
		21: "st", 22: "nd", 23: "rd", 30: "th", 31: "st",
	}
	for day, want := range cases {
		if got := OrdinalSuffix(day); got != want {
			t.Errorf("OrdinalSuffix(%d) = %q, want %q", day, got, want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-10-20T00:00:00", "12:00 AM"},
		{"2026-10-20T12:00:00", "12:00 PM"},
		{"2026-10-20T13:05:00", "1:05 PM"},
		{"2026-10-20T09:00:00", "9:00 AM"},
		{"2026-10-20T23:59:00-07:00", "11:59 PM"},
		{"2026-10-20", ClockUnavailable},
		{"2026-10-20T", ClockUnavailable},
		{"2026-10-20Tnoon", ClockUnavailable},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDateParts(t *testing.T) {
	tests := []struct {
		in      string
		weekday string
		date    string
	}{
		{"2026-10-20T09:00:00", "Tuesday", "October 20th"},
		{"2026-10-21", "Wednesday", "October 21st"},
		{"2026-11-02T08:30:00", "Monday", "November 2nd"},
		// converted to UTC before the day is taken
		{"2026-10-20T20:00:00-07:00", "Wednesday", "October 21st"},
	}
	for _, tt := range tests {
		parts, err := FormatDateParts(tt.in)
		if err != nil {
			t.Fatalf("FormatDateParts(%q): %v", tt.in, err)
		}
		if parts.DayOfWeek != tt.weekday || parts.FormattedDate != tt.date {
			t.Errorf("FormatDateParts(%q) = %+v, want %s / %s", tt.in, parts, tt.weekday, tt.date)
		}
		if parts.FormattedFullDate != tt.weekday+", "+tt.date {
			t.Errorf("unexpected full date %q", parts.FormattedFullDate)
		}
	}

	if _, err := FormatDateParts("not a date"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestFormatFull(t *testing.T) {
	parts, err := FormatDateParts("2026-10-20T09:00:00")
	if err != nil {
		t.Fatalf("FormatDateParts: %v", err)
	}
	got := FormatFull(parts, FormatClock("2026-10-20T09:00:00"))
	if got != "Tuesday, October 20th at 9:00 AM" {
		t.Fatalf("unexpected full string %q", got)
	}
}

func TestParseStart(t *testing.T) {
	a, ok := ParseStart("2026-10-20T09:00:00")
	if !ok {
		t.Fatal("expected naive timestamp to parse")
	}
	b, ok := ParseStart("2026-10-20T02:00:00-07:00")
	if !ok {
		t.Fatal("expected offset timestamp to parse")
	}
	if !a.Equal(b) {
		t.Fatalf("expected %s == %s", a, b)
	}
	if _, ok := ParseStart("2026-10-20"); ok {
		t.Fatal("date-only start should not parse as an instant")
	}
}
