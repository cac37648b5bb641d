package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockUnavailable is returned by FormatClock when the input has no usable time-of-day.
const ClockUnavailable = "Time unavailable"

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// DateParts are the speakable pieces of a calendar date.
type DateParts struct {
	DayOfWeek         string // "Tuesday"
	FormattedDate     string // "October 20th"
	FormattedFullDate string // "Tuesday, October 20th"
}

// FormatDateParts derives the weekday and ordinal date of ts. Date-only values
// are pinned to noon; values without an offset are read as UTC and values with
// one are converted to UTC before the calendar day is taken.
func FormatDateParts(ts string) (DateParts, error) {
	t, err := parseTimestamp(ts)
	if err != nil {
		return DateParts{}, err
	}
	t = t.UTC()
	day := t.Day()
	date := fmt.Sprintf("%s %d%s", t.Month(), day, OrdinalSuffix(day))
	return DateParts{
		DayOfWeek:         t.Weekday().String(),
		FormattedDate:     date,
		FormattedFullDate: t.Weekday().String() + ", " + date,
	}, nil
}

// OrdinalSuffix returns the English ordinal suffix for a day of month.
func OrdinalSuffix(day int) string {
	if day > 3 && day < 21 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// FormatClock renders the literal time-of-day of ts as "3:05 PM". The offset,
// if any, is ignored: the provider reports times in the location's own clock.
func FormatClock(ts string) string {
	_, timePart, ok := strings.Cut(ts, "T")
	if !ok || timePart == "" {
		return ClockUnavailable
	}
	fields := strings.SplitN(timePart, ":", 3)
	if len(fields) < 2 {
		return ClockUnavailable
	}
	hours, err := strconv.Atoi(fields[0])
	if err != nil || hours < 0 || hours > 23 {
		return ClockUnavailable
	}
	minField := fields[1]
	if len(minField) > 2 {
		minField = minField[:2]
	}
	minutes, err := strconv.Atoi(minField)
	if err != nil || minutes < 0 || minutes > 59 {
		return ClockUnavailable
	}

	suffix := "AM"
	if hours >= 12 {
		suffix = "PM"
	}
	hours %= 12
	if hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%d:%02d %s", hours, minutes, suffix)
}

// FormatFull joins date parts and a clock string: "Tuesday, October 20th at 9:00 AM".
func FormatFull(parts DateParts, clock string) string {
	return parts.FormattedFullDate + " at " + clock
}

// ParseStart parses a provider timestamp to an instant. Naive values are UTC.
func ParseStart(ts string) (time.Time, bool) {
	if !strings.Contains(ts, "T") {
		return time.Time{}, false
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, fmt.Errorf("availability: empty timestamp")
	}
	if !strings.Contains(ts, "T") {
		ts += "T12:00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("availability: unparseable timestamp %q", ts)
}
