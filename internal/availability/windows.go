package availability

import (
	"fmt"
	"time"
)

const clockLayout = "15:04"

// TimeWindow is a local time-of-day range passed to one scan call.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultWindows covers 06:00-22:00 with 2h windows stepping by 1h. The
// overlap keeps the provider's 8-result cap from hiding slots at window edges.
func DefaultWindows() []TimeWindow {
	windows, _ := BuildWindows("06:00", "22:00", 2*time.Hour, time.Hour)
	return windows
}

// BuildWindows covers [dayStart, dayEnd] with windows of the given width,
// starting every step. Step must be shorter than width so neighbours overlap.
// When the last stepped window stops short of dayEnd, a final window ending at
// dayEnd is added. A day shorter than one width yields a single window.
func BuildWindows(dayStart, dayEnd string, width, step time.Duration) ([]TimeWindow, error) {
	start, err := time.Parse(clockLayout, dayStart)
	if err != nil {
		return nil, fmt.Errorf("availability: invalid day start %q: %w", dayStart, err)
	}
	end, err := time.Parse(clockLayout, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("availability: invalid day end %q: %w", dayEnd, err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("availability: day end %s must be after day start %s", dayEnd, dayStart)
	}
	if width <= 0 || step <= 0 {
		return nil, fmt.Errorf("availability: window width and step must be positive")
	}
	if step >= width {
		return nil, fmt.Errorf("availability: window step %s must be shorter than width %s", step, width)
	}

	if end.Sub(start) < width {
		return []TimeWindow{{Start: dayStart, End: dayEnd}}, nil
	}
	var windows []TimeWindow
	covered := start
	for s := start; !s.Add(width).After(end); s = s.Add(step) {
		covered = s.Add(width)
		windows = append(windows, TimeWindow{
			Start: s.Format(clockLayout),
			End:   covered.Format(clockLayout),
		})
	}
	if covered.Before(end) {
		windows = append(windows, TimeWindow{
			Start: end.Add(-width).Format(clockLayout),
			End:   dayEnd,
		})
	}
	return windows, nil
}
