// Package reporting computes the front-desk dashboard: patient and
// appointment counts over fixed windows, patients per weekday and revenue.
package reporting

import "time"

// Window is an inclusive time range.
type Window struct {
	From  time.Time `json:"from"`
	Until time.Time `json:"until"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.Until)
}

// Windows are cumulative: every window ends at the last millisecond of today
// and they differ only in how far back they start.
type Windows struct {
	Today       Window
	Last7Days   Window
	LastMonth   Window
	Last3Months Window
}

// WindowsAt computes the dashboard windows for now in now's location.
// "Today" starts at local midnight; the others start exactly 7 days, one
// calendar month and three calendar months before now.
func WindowsAt(now time.Time) Windows {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	endOfDay := midnight.AddDate(0, 0, 1).Add(-time.Millisecond)

	return Windows{
		Today:       Window{From: midnight, Until: endOfDay},
		Last7Days:   Window{From: now.AddDate(0, 0, -7), Until: endOfDay},
		LastMonth:   Window{From: now.AddDate(0, -1, 0), Until: endOfDay},
		Last3Months: Window{From: now.AddDate(0, -3, 0), Until: endOfDay},
	}
}

var dayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayOfWeek numbers days Sunday=1 through Saturday=7.
func DayOfWeek(t time.Time) int {
	return int(t.Weekday()) + 1
}

// DayLabel returns the three-letter label for a DayOfWeek number.
func DayLabel(day int) string {
	if day < 1 || day > 7 {
		return ""
	}
	return dayLabels[day-1]
}

type DayCount struct {
	DayOfWeek int    `json:"dayOfWeek"`
	Day       string `json:"day"`
	Count     int64  `json:"count"`
}

// DayCounts buckets timestamps by DayOfWeek in loc. Days without any
// timestamp are absent; the result is ordered Sunday first.
func DayCounts(times []time.Time, loc *time.Location) []DayCount {
	var buckets [8]int64
	for _, t := range times {
		buckets[DayOfWeek(t.In(loc))]++
	}
	out := []DayCount{}
	for day := 1; day <= 7; day++ {
		if buckets[day] > 0 {
			out = append(out, DayCount{DayOfWeek: day, Day: DayLabel(day), Count: buckets[day]})
		}
	}
	return out
}
