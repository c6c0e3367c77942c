package notice

import "time"

// DateLayout is the wire format for window bounds.
const DateLayout = "2006-01-02"

// Window is the publication date range a fetch covers, plus free-form
// filters forwarded to the notice API untouched.
type Window struct {
	From    time.Time
	To      time.Time
	Filters map[string]string
}

// WindowEndingOn returns a window covering lookbackDays days before day up to day itself.
func WindowEndingOn(day time.Time, lookbackDays int, filters map[string]string) Window {
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	to := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return Window{
		From:    to.AddDate(0, 0, -lookbackDays),
		To:      to,
		Filters: filters,
	}
}
