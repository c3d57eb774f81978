// AngelaMos | 2026
// schedule.go

package report

import (
	"fmt"
	"time"
)

// NextRun returns the first wall-clock dailyAt ("HH:MM") in loc strictly
// after now.
func NextRun(now time.Time, dailyAt string, loc *time.Location) (time.Time, error) {
	at, err := time.Parse("15:04", dailyAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse daily time %q: %w", dailyAt, err)
	}

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour(), at.Minute(), 0, 0, loc)
	}
	return next, nil
}
