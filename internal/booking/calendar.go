package booking

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsBookable rejects dates before today and weekends. today decides the zone.
func IsBookable(day, today time.Time) bool {
	today = dateOnly(today)
	d := dateOnly(day.In(today.Location()))
	if d.Before(today) {
		return false
	}
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBookableDay is the first bookable date strictly after today.
func NextBookableDay(today time.Time) time.Time {
	d := dateOnly(today).AddDate(0, 0, 1)
	for !IsBookable(d, today) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// ParseDate reads a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}
