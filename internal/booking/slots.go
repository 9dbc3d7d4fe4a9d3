package booking

import (
	"fmt"
	"time"
)

const slotLayout = "3:04 PM"

// TimeSlots are the bookable half-hour slots of a clinic day.
var TimeSlots = []string{
	"9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"1:00 PM", "1:30 PM", "2:00 PM", "2:30 PM", "3:00 PM", "3:30 PM", "4:00 PM", "4:30 PM",
}

// ValidSlot reports whether s is one of TimeSlots.
func ValidSlot(s string) bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}

// ParseSlot converts a 12-hour "h:mm AM" label to 24-hour clock values.
func ParseSlot(s string) (hour, minute int, err error) {
	t, err := time.Parse(slotLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	return t.Hour(), t.Minute(), nil
}

// ComposeDateTime places slot on day's calendar date, in day's location.
func ComposeDateTime(day time.Time, slot string) (time.Time, error) {
	h, m, err := ParseSlot(slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), nil
}
