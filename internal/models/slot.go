package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSlots is the canonical slot table offered for booking, in clinic order.
var TimeSlots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "12:00 PM", "02:00 PM",
	"02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM",
	"04:30 PM", "05:00 PM",
}

const (
	// DateLayout is the calendar-date encoding used everywhere (no timezone).
	DateLayout = "2006-01-02"
	// SlotLayout is the time-of-day label encoding, e.g. "09:00 AM".
	SlotLayout = "03:04 PM"

	minSlotHour = 8
	maxSlotHour = 19
)

// NormalizeSlot canonicalizes a slot identifier. It accepts either a
// time-of-day label ("09:00 AM") or a bare hour in 8..19 ("9", "14") and
// returns the canonical label form. Both forms identify the same slot.
func NormalizeSlot(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty time slot")
	}

	if hour, err := strconv.Atoi(s); err == nil {
		if hour < minSlotHour || hour > maxSlotHour {
			return "", fmt.Errorf("hour %d outside clinic hours %d..%d", hour, minSlotHour, maxSlotHour)
		}
		return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format(SlotLayout), nil
	}

	t, err := time.Parse(SlotLayout, strings.ToUpper(s))
	if err != nil {
		return "", fmt.Errorf("invalid time slot %q: expected hour or label like \"09:00 AM\"", s)
	}
	if t.Hour() < minSlotHour || t.Hour() > maxSlotHour {
		return "", fmt.Errorf("slot %q outside clinic hours", s)
	}
	return t.Format(SlotLayout), nil
}

// SlotMinutes returns the slot's offset from midnight in minutes.
// Used for ordering appointments within a day.
func SlotMinutes(slot string) (int, error) {
	t, err := time.Parse(SlotLayout, slot)
	if err != nil {
		return 0, fmt.Errorf("invalid time slot %q: %w", slot, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SlotTime combines a calendar date and a slot label into a wall-clock time
// in the given location. Temporal status derives from this instant.
func SlotTime(date, slot string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	t, err := time.Parse(SlotLayout, slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time slot %q: %w", slot, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
