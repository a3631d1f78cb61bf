package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeliveryConfig is a user's delivery preference, read fresh each sweep from
// the settings store. LocalTime is "HH:MM" in the user's Timezone; DaysMask is
// "daily", "weekdays", "weekends", or an explicit list like "Mon,Wed,Fri".
type DeliveryConfig struct {
	UserID    uuid.UUID
	Recipient string
	Enabled   bool
	LocalTime string
	DaysMask  string
	Timezone  string
}

// DispatchMarker is the durable per-user, per-period at-most-once guard.
// It is claimed atomically before any external send is attempted, so a crash
// mid-send cannot cause the next sweep to resend.
type DispatchMarker struct {
	UserID      uuid.UUID
	PeriodKey   string
	AttemptedAt time.Time
}

// DueAt reports whether the sweep running at nowUTC covers this user's
// configured slot, and if so, the user's local date (the period date).
//
// A sweep covers the window [local_time, local_time+interval) in the user's
// timezone, so a delivery is attempted in exactly one sweep per cycle even
// though the sweep cadence and the configured time rarely align exactly.
func (c DeliveryConfig) DueAt(nowUTC time.Time, interval time.Duration) (time.Time, bool, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	localNow := nowUTC.In(loc)
	if !dayMatches(c.DaysMask, localNow.Weekday()) {
		return time.Time{}, false, nil
	}

	hour, minute, err := parseLocalTime(c.LocalTime)
	if err != nil {
		return time.Time{}, false, err
	}

	slot := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, minute, 0, 0, loc)
	if localNow.Before(slot) || !localNow.Before(slot.Add(interval)) {
		return time.Time{}, false, nil
	}
	return localNow, true, nil
}

func parseLocalTime(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid local_time %q", s)
	}
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid local_time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("local_time %q out of range", s)
	}
	return hour, minute, nil
}

func dayMatches(mask string, weekday time.Weekday) bool {
	switch strings.ToLower(strings.TrimSpace(mask)) {
	case "", "daily":
		return true
	case "weekdays":
		return weekday != time.Saturday && weekday != time.Sunday
	case "weekends":
		return weekday == time.Saturday || weekday == time.Sunday
	}

	// Explicit list, e.g. "Mon,Wed,Fri".
	want := weekday.String()[:3]
	for _, d := range strings.Split(mask, ",") {
		d = strings.TrimSpace(d)
		if len(d) >= 3 && strings.EqualFold(d[:3], want) {
			return true
		}
	}
	return false
}
