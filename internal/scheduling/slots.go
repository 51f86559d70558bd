package scheduling

import (
	"fmt"
	"time"

	"github.com/mentorleofficial/mentorle-api/internal/models"
)

// EnumerateSlots expands a mentor's recurring availability windows into the
// concrete candidate start times for an offering, from today through
// today + advance_booking_days inclusive. Within a window, candidates step by
// duration + buffer_after starting at the window's opening, and a candidate
// is kept only while the full session still fits before the window closes.
// Starts earlier than now + min_notice_hours are dropped.
//
// The result is deterministic for identical inputs; conflicts with existing
// bookings are the validator's job, not enumeration's.
func EnumerateSlots(offering *models.Offering, windows []models.AvailabilityWindow, now time.Time) ([]time.Time, error) {
	if offering.DurationMinutes <= 0 {
		return nil, fmt.Errorf("offering %d has non-positive duration", offering.ID)
	}

	byWeekday := make(map[time.Weekday][]models.AvailabilityWindow, len(windows))
	for _, window := range windows {
		day := time.Weekday(window.DayOfWeek)
		byWeekday[day] = append(byWeekday[day], window)
	}

	duration := time.Duration(offering.DurationMinutes) * time.Minute
	step := duration + time.Duration(offering.BufferAfterMinutes)*time.Minute
	earliest := now.Add(time.Duration(offering.MinNoticeHours) * time.Hour)

	var slots []time.Time
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for offset := 0; offset <= offering.AdvanceBookingDays; offset++ {
		day := today.AddDate(0, 0, offset)
		for _, window := range byWeekday[day.Weekday()] {
			open, err := atClockTime(day, window.StartTime)
			if err != nil {
				return nil, err
			}
			close, err := atClockTime(day, window.EndTime)
			if err != nil {
				return nil, err
			}

			for start := open; !start.Add(duration).After(close); start = start.Add(step) {
				if start.Before(earliest) {
					continue
				}
				slots = append(slots, start)
			}
		}
	}

	return slots, nil
}

func atClockTime(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid availability time %q: %w", clock, err)
	}
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0,
		day.Location(),
	), nil
}
