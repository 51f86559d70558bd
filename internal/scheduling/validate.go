package scheduling

import (
	"errors"
	"time"

	"github.com/mentorleofficial/mentorle-api/internal/models"
)

var (
	ErrInsufficientNotice    = errors.New("booking does not meet the minimum notice period")
	ErrOutOfHorizon          = errors.New("booking is beyond the advance booking window")
	ErrSlotConflict          = errors.New("requested time conflicts with another booking")
	ErrDailyCapacityExceeded = errors.New("mentor has reached the daily booking limit")
)

// ExistingBooking is the slice of booking state the validator needs: the
// start times of the mentor's active (pending or confirmed) bookings.
type ExistingBooking struct {
	ID          int64
	ScheduledAt time.Time
}

// Validate decides whether a proposed start time is admissible for an
// offering. For reschedules, excludeID skips the booking being moved and the
// horizon and daily-capacity checks do not apply.
//
// Boundary times are inclusive: a start exactly at now + min_notice_hours or
// exactly at now + advance_booking_days is accepted.
//
// The conflict check tests whether any other active booking *starts* inside
// this booking's buffer-padded window. It deliberately does not test full
// interval overlap; see the availability docs for the rationale.
func Validate(
	proposed time.Time,
	offering *models.Offering,
	now time.Time,
	existing []ExistingBooking,
	excludeID int64,
	reschedule bool,
) error {
	earliest := now.Add(time.Duration(offering.MinNoticeHours) * time.Hour)
	if proposed.Before(earliest) {
		return ErrInsufficientNotice
	}

	if !reschedule {
		horizon := now.AddDate(0, 0, offering.AdvanceBookingDays)
		if proposed.After(horizon) {
			return ErrOutOfHorizon
		}
	}

	bufferStart := proposed.Add(-time.Duration(offering.BufferBeforeMinutes) * time.Minute)
	sessionEnd := proposed.Add(time.Duration(offering.DurationMinutes) * time.Minute)
	bufferEnd := sessionEnd.Add(time.Duration(offering.BufferAfterMinutes) * time.Minute)

	for _, booking := range existing {
		if excludeID != 0 && booking.ID == excludeID {
			continue
		}
		if !booking.ScheduledAt.Before(bufferStart) && !booking.ScheduledAt.After(bufferEnd) {
			return ErrSlotConflict
		}
	}

	if !reschedule && offering.MaxBookingsPerDay > 0 {
		sameDay := 0
		for _, booking := range existing {
			if excludeID != 0 && booking.ID == excludeID {
				continue
			}
			if onSameDay(booking.ScheduledAt, proposed) {
				sameDay++
			}
		}
		if sameDay >= offering.MaxBookingsPerDay {
			return ErrDailyCapacityExceeded
		}
	}

	return nil
}

// onSameDay compares calendar dates in the proposed time's location.
func onSameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
