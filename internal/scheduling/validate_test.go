package scheduling

import (
	"errors"
	"testing"
	"time"
)

var validateNow = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

func TestValidateNoticeBoundary(t *testing.T) {
	offering := testOffering()

	exact := validateNow.Add(24 * time.Hour)
	if err := Validate(exact, offering, validateNow, nil, 0, false); err != nil {
		t.Fatalf("start exactly at the notice boundary must be accepted, got %v", err)
	}

	tooSoon := exact.Add(-time.Second)
	if err := Validate(tooSoon, offering, validateNow, nil, 0, false); !errors.Is(err, ErrInsufficientNotice) {
		t.Fatalf("expected ErrInsufficientNotice, got %v", err)
	}
}

func TestValidateHorizonBoundary(t *testing.T) {
	offering := testOffering()

	exact := validateNow.AddDate(0, 0, offering.AdvanceBookingDays)
	if err := Validate(exact, offering, validateNow, nil, 0, false); err != nil {
		t.Fatalf("start exactly at the horizon must be accepted, got %v", err)
	}

	beyond := exact.Add(time.Second)
	if err := Validate(beyond, offering, validateNow, nil, 0, false); !errors.Is(err, ErrOutOfHorizon) {
		t.Fatalf("expected ErrOutOfHorizon, got %v", err)
	}
}

func TestValidateHorizonSkippedOnReschedule(t *testing.T) {
	offering := testOffering()

	beyond := validateNow.AddDate(0, 0, offering.AdvanceBookingDays).Add(48 * time.Hour)
	if err := Validate(beyond, offering, validateNow, nil, 42, true); err != nil {
		t.Fatalf("reschedules are not horizon-checked, got %v", err)
	}
}

func TestValidateConflictWhenOtherBookingStartsInsideWindow(t *testing.T) {
	offering := testOffering()
	proposed := validateNow.Add(25 * time.Hour)

	// Occupied window: proposed-5m .. proposed+35m.
	cases := []struct {
		name     string
		otherAt  time.Time
		conflict bool
	}{
		{"inside buffer before", proposed.Add(-3 * time.Minute), true},
		{"same start", proposed, true},
		{"inside session", proposed.Add(20 * time.Minute), true},
		{"at window end", proposed.Add(35 * time.Minute), true},
		{"just past window end", proposed.Add(35*time.Minute + time.Second), false},
		{"just before window start", proposed.Add(-5*time.Minute - time.Second), false},
	}

	for _, tc := range cases {
		existing := []ExistingBooking{{ID: 9, ScheduledAt: tc.otherAt}}
		err := Validate(proposed, offering, validateNow, existing, 0, false)
		if tc.conflict && !errors.Is(err, ErrSlotConflict) {
			t.Errorf("%s: expected ErrSlotConflict, got %v", tc.name, err)
		}
		if !tc.conflict && err != nil {
			t.Errorf("%s: expected acceptance, got %v", tc.name, err)
		}
	}
}

func TestValidateExcludesRescheduledBooking(t *testing.T) {
	offering := testOffering()
	proposed := validateNow.Add(25 * time.Hour)

	existing := []ExistingBooking{{ID: 42, ScheduledAt: proposed}}
	if err := Validate(proposed, offering, validateNow, existing, 42, true); err != nil {
		t.Fatalf("booking being rescheduled must not conflict with itself, got %v", err)
	}
}

func TestValidateDailyCapacityBoundary(t *testing.T) {
	offering := testOffering()
	offering.MaxBookingsPerDay = 2

	day := validateNow.Add(26 * time.Hour)
	existing := []ExistingBooking{
		{ID: 1, ScheduledAt: day.Add(-2 * time.Hour)},
	}

	// One existing booking, cap 2: the second of the day is accepted.
	if err := Validate(day.Add(4*time.Hour), offering, validateNow, existing, 0, false); err != nil {
		t.Fatalf("expected the capacity-filling booking to be accepted, got %v", err)
	}

	existing = append(existing, ExistingBooking{ID: 2, ScheduledAt: day.Add(8 * time.Hour)})
	err := Validate(day.Add(4*time.Hour), offering, validateNow, existing, 0, false)
	if !errors.Is(err, ErrDailyCapacityExceeded) {
		t.Fatalf("expected ErrDailyCapacityExceeded, got %v", err)
	}
}

func TestValidateDailyCapacitySkippedOnReschedule(t *testing.T) {
	offering := testOffering()
	offering.MaxBookingsPerDay = 1

	day := validateNow.Add(26 * time.Hour)
	existing := []ExistingBooking{
		{ID: 1, ScheduledAt: day.Add(-4 * time.Hour)},
	}

	if err := Validate(day.Add(4*time.Hour), offering, validateNow, existing, 2, true); err != nil {
		t.Fatalf("reschedules are not capacity-checked, got %v", err)
	}
}

func TestValidateCountsOnlyProposedCalendarDay(t *testing.T) {
	offering := testOffering()
	offering.MaxBookingsPerDay = 1

	proposed := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	existing := []ExistingBooking{
		{ID: 1, ScheduledAt: time.Date(2026, 3, 17, 23, 0, 0, 0, time.UTC)},
		{ID: 2, ScheduledAt: time.Date(2026, 3, 19, 1, 0, 0, 0, time.UTC)},
	}

	if err := Validate(proposed, offering, validateNow, existing, 0, false); err != nil {
		t.Fatalf("bookings on neighbouring days must not count, got %v", err)
	}
}
