package models

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
	BookingNoShow    = "no_show"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Booking is one scheduled session between a mentor and a mentee. Duration
// and buffers are snapshots of the offering at creation time; the buffers are
// stored so the occupied window can be enforced at the database level too.
type Booking struct {
	ID                  int64      `json:"id"`
	OfferingID          int64      `json:"offering_id"`
	MentorID            int64      `json:"mentor_id"`
	MenteeID            int64      `json:"mentee_id"`
	ScheduledAt         time.Time  `json:"scheduled_at"`
	DurationMinutes     int        `json:"duration_minutes"`
	BufferBeforeMinutes int        `json:"buffer_before_minutes"`
	BufferAfterMinutes  int        `json:"buffer_after_minutes"`
	Timezone            string     `json:"timezone"`
	Status              string     `json:"status"`
	Amount              float64    `json:"amount"`
	Currency            string     `json:"currency"`
	PaymentStatus       string     `json:"payment_status"`
	PaymentOrderID      *string    `json:"payment_order_id"`
	CancelledBy         *string    `json:"cancelled_by"`
	CancellationReason  *string    `json:"cancellation_reason"`
	MenteeRating        *int       `json:"mentee_rating"`
	MenteeFeedback      *string    `json:"mentee_feedback"`
	MeetingLink         *string    `json:"meeting_link"`
	MentorNotes         *string    `json:"mentor_notes"`
	MeetingNotes        *string    `json:"meeting_notes"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// BookingDetail enriches a booking with the display identities of both
// parties for single-booking responses.
type BookingDetail struct {
	Booking
	Mentor *DisplayIdentity `json:"mentor,omitempty"`
	Mentee *DisplayIdentity `json:"mentee,omitempty"`
}

// bookingTransitions is the full lifecycle graph: target statuses reachable
// from each current status, and the roles allowed to request each move.
// completed, cancelled and no_show are terminal.
var bookingTransitions = map[string]map[string][]string{
	BookingPending: {
		BookingConfirmed: {RoleMentor, RoleAdmin},
		BookingCancelled: {RoleMentor, RoleMentee, RoleAdmin},
	},
	BookingConfirmed: {
		BookingCompleted: {RoleMentor, RoleAdmin},
		BookingCancelled: {RoleMentor, RoleMentee, RoleAdmin},
		BookingNoShow:    {RoleMentor, RoleAdmin},
	},
}

// CanTransitionBooking reports whether role may move a booking from one
// status to another. A role outside the table is indistinguishable from a
// missing edge: both are invalid transitions, not authorization failures.
func CanTransitionBooking(from, to, role string) bool {
	targets, ok := bookingTransitions[from]
	if !ok {
		return false
	}
	roles, ok := targets[to]
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}

func IsValidBookingStatus(status string) bool {
	switch status {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

func IsTerminalBookingStatus(status string) bool {
	switch status {
	case BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// IsActiveBookingStatus marks the statuses that occupy the mentor's calendar.
func IsActiveBookingStatus(status string) bool {
	return status == BookingPending || status == BookingConfirmed
}

// InitialBookingState derives the status pair for a new booking from its
// price: free sessions confirm immediately, priced sessions wait for the
// gateway.
func InitialBookingState(amount float64) (status, paymentStatus string) {
	if amount == 0 {
		return BookingConfirmed, PaymentPaid
	}
	return BookingPending, PaymentPending
}

func (b *Booking) SessionEnd() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// OccupiedWindow is the buffer-inclusive range the booking blocks on the
// mentor's calendar.
func (b *Booking) OccupiedWindow() (start, end time.Time) {
	start = b.ScheduledAt.Add(-time.Duration(b.BufferBeforeMinutes) * time.Minute)
	end = b.SessionEnd().Add(time.Duration(b.BufferAfterMinutes) * time.Minute)
	return start, end
}
