package models

import "time"

const (
	OfferingDraft    = "draft"
	OfferingActive   = "active"
	OfferingPaused   = "paused"
	OfferingArchived = "archived"
)

// Offering is a mentor's bookable service template. Duration and buffers are
// copied onto each booking at creation time, so editing an offering never
// rewrites history.
type Offering struct {
	ID                  int64     `json:"id"`
	MentorID            int64     `json:"mentor_id"`
	Title               string    `json:"title"`
	Description         *string   `json:"description"`
	Status              string    `json:"status"`
	DurationMinutes     int       `json:"duration_minutes"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	MinNoticeHours      int       `json:"min_notice_hours"`
	AdvanceBookingDays  int       `json:"advance_booking_days"`
	MaxBookingsPerDay   int       `json:"max_bookings_per_day"`
	Price               float64   `json:"price"`
	Currency            string    `json:"currency"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func IsValidOfferingStatus(status string) bool {
	switch status {
	case OfferingDraft, OfferingActive, OfferingPaused, OfferingArchived:
		return true
	}
	return false
}

func (o *Offering) Bookable() bool {
	return o.Status == OfferingActive
}
