package models

import "time"

// AvailabilityWindow is a mentor's recurring weekly open slot. It only feeds
// slot enumeration; actual bookings are tracked separately.
type AvailabilityWindow struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentor_id"`
	DayOfWeek int       `json:"day_of_week"` // 0 = Sunday, matching time.Weekday
	StartTime string    `json:"start_time"`  // "15:04"
	EndTime   string    `json:"end_time"`    // "15:04"
	CreatedAt time.Time `json:"created_at"`
}
