package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mentorleofficial/mentorle-api/internal/models"
)

const bookingColumns = `
	id, offering_id, mentor_id, mentee_id, scheduled_at, duration_min,
	buffer_before_min, buffer_after_min, timezone, status, amount, currency,
	payment_status, payment_order_id, cancelled_by, cancellation_reason,
	mentee_rating, mentee_feedback, meeting_link, mentor_notes, meeting_notes,
	created_at, updated_at`

type CreateBookingInput struct {
	OfferingID          int64
	MentorID            int64
	MenteeID            int64
	ScheduledAt         time.Time
	DurationMinutes     int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	Timezone            string
	Status              string
	Amount              float64
	Currency            string
	PaymentStatus       string
	MeetingNotes        *string
}

// UpdateBookingInput carries only the columns to change; nil fields are left
// untouched. updated_at is always stamped.
type UpdateBookingInput struct {
	Status             *string
	ScheduledAt        *time.Time
	PaymentStatus      *string
	PaymentOrderID     *string
	CancelledBy        *string
	CancellationReason *string
	MenteeRating       *int
	MenteeFeedback     *string
	MeetingLink        *string
	MentorNotes        *string
}

type BookingListFilter struct {
	MentorID     int64
	MenteeID     int64
	Status       string
	From         *time.Time
	To           *time.Time
	UpcomingOnly bool
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := fmt.Sprintf(`
		INSERT INTO bookings (
			offering_id, mentor_id, mentee_id, scheduled_at, duration_min,
			buffer_before_min, buffer_after_min, timezone, status, amount,
			currency, payment_status, meeting_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING %s
	`, bookingColumns)

	row := r.db.QueryRow(
		ctx,
		query,
		input.OfferingID,
		input.MentorID,
		input.MenteeID,
		input.ScheduledAt,
		input.DurationMinutes,
		input.BufferBeforeMinutes,
		input.BufferAfterMinutes,
		input.Timezone,
		input.Status,
		input.Amount,
		input.Currency,
		input.PaymentStatus,
		input.MeetingNotes,
	)
	return scanBooking(row)
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE id = $1
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

// GetByIDForUpdate locks the row for the rest of the transaction. The
// reschedule path uses it to pin the booking's status while it revalidates
// the new slot.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

// ListActiveByMentor returns the pending and confirmed bookings occupying a
// mentor's calendar, the input set for slot validation.
func (r *BookingRepository) ListActiveByMentor(ctx context.Context, mentorID int64) ([]models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE mentor_id = $1
		  AND status IN ('pending', 'confirmed')
		ORDER BY scheduled_at ASC, id ASC
	`, bookingColumns)

	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.Booking, error) {
	args := []any{}
	whereParts := []string{}

	addCond := func(cond string, value any) {
		args = append(args, value)
		whereParts = append(whereParts, fmt.Sprintf(cond, len(args)))
	}

	if filter.MentorID > 0 {
		addCond("mentor_id = $%d", filter.MentorID)
	}
	if filter.MenteeID > 0 {
		addCond("mentee_id = $%d", filter.MenteeID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		addCond("status = $%d", status)
	}
	if filter.From != nil {
		addCond("scheduled_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		addCond("scheduled_at <= $%d", *filter.To)
	}
	if filter.UpcomingOnly {
		whereParts = append(
			whereParts,
			"(scheduled_at + (duration_min * INTERVAL '1 minute')) > NOW()",
		)
	}

	where := "TRUE"
	if len(whereParts) > 0 {
		where = strings.Join(whereParts, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE %s
		ORDER BY scheduled_at ASC, id ASC
	`, bookingColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

// Update applies the non-nil fields and stamps updated_at.
func (r *BookingRepository) Update(ctx context.Context, bookingID int64, input UpdateBookingInput) (*models.Booking, error) {
	args := []any{bookingID}
	setParts := []string{"updated_at = NOW()"}

	addSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.Status != nil {
		addSet("status", *input.Status)
	}
	if input.ScheduledAt != nil {
		addSet("scheduled_at", *input.ScheduledAt)
	}
	if input.PaymentStatus != nil {
		addSet("payment_status", *input.PaymentStatus)
	}
	if input.PaymentOrderID != nil {
		addSet("payment_order_id", *input.PaymentOrderID)
	}
	if input.CancelledBy != nil {
		addSet("cancelled_by", *input.CancelledBy)
	}
	if input.CancellationReason != nil {
		addSet("cancellation_reason", *input.CancellationReason)
	}
	if input.MenteeRating != nil {
		addSet("mentee_rating", *input.MenteeRating)
	}
	if input.MenteeFeedback != nil {
		addSet("mentee_feedback", *input.MenteeFeedback)
	}
	if input.MeetingLink != nil {
		addSet("meeting_link", *input.MeetingLink)
	}
	if input.MentorNotes != nil {
		addSet("mentor_notes", *input.MentorNotes)
	}

	query := fmt.Sprintf(`
		UPDATE bookings
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), bookingColumns)

	return scanBooking(r.db.QueryRow(ctx, query, args...))
}

// ConfirmPayment marks the booking paid and promotes a pending booking to
// confirmed in one statement. Safe to repeat: a booking already paid or past
// pending keeps its status.
func (r *BookingRepository) ConfirmPayment(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET payment_status = 'paid',
		    status = CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, bookingColumns)

	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var booking models.Booking
	err := row.Scan(
		&booking.ID,
		&booking.OfferingID,
		&booking.MentorID,
		&booking.MenteeID,
		&booking.ScheduledAt,
		&booking.DurationMinutes,
		&booking.BufferBeforeMinutes,
		&booking.BufferAfterMinutes,
		&booking.Timezone,
		&booking.Status,
		&booking.Amount,
		&booking.Currency,
		&booking.PaymentStatus,
		&booking.PaymentOrderID,
		&booking.CancelledBy,
		&booking.CancellationReason,
		&booking.MenteeRating,
		&booking.MenteeFeedback,
		&booking.MeetingLink,
		&booking.MentorNotes,
		&booking.MeetingNotes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

type rowsScanner interface {
	Next() bool
	Err() error
	Scan(dest ...any) error
}

func scanBookings(rows rowsScanner) ([]models.Booking, error) {
	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
