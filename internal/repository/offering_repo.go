package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mentorleofficial/mentorle-api/internal/models"
)

const offeringColumns = `
	id, mentor_id, title, description, status, duration_min,
	buffer_before_min, buffer_after_min, min_notice_hours,
	advance_booking_days, max_bookings_per_day, price, currency,
	created_at, updated_at`

type CreateOfferingInput struct {
	MentorID            int64
	Title               string
	Description         *string
	Status              string
	DurationMinutes     int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	MinNoticeHours      int
	AdvanceBookingDays  int
	MaxBookingsPerDay   int
	Price               float64
	Currency            string
}

type UpdateOfferingInput struct {
	Title               *string
	Description         *string
	Status              *string
	DurationMinutes     *int
	BufferBeforeMinutes *int
	BufferAfterMinutes  *int
	MinNoticeHours      *int
	AdvanceBookingDays  *int
	MaxBookingsPerDay   *int
	Price               *float64
	Currency            *string
}

type OfferingRepository struct {
	db DBTX
}

func NewOfferingRepository(db DBTX) *OfferingRepository {
	return &OfferingRepository{db: db}
}

func (r *OfferingRepository) Create(ctx context.Context, input CreateOfferingInput) (*models.Offering, error) {
	query := fmt.Sprintf(`
		INSERT INTO offerings (
			mentor_id, title, description, status, duration_min,
			buffer_before_min, buffer_after_min, min_notice_hours,
			advance_booking_days, max_bookings_per_day, price, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s
	`, offeringColumns)

	row := r.db.QueryRow(
		ctx,
		query,
		input.MentorID,
		input.Title,
		input.Description,
		input.Status,
		input.DurationMinutes,
		input.BufferBeforeMinutes,
		input.BufferAfterMinutes,
		input.MinNoticeHours,
		input.AdvanceBookingDays,
		input.MaxBookingsPerDay,
		input.Price,
		input.Currency,
	)
	return scanOffering(row)
}

func (r *OfferingRepository) GetByID(ctx context.Context, offeringID int64) (*models.Offering, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM offerings
		WHERE id = $1
	`, offeringColumns)
	return scanOffering(r.db.QueryRow(ctx, query, offeringID))
}

// ListByMentor returns a mentor's offerings; archived ones are included only
// when requested so owners can still see their history.
func (r *OfferingRepository) ListByMentor(ctx context.Context, mentorID int64, includeArchived bool) ([]models.Offering, error) {
	where := "mentor_id = $1"
	if !includeArchived {
		where += " AND status <> 'archived'"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM offerings
		WHERE %s
		ORDER BY created_at DESC, id DESC
	`, offeringColumns, where)

	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offerings := make([]models.Offering, 0)
	for rows.Next() {
		offering, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		offerings = append(offerings, *offering)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return offerings, nil
}

func (r *OfferingRepository) Update(ctx context.Context, offeringID int64, input UpdateOfferingInput) (*models.Offering, error) {
	args := []any{offeringID}
	setParts := []string{"updated_at = NOW()"}

	addSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.Title != nil {
		addSet("title", *input.Title)
	}
	if input.Description != nil {
		addSet("description", *input.Description)
	}
	if input.Status != nil {
		addSet("status", *input.Status)
	}
	if input.DurationMinutes != nil {
		addSet("duration_min", *input.DurationMinutes)
	}
	if input.BufferBeforeMinutes != nil {
		addSet("buffer_before_min", *input.BufferBeforeMinutes)
	}
	if input.BufferAfterMinutes != nil {
		addSet("buffer_after_min", *input.BufferAfterMinutes)
	}
	if input.MinNoticeHours != nil {
		addSet("min_notice_hours", *input.MinNoticeHours)
	}
	if input.AdvanceBookingDays != nil {
		addSet("advance_booking_days", *input.AdvanceBookingDays)
	}
	if input.MaxBookingsPerDay != nil {
		addSet("max_bookings_per_day", *input.MaxBookingsPerDay)
	}
	if input.Price != nil {
		addSet("price", *input.Price)
	}
	if input.Currency != nil {
		addSet("currency", *input.Currency)
	}

	query := fmt.Sprintf(`
		UPDATE offerings
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), offeringColumns)

	return scanOffering(r.db.QueryRow(ctx, query, args...))
}

func scanOffering(row rowScanner) (*models.Offering, error) {
	var offering models.Offering
	err := row.Scan(
		&offering.ID,
		&offering.MentorID,
		&offering.Title,
		&offering.Description,
		&offering.Status,
		&offering.DurationMinutes,
		&offering.BufferBeforeMinutes,
		&offering.BufferAfterMinutes,
		&offering.MinNoticeHours,
		&offering.AdvanceBookingDays,
		&offering.MaxBookingsPerDay,
		&offering.Price,
		&offering.Currency,
		&offering.CreatedAt,
		&offering.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &offering, nil
}
