package repository

import (
	"context"

	"github.com/mentorleofficial/mentorle-api/internal/models"
)

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	query := `
		INSERT INTO availability_windows (mentor_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, window.MentorID, window.DayOfWeek, window.StartTime, window.EndTime).
		Scan(&window.ID, &window.CreatedAt)
}

func (r *AvailabilityRepository) ListByMentor(ctx context.Context, mentorID int64) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, mentor_id, day_of_week, start_time, end_time, created_at
		FROM availability_windows
		WHERE mentor_id = $1
		ORDER BY day_of_week ASC, start_time ASC
	`
	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]models.AvailabilityWindow, 0)
	for rows.Next() {
		var window models.AvailabilityWindow
		if err := rows.Scan(
			&window.ID,
			&window.MentorID,
			&window.DayOfWeek,
			&window.StartTime,
			&window.EndTime,
			&window.CreatedAt,
		); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

// Delete removes a window only when it belongs to the given mentor and
// reports whether a row was removed.
func (r *AvailabilityRepository) Delete(ctx context.Context, windowID, mentorID int64) (bool, error) {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM availability_windows WHERE id = $1 AND mentor_id = $2`,
		windowID,
		mentorID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
