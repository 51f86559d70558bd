package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/repository"
	"github.com/mentorleofficial/mentorle-api/internal/scheduling"
)

var (
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrOfferingNotFound     = errors.New("offering not found")
	ErrOfferingNotBookable  = errors.New("offering is not open for booking")
	ErrSelfBookingForbidden = errors.New("mentors cannot book their own offerings")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidRating        = errors.New("rating must be an integer between 1 and 5")
	ErrFeedbackNotAllowed   = errors.New("feedback is only accepted on completed bookings")
)

// AuthenticatedCaller is the identity every orchestrator operation runs as,
// resolved once at the HTTP boundary. No handler state leaks past it.
type AuthenticatedCaller struct {
	UserID int64
	Role   string
}

func (c AuthenticatedCaller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

type identityResolver interface {
	Resolve(ctx context.Context, userID int64) (*models.DisplayIdentity, error)
}

type offeringReader interface {
	GetByID(ctx context.Context, offeringID int64) (*models.Offering, error)
}

type bookingStore interface {
	GetByID(ctx context.Context, bookingID int64) (*models.Booking, error)
	ListActiveByMentor(ctx context.Context, mentorID int64) ([]models.Booking, error)
	List(ctx context.Context, filter repository.BookingListFilter) ([]models.Booking, error)
	Update(ctx context.Context, bookingID int64, input repository.UpdateBookingInput) (*models.Booking, error)
}

type bookingNotifier interface {
	BookingUpdated(booking *models.Booking)
}

type BookingService struct {
	db         *pgxpool.Pool
	bookings   bookingStore
	offerings  offeringReader
	identities identityResolver
	notifier   bookingNotifier
}

func NewBookingService(
	db *pgxpool.Pool,
	bookings bookingStore,
	offerings offeringReader,
	identities identityResolver,
	notifier bookingNotifier,
) *BookingService {
	return &BookingService{
		db:         db,
		bookings:   bookings,
		offerings:  offerings,
		identities: identities,
		notifier:   notifier,
	}
}

type CreateBookingInput struct {
	OfferingID   int64
	ScheduledAt  time.Time
	Timezone     string
	MeetingNotes *string
}

// Create books a session for the caller against an active offering. The
// conflict and capacity checks run under a per-mentor advisory lock so two
// simultaneous requests for the same mentor serialize; the bookings table
// additionally carries an exclusion constraint over the occupied window, so
// a double booking cannot commit even if this path is bypassed.
func (s *BookingService) Create(
	ctx context.Context,
	caller AuthenticatedCaller,
	input CreateBookingInput,
) (*models.Booking, error) {
	if input.OfferingID <= 0 || input.ScheduledAt.IsZero() {
		return nil, ErrInvalidInput
	}

	offering, err := s.offerings.GetByID(ctx, input.OfferingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, err
	}
	if !offering.Bookable() {
		return nil, ErrOfferingNotBookable
	}
	if offering.MentorID == caller.UserID {
		return nil, ErrSelfBookingForbidden
	}

	timezone := strings.TrimSpace(input.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}

	status, paymentStatus := models.InitialBookingState(offering.Price)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookings := repository.NewBookingRepository(tx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", offering.MentorID); err != nil {
		return nil, err
	}

	existing, err := txBookings.ListActiveByMentor(ctx, offering.MentorID)
	if err != nil {
		return nil, err
	}
	if err := scheduling.Validate(
		input.ScheduledAt,
		offering,
		time.Now().UTC(),
		activeStarts(existing),
		0,
		false,
	); err != nil {
		return nil, err
	}

	booking, err := txBookings.Create(ctx, repository.CreateBookingInput{
		OfferingID:          offering.ID,
		MentorID:            offering.MentorID,
		MenteeID:            caller.UserID,
		ScheduledAt:         input.ScheduledAt.UTC(),
		DurationMinutes:     offering.DurationMinutes,
		BufferBeforeMinutes: offering.BufferBeforeMinutes,
		BufferAfterMinutes:  offering.BufferAfterMinutes,
		Timezone:            timezone,
		Status:              status,
		Amount:              offering.Price,
		Currency:            offering.Currency,
		PaymentStatus:       paymentStatus,
		MeetingNotes:        input.MeetingNotes,
	})
	if err != nil {
		return nil, exclusionToSlotConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, exclusionToSlotConflict(err)
	}

	s.notify(booking)
	return booking, nil
}

// Get returns a booking with both display identities attached. Only the
// booking's mentor, its mentee, or an admin may read it.
func (s *BookingService) Get(
	ctx context.Context,
	caller AuthenticatedCaller,
	bookingID int64,
) (*models.BookingDetail, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(caller, booking) {
		return nil, ErrForbidden
	}

	detail := &models.BookingDetail{Booking: *booking}
	if mentor, err := s.identities.Resolve(ctx, booking.MentorID); err == nil {
		detail.Mentor = mentor
	}
	if mentee, err := s.identities.Resolve(ctx, booking.MenteeID); err == nil {
		detail.Mentee = mentee
	}
	return detail, nil
}

type ListBookingsInput struct {
	Role         string
	Status       string
	From         *time.Time
	To           *time.Time
	UpcomingOnly bool

	// Admin-only filters; ignored for everyone else.
	AdminView bool
	MentorID  int64
	MenteeID  int64
}

// List scopes the query to the caller: mentors and mentees only see their own
// calendars, admins may query across users.
func (s *BookingService) List(
	ctx context.Context,
	caller AuthenticatedCaller,
	input ListBookingsInput,
) ([]models.Booking, error) {
	filter := repository.BookingListFilter{
		Status:       strings.TrimSpace(input.Status),
		From:         input.From,
		To:           input.To,
		UpcomingOnly: input.UpcomingOnly,
	}

	if input.AdminView && caller.IsAdmin() {
		filter.MentorID = input.MentorID
		filter.MenteeID = input.MenteeID
		return s.bookings.List(ctx, filter)
	}

	switch input.Role {
	case models.RoleMentor:
		filter.MentorID = caller.UserID
	case models.RoleMentee, "":
		filter.MenteeID = caller.UserID
	default:
		return nil, ErrInvalidInput
	}
	return s.bookings.List(ctx, filter)
}

type UpdateBookingInput struct {
	Status             *string
	ScheduledAt        *time.Time
	CancellationReason *string
	MeetingLink        *string
	MentorNotes        *string
	MenteeRating       *int
	MenteeFeedback     *string
}

// bookingFieldPolicy is the per-field permission table for PATCH. Fields the
// caller's role may not touch are dropped from the update set, not erred.
// The policy table makes that behavior explicit and auditable.
var bookingFieldPolicy = map[string][]string{
	"status":              {models.RoleMentor, models.RoleMentee, models.RoleAdmin},
	"scheduled_at":        {models.RoleMentor, models.RoleMentee, models.RoleAdmin},
	"cancellation_reason": {models.RoleMentor, models.RoleMentee, models.RoleAdmin},
	"meeting_link":        {models.RoleMentor, models.RoleAdmin},
	"mentor_notes":        {models.RoleMentor, models.RoleAdmin},
	"mentee_rating":       {models.RoleMentee},
	"mentee_feedback":     {models.RoleMentee},
}

func fieldAllowed(field, role string) bool {
	for _, allowed := range bookingFieldPolicy[field] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Update applies a partial mutation under the field policy. Status changes go
// through the transition table; moving scheduled_at re-runs slot validation
// against the mentor's other active bookings and always resets the booking
// to pending.
func (s *BookingService) Update(
	ctx context.Context,
	caller AuthenticatedCaller,
	bookingID int64,
	input UpdateBookingInput,
) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(caller, booking) {
		return nil, ErrForbidden
	}

	role := callerBookingRole(caller, booking)
	update := repository.UpdateBookingInput{}
	changed := false

	if input.Status != nil && fieldAllowed("status", role) {
		requested := strings.TrimSpace(*input.Status)
		if !models.IsValidBookingStatus(requested) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, requested)
		}
		if !models.CanTransitionBooking(booking.Status, requested, role) {
			return nil, fmt.Errorf(
				"%w: %s bookings cannot move to %s",
				ErrInvalidTransition, booking.Status, requested,
			)
		}
		update.Status = &requested
		if requested == models.BookingCancelled {
			cancelledBy := role
			update.CancelledBy = &cancelledBy
			if input.CancellationReason != nil && fieldAllowed("cancellation_reason", role) {
				update.CancellationReason = input.CancellationReason
			}
		}
		changed = true
	}

	if input.ScheduledAt != nil && fieldAllowed("scheduled_at", role) {
		if update.Status != nil {
			return nil, fmt.Errorf("%w: cannot change status and reschedule together", ErrInvalidTransition)
		}
		if !models.IsActiveBookingStatus(booking.Status) {
			return nil, fmt.Errorf(
				"%w: %s bookings cannot be rescheduled",
				ErrInvalidTransition, booking.Status,
			)
		}

		rescheduledAt := input.ScheduledAt.UTC()
		pending := models.BookingPending
		update.ScheduledAt = &rescheduledAt
		update.Status = &pending
		changed = true
	}

	if input.MeetingLink != nil && fieldAllowed("meeting_link", role) {
		update.MeetingLink = input.MeetingLink
		changed = true
	}
	if input.MentorNotes != nil && fieldAllowed("mentor_notes", role) {
		update.MentorNotes = input.MentorNotes
		changed = true
	}

	if (input.MenteeRating != nil || input.MenteeFeedback != nil) && fieldAllowed("mentee_rating", role) {
		if booking.Status != models.BookingCompleted {
			return nil, ErrFeedbackNotAllowed
		}
		if input.MenteeRating != nil {
			if *input.MenteeRating < 1 || *input.MenteeRating > 5 {
				return nil, ErrInvalidRating
			}
			update.MenteeRating = input.MenteeRating
			changed = true
		}
		if input.MenteeFeedback != nil {
			update.MenteeFeedback = input.MenteeFeedback
			changed = true
		}
	}

	if !changed {
		return booking, nil
	}

	var updated *models.Booking
	if update.ScheduledAt != nil {
		updated, err = s.reschedule(ctx, booking, update)
	} else {
		updated, err = s.bookings.Update(ctx, bookingID, update)
	}
	if err != nil {
		return nil, err
	}

	s.notify(updated)
	return updated, nil
}

// reschedule moves a booking under the same per-mentor advisory lock Create
// takes, so slot validation and the write see a stable calendar. The row
// itself is locked first: a concurrent status change must not race the move.
func (s *BookingService) reschedule(
	ctx context.Context,
	booking *models.Booking,
	update repository.UpdateBookingInput,
) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookings := repository.NewBookingRepository(tx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", booking.MentorID); err != nil {
		return nil, err
	}

	locked, err := txBookings.GetByIDForUpdate(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if !models.IsActiveBookingStatus(locked.Status) {
		return nil, fmt.Errorf(
			"%w: %s bookings cannot be rescheduled",
			ErrInvalidTransition, locked.Status,
		)
	}

	offering, err := s.offerings.GetByID(ctx, locked.OfferingID)
	if err != nil {
		return nil, err
	}
	existing, err := txBookings.ListActiveByMentor(ctx, locked.MentorID)
	if err != nil {
		return nil, err
	}
	if err := scheduling.Validate(
		*update.ScheduledAt,
		offering,
		time.Now().UTC(),
		activeStarts(existing),
		locked.ID,
		true,
	); err != nil {
		return nil, err
	}

	updated, err := txBookings.Update(ctx, locked.ID, update)
	if err != nil {
		return nil, exclusionToSlotConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, exclusionToSlotConflict(err)
	}
	return updated, nil
}

// exclusionToSlotConflict translates a violation of the bookings overlap
// constraint into the scheduling conflict error. A write that loses the race
// the validator could not see must still report as a conflict, not as a
// server fault.
func exclusionToSlotConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return fmt.Errorf("%w: the requested time overlaps an existing booking", scheduling.ErrSlotConflict)
	}
	return err
}

// AvailableSlots enumerates the bookable start times for an offering after
// filtering out everything the validator would reject. The offering must
// belong to mentorID.
func (s *BookingService) AvailableSlots(
	ctx context.Context,
	mentorID, offeringID int64,
	windows []models.AvailabilityWindow,
) ([]time.Time, error) {
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, err
	}
	if offering.MentorID != mentorID {
		return nil, ErrOfferingNotFound
	}
	if !offering.Bookable() {
		return nil, ErrOfferingNotBookable
	}

	now := time.Now().UTC()
	candidates, err := scheduling.EnumerateSlots(offering, windows, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.bookings.ListActiveByMentor(ctx, offering.MentorID)
	if err != nil {
		return nil, err
	}
	starts := activeStarts(existing)

	open := make([]time.Time, 0, len(candidates))
	for _, candidate := range candidates {
		if scheduling.Validate(candidate, offering, now, starts, 0, false) == nil {
			open = append(open, candidate)
		}
	}
	return open, nil
}

func (s *BookingService) notify(booking *models.Booking) {
	if s.notifier != nil {
		s.notifier.BookingUpdated(booking)
	}
}

func canAccessBooking(caller AuthenticatedCaller, booking *models.Booking) bool {
	if caller.IsAdmin() {
		return true
	}
	return booking.MentorID == caller.UserID || booking.MenteeID == caller.UserID
}

// callerBookingRole resolves which side of the booking the caller is on.
// Admins keep their role even when they are also a participant.
func callerBookingRole(caller AuthenticatedCaller, booking *models.Booking) string {
	if caller.IsAdmin() {
		return models.RoleAdmin
	}
	if booking.MentorID == caller.UserID {
		return models.RoleMentor
	}
	return models.RoleMentee
}

func activeStarts(bookings []models.Booking) []scheduling.ExistingBooking {
	starts := make([]scheduling.ExistingBooking, 0, len(bookings))
	for _, booking := range bookings {
		starts = append(starts, scheduling.ExistingBooking{
			ID:          booking.ID,
			ScheduledAt: booking.ScheduledAt,
		})
	}
	return starts
}
