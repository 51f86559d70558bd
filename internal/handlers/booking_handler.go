package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/scheduling"
	"github.com/mentorleofficial/mentorle-api/internal/services"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	Create(ctx context.Context, caller services.AuthenticatedCaller, input services.CreateBookingInput) (*models.Booking, error)
	Get(ctx context.Context, caller services.AuthenticatedCaller, bookingID int64) (*models.BookingDetail, error)
	List(ctx context.Context, caller services.AuthenticatedCaller, input services.ListBookingsInput) ([]models.Booking, error)
	Update(ctx context.Context, caller services.AuthenticatedCaller, bookingID int64, input services.UpdateBookingInput) (*models.Booking, error)
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	OfferingID   int64   `json:"offering_id" validate:"required,gt=0"`
	ScheduledAt  string  `json:"scheduled_at" validate:"required"`
	Timezone     string  `json:"timezone"`
	MeetingNotes *string `json:"meeting_notes"`
}

type updateBookingRequest struct {
	Status             *string `json:"status"`
	ScheduledAt        *string `json:"scheduled_at"`
	CancellationReason *string `json:"cancellation_reason"`
	MeetingLink        *string `json:"meeting_link"`
	MentorNotes        *string `json:"mentor_notes"`
	MenteeRating       *int    `json:"mentee_rating"`
	MenteeFeedback     *string `json:"mentee_feedback"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "offering_id and scheduled_at are required"})
	}

	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_at must be a valid RFC3339 timestamp"})
	}

	booking, err := h.service.Create(c.Context(), caller, services.CreateBookingInput{
		OfferingID:   req.OfferingID,
		ScheduledAt:  scheduledAt,
		Timezone:     req.Timezone,
		MeetingNotes: req.MeetingNotes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": booking})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	input := services.ListBookingsInput{
		Role:         strings.TrimSpace(c.Query("role")),
		Status:       strings.TrimSpace(c.Query("status")),
		UpcomingOnly: c.QueryBool("upcoming"),
		AdminView:    c.QueryBool("admin"),
		MentorID:     int64(c.QueryInt("mentor_id")),
		MenteeID:     int64(c.QueryInt("mentee_id")),
	}

	if from := strings.TrimSpace(c.Query("from")); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be a valid RFC3339 timestamp"})
		}
		input.From = &parsed
	}
	if to := strings.TrimSpace(c.Query("to")); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be a valid RFC3339 timestamp"})
		}
		input.To = &parsed
	}

	bookings, err := h.service.List(c.Context(), caller, input)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"data": bookings})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	detail, err := h.service.Get(c.Context(), caller, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"data": detail})
}

func (h *BookingHandler) UpdateBooking(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req updateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	input := services.UpdateBookingInput{
		Status:             req.Status,
		CancellationReason: req.CancellationReason,
		MeetingLink:        req.MeetingLink,
		MentorNotes:        req.MentorNotes,
		MenteeRating:       req.MenteeRating,
		MenteeFeedback:     req.MenteeFeedback,
	}
	if req.ScheduledAt != nil {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ScheduledAt))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_at must be a valid RFC3339 timestamp"})
		}
		input.ScheduledAt = &parsed
	}

	booking, err := h.service.Update(c.Context(), caller, bookingID, input)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"data": booking})
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrOfferingNotBookable),
		errors.Is(err, services.ErrSelfBookingForbidden),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrFeedbackNotAllowed),
		errors.Is(err, scheduling.ErrInsufficientNotice),
		errors.Is(err, scheduling.ErrOutOfHorizon),
		errors.Is(err, scheduling.ErrSlotConflict),
		errors.Is(err, scheduling.ErrDailyCapacityExceeded):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrOfferingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Offering not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
