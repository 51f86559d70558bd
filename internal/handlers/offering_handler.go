package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/repository"
	"github.com/mentorleofficial/mentorle-api/internal/services"
)

type OfferingHandler struct {
	offerings offeringStore
}

type offeringStore interface {
	Create(ctx context.Context, input repository.CreateOfferingInput) (*models.Offering, error)
	GetByID(ctx context.Context, offeringID int64) (*models.Offering, error)
	ListByMentor(ctx context.Context, mentorID int64, includeArchived bool) ([]models.Offering, error)
	Update(ctx context.Context, offeringID int64, input repository.UpdateOfferingInput) (*models.Offering, error)
}

func NewOfferingHandler(offerings *repository.OfferingRepository) *OfferingHandler {
	return &OfferingHandler{offerings: offerings}
}

type createOfferingRequest struct {
	Title               string  `json:"title" validate:"required"`
	Description         *string `json:"description"`
	DurationMinutes     int     `json:"duration_minutes" validate:"required,gt=0"`
	BufferBeforeMinutes int     `json:"buffer_before_minutes" validate:"gte=0"`
	BufferAfterMinutes  int     `json:"buffer_after_minutes" validate:"gte=0"`
	MinNoticeHours      int     `json:"min_notice_hours" validate:"gte=0"`
	AdvanceBookingDays  int     `json:"advance_booking_days" validate:"gte=0"`
	MaxBookingsPerDay   int     `json:"max_bookings_per_day" validate:"gte=0"`
	Price               float64 `json:"price" validate:"gte=0"`
	Currency            string  `json:"currency"`

	// Admins may create on behalf of a mentor.
	MentorID int64 `json:"mentor_id"`
}

type updateOfferingRequest struct {
	Title               *string  `json:"title"`
	Description         *string  `json:"description"`
	Status              *string  `json:"status"`
	DurationMinutes     *int     `json:"duration_minutes"`
	BufferBeforeMinutes *int     `json:"buffer_before_minutes"`
	BufferAfterMinutes  *int     `json:"buffer_after_minutes"`
	MinNoticeHours      *int     `json:"min_notice_hours"`
	AdvanceBookingDays  *int     `json:"advance_booking_days"`
	MaxBookingsPerDay   *int     `json:"max_bookings_per_day"`
	Price               *float64 `json:"price"`
	Currency            *string  `json:"currency"`
}

func (h *OfferingHandler) CreateOffering(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if caller.Role != models.RoleMentor && !caller.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createOfferingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and a positive duration_minutes are required"})
	}

	mentorID := caller.UserID
	if caller.IsAdmin() {
		if req.MentorID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mentor_id is required"})
		}
		mentorID = req.MentorID
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}
	advanceDays := req.AdvanceBookingDays
	if advanceDays == 0 {
		advanceDays = 30
	}

	offering, err := h.offerings.Create(c.Context(), repository.CreateOfferingInput{
		MentorID:            mentorID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		Status:              models.OfferingDraft,
		DurationMinutes:     req.DurationMinutes,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		MinNoticeHours:      req.MinNoticeHours,
		AdvanceBookingDays:  advanceDays,
		MaxBookingsPerDay:   req.MaxBookingsPerDay,
		Price:               req.Price,
		Currency:            currency,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create offering"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": offering})
}

func (h *OfferingHandler) GetOffering(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	offeringID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offering id"})
	}

	offering, err := h.offerings.GetByID(c.Context(), offeringID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Offering not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch offering"})
	}

	// Unpublished offerings stay private to their owner.
	if offering.Status != models.OfferingActive && !canManageOffering(caller, offering) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Offering not found"})
	}

	return c.JSON(fiber.Map{"data": offering})
}

func (h *OfferingHandler) ListMentorOfferings(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	mentorID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentor id"})
	}

	owner := caller.UserID == mentorID || caller.IsAdmin()
	includeArchived := owner && c.QueryBool("include_archived")

	offerings, err := h.offerings.ListByMentor(c.Context(), mentorID, includeArchived)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list offerings"})
	}

	if !owner {
		visible := make([]models.Offering, 0, len(offerings))
		for _, offering := range offerings {
			if offering.Status == models.OfferingActive {
				visible = append(visible, offering)
			}
		}
		offerings = visible
	}

	return c.JSON(fiber.Map{"data": offerings})
}

func (h *OfferingHandler) UpdateOffering(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	offeringID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offering id"})
	}

	var req updateOfferingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	offering, err := h.offerings.GetByID(c.Context(), offeringID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Offering not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch offering"})
	}
	if !canManageOffering(caller, offering) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	if req.Status != nil && !models.IsValidOfferingStatus(*req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offering status"})
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "duration_minutes must be greater than 0"})
	}
	if req.Price != nil && *req.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price must not be negative"})
	}

	updated, err := h.offerings.Update(c.Context(), offeringID, repository.UpdateOfferingInput{
		Title:               req.Title,
		Description:         req.Description,
		Status:              req.Status,
		DurationMinutes:     req.DurationMinutes,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		MinNoticeHours:      req.MinNoticeHours,
		AdvanceBookingDays:  req.AdvanceBookingDays,
		MaxBookingsPerDay:   req.MaxBookingsPerDay,
		Price:               req.Price,
		Currency:            req.Currency,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Offering not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update offering"})
	}

	return c.JSON(fiber.Map{"data": updated})
}

func canManageOffering(caller services.AuthenticatedCaller, offering *models.Offering) bool {
	return caller.IsAdmin() || offering.MentorID == caller.UserID
}
