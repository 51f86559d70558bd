package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/repository"
	"github.com/mentorleofficial/mentorle-api/internal/services"
)

type AvailabilityHandler struct {
	windows availabilityStore
	slots   slotEnumerator
}

type availabilityStore interface {
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	ListByMentor(ctx context.Context, mentorID int64) ([]models.AvailabilityWindow, error)
	Delete(ctx context.Context, windowID, mentorID int64) (bool, error)
}

type slotEnumerator interface {
	AvailableSlots(ctx context.Context, mentorID, offeringID int64, windows []models.AvailabilityWindow) ([]time.Time, error)
}

func NewAvailabilityHandler(windows *repository.AvailabilityRepository, slots *services.BookingService) *AvailabilityHandler {
	return &AvailabilityHandler{windows: windows, slots: slots}
}

type createAvailabilityRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func (h *AvailabilityHandler) CreateWindow(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if caller.Role != models.RoleMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "day_of_week, start_time and end_time are required"})
	}

	start, err := time.Parse("15:04", strings.TrimSpace(req.StartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be in HH:MM format"})
	}
	end, err := time.Parse("15:04", strings.TrimSpace(req.EndTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be in HH:MM format"})
	}
	if !end.After(start) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be after start_time"})
	}

	window := &models.AvailabilityWindow{
		MentorID:  caller.UserID,
		DayOfWeek: req.DayOfWeek,
		StartTime: start.Format("15:04"),
		EndTime:   end.Format("15:04"),
	}
	if err := h.windows.Create(c.Context(), window); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create availability window"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": window})
}

func (h *AvailabilityHandler) ListWindows(c *fiber.Ctx) error {
	if _, err := callerFromLocals(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	mentorID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentor id"})
	}

	windows, err := h.windows.ListByMentor(c.Context(), mentorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list availability windows"})
	}

	return c.JSON(fiber.Map{"data": windows})
}

func (h *AvailabilityHandler) DeleteWindow(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if caller.Role != models.RoleMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	windowID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid window id"})
	}

	deleted, err := h.windows.Delete(c.Context(), windowID, caller.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete availability window"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability window not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListSlots enumerates the open, bookable start times for one of the
// mentor's offerings.
func (h *AvailabilityHandler) ListSlots(c *fiber.Ctx) error {
	if _, err := callerFromLocals(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	mentorID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentor id"})
	}

	offeringID, err := strconv.ParseInt(strings.TrimSpace(c.Query("offering_id")), 10, 64)
	if err != nil || offeringID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "offering_id is required"})
	}

	windows, err := h.windows.ListByMentor(c.Context(), mentorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list availability windows"})
	}

	slots, err := h.slots.AvailableSlots(c.Context(), mentorID, offeringID, windows)
	if err != nil {
		return mapBookingError(c, err)
	}

	formatted := make([]string, 0, len(slots))
	for _, slot := range slots {
		formatted = append(formatted, slot.UTC().Format(time.RFC3339))
	}
	return c.JSON(fiber.Map{"data": formatted})
}
