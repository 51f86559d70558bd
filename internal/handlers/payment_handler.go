package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/mentorleofficial/mentorle-api/internal/payments"
	"github.com/mentorleofficial/mentorle-api/internal/services"
)

type PaymentHandler struct {
	service paymentApplicationService
}

type paymentApplicationService interface {
	CreateOrder(ctx context.Context, caller services.AuthenticatedCaller, bookingID int64) (*payments.Order, error)
	CreatePaymentLink(ctx context.Context, caller services.AuthenticatedCaller, bookingID int64) (*payments.Order, error)
	Verify(ctx context.Context, caller services.AuthenticatedCaller, bookingID int64, orderID string) (*payments.VerifyResult, error)
	HandleWebhook(ctx context.Context, payload []byte) (*payments.WebhookEvent, error)
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type createOrderRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	// Amount and currency are accepted for compatibility but the booking's
	// own snapshot is authoritative.
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type verifyPaymentRequest struct {
	BookingID int64  `json:"booking_id" validate:"required,gt=0"`
	OrderID   string `json:"order_id" validate:"required"`
}

func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "booking_id is required"})
	}

	order, err := h.service.CreateOrder(c.Context(), caller, req.BookingID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"order_id":           order.OrderID,
		"payment_session_id": order.PaymentSessionID,
	})
}

func (h *PaymentHandler) CreatePaymentLink(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "booking_id is required"})
	}

	order, err := h.service.CreatePaymentLink(c.Context(), caller, req.BookingID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"order_id":    order.OrderID,
		"payment_url": order.PaymentURL,
	})
}

func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	caller, err := callerFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "booking_id and order_id are required"})
	}

	result, err := h.service.Verify(c.Context(), caller, req.BookingID, strings.TrimSpace(req.OrderID))
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"payment_status": result.PaymentStatus,
		"is_paid":        result.IsPaid,
	})
}

// Webhook receives the raw gateway callback. No bearer auth: the gateway is
// the caller. Failures are logged with the provider payload detail kept
// server-side only.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	event, err := h.service.HandleWebhook(c.Context(), c.Body())
	if err != nil {
		log.Printf("payment webhook rejected: %v", err)
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"booking_id": event.BookingID,
		"is_success": event.IsSuccess,
	})
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrPaymentNotDue),
		errors.Is(err, services.ErrBookingNotOpen),
		errors.Is(err, services.ErrOrderMismatch),
		errors.Is(err, payments.ErrMalformedOrderID),
		errors.Is(err, payments.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	default:
		log.Printf("payment gateway failure: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payment request"})
	}
}
