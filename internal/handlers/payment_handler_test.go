package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/payments"
	"github.com/mentorleofficial/mentorle-api/internal/services"
)

type stubPaymentService struct {
	orderResult    *payments.Order
	orderErr       error
	linkResult     *payments.Order
	linkErr        error
	verifyResult   *payments.VerifyResult
	verifyErr      error
	webhookResult  *payments.WebhookEvent
	webhookErr     error
	lastCaller     services.AuthenticatedCaller
	lastBookingID  int64
	lastOrderID    string
	lastWebhookRaw []byte
}

func (s *stubPaymentService) CreateOrder(_ context.Context, caller services.AuthenticatedCaller, bookingID int64) (*payments.Order, error) {
	s.lastCaller = caller
	s.lastBookingID = bookingID
	return s.orderResult, s.orderErr
}

func (s *stubPaymentService) CreatePaymentLink(_ context.Context, caller services.AuthenticatedCaller, bookingID int64) (*payments.Order, error) {
	s.lastCaller = caller
	s.lastBookingID = bookingID
	return s.linkResult, s.linkErr
}

func (s *stubPaymentService) Verify(_ context.Context, caller services.AuthenticatedCaller, bookingID int64, orderID string) (*payments.VerifyResult, error) {
	s.lastCaller = caller
	s.lastBookingID = bookingID
	s.lastOrderID = orderID
	return s.verifyResult, s.verifyErr
}

func (s *stubPaymentService) HandleWebhook(_ context.Context, payload []byte) (*payments.WebhookEvent, error) {
	s.lastWebhookRaw = payload
	return s.webhookResult, s.webhookErr
}

func newPaymentTestApp(service *stubPaymentService, userID, role string) *fiber.App {
	handler := &PaymentHandler{service: service}

	app := fiber.New()
	app.Post("/api/payments/webhook", handler.Webhook)
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	})
	app.Post("/api/payments/create-order", handler.CreateOrder)
	app.Post("/api/payments/create-link", handler.CreatePaymentLink)
	app.Post("/api/payments/verify", handler.VerifyPayment)
	return app
}

func TestCreateOrderReturnsOrderDetails(t *testing.T) {
	service := &stubPaymentService{
		orderResult: &payments.Order{
			OrderID:          "booking_12_1700000000000",
			PaymentSessionID: "session-token",
		},
	}
	app := newPaymentTestApp(service, "42", models.RoleMentee)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/create-order", strings.NewReader(`{
		"booking_id": 12,
		"amount": 500,
		"currency": "INR"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 12 {
		t.Fatalf("expected booking id 12, got %d", service.lastBookingID)
	}

	var body struct {
		OrderID          string `json:"order_id"`
		PaymentSessionID string `json:"payment_session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.OrderID != "booking_12_1700000000000" || body.PaymentSessionID != "session-token" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestCreateOrderRejectsMissingBookingID(t *testing.T) {
	service := &stubPaymentService{}
	app := newPaymentTestApp(service, "42", models.RoleMentee)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/create-order", strings.NewReader(`{"amount": 500}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrderMapsPaymentNotDueToBadRequest(t *testing.T) {
	service := &stubPaymentService{orderErr: services.ErrPaymentNotDue}
	app := newPaymentTestApp(service, "42", models.RoleMentee)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/create-order", strings.NewReader(`{"booking_id": 12}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreatePaymentLinkReturnsURL(t *testing.T) {
	service := &stubPaymentService{
		linkResult: &payments.Order{
			OrderID:    "link_booking_12_1700000000000",
			PaymentURL: "https://payments.example.com/link/abc",
		},
	}
	app := newPaymentTestApp(service, "42", models.RoleMentee)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/create-link", strings.NewReader(`{"booking_id": 12}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		OrderID    string `json:"order_id"`
		PaymentURL string `json:"payment_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.PaymentURL != "https://payments.example.com/link/abc" {
		t.Fatalf("expected payment url, got %+v", body)
	}
}

func TestVerifyPaymentReturnsStatus(t *testing.T) {
	service := &stubPaymentService{
		verifyResult: &payments.VerifyResult{OrderStatus: "PAID", PaymentStatus: "SUCCESS", IsPaid: true},
	}
	app := newPaymentTestApp(service, "42", models.RoleMentee)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify", strings.NewReader(`{
		"booking_id": 12,
		"order_id": "booking_12_1700000000000"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastOrderID != "booking_12_1700000000000" {
		t.Fatalf("expected order id forwarded, got %q", service.lastOrderID)
	}

	var body struct {
		PaymentStatus string `json:"payment_status"`
		IsPaid        bool   `json:"is_paid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !body.IsPaid || body.PaymentStatus != "SUCCESS" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestVerifyPaymentMapsOrderMismatchToBadRequest(t *testing.T) {
	service := &stubPaymentService{verifyErr: services.ErrOrderMismatch}
	app := newPaymentTestApp(service, "42", models.RoleMentee)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify", strings.NewReader(`{
		"booking_id": 12,
		"order_id": "booking_99_1700000000000"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebhookForwardsRawPayload(t *testing.T) {
	service := &stubPaymentService{
		webhookResult: &payments.WebhookEvent{BookingID: 12, IsSuccess: true},
	}
	app := newPaymentTestApp(service, "", "")

	payload := `{"order_id":"booking_12_1700000000000","payment_status":"SUCCESS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(service.lastWebhookRaw) != payload {
		t.Fatalf("expected raw payload forwarded, got %q", service.lastWebhookRaw)
	}
}

func TestWebhookRejectsMalformedOrderID(t *testing.T) {
	service := &stubPaymentService{webhookErr: payments.ErrMalformedOrderID}
	app := newPaymentTestApp(service, "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"order_id":"nonsense"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebhookReturnsNotFoundForUnknownBooking(t *testing.T) {
	service := &stubPaymentService{webhookErr: pgx.ErrNoRows}
	app := newPaymentTestApp(service, "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"order_id":"booking_999_1700000000000","payment_status":"SUCCESS"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
