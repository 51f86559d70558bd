package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOrderIDRoundTrip(t *testing.T) {
	orderID := OrderID(4217)
	if !strings.HasPrefix(orderID, "booking_4217_") {
		t.Fatalf("unexpected order id %q", orderID)
	}

	bookingID, err := BookingIDFromOrderID(orderID)
	if err != nil {
		t.Fatalf("BookingIDFromOrderID: %v", err)
	}
	if bookingID != 4217 {
		t.Fatalf("expected booking 4217, got %d", bookingID)
	}

	linkID := LinkID(4217)
	if !strings.HasPrefix(linkID, "link_booking_4217_") {
		t.Fatalf("unexpected link id %q", linkID)
	}
	bookingID, err = BookingIDFromOrderID(linkID)
	if err != nil || bookingID != 4217 {
		t.Fatalf("expected booking 4217 from link id, got %d, %v", bookingID, err)
	}
}

func TestBookingIDFromOrderIDRejectsOtherFormats(t *testing.T) {
	for _, orderID := range []string{
		"",
		"order_12_1700000000000",
		"booking_12",
		"booking__1700000000000",
		"booking_12_17000_extra",
	} {
		if _, err := BookingIDFromOrderID(orderID); !errors.Is(err, ErrMalformedOrderID) {
			t.Errorf("expected ErrMalformedOrderID for %q, got %v", orderID, err)
		}
	}
}

func TestParseWebhookSuccess(t *testing.T) {
	event, err := ParseWebhook([]byte(`{"order_id": "booking_123_1700000000000", "payment_status": "SUCCESS"}`))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if event.BookingID != 123 {
		t.Errorf("expected booking 123, got %d", event.BookingID)
	}
	if !event.IsSuccess || event.IsFailed {
		t.Errorf("expected success event, got %+v", event)
	}
}

func TestParseWebhookNestedPayload(t *testing.T) {
	payload := `{
		"type": "PAYMENT_SUCCESS_WEBHOOK",
		"data": {
			"order": {"order_id": "link_booking_55_1700000000001"},
			"payment": {"payment_status": "PAID"}
		}
	}`
	event, err := ParseWebhook([]byte(payload))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if event.BookingID != 55 || !event.IsSuccess {
		t.Fatalf("expected paid event for booking 55, got %+v", event)
	}
}

func TestParseWebhookFailureStatuses(t *testing.T) {
	for _, status := range []string{"FAILED", "USER_DROPPED", "CANCELLED"} {
		event, err := ParseWebhook([]byte(`{"order_id": "booking_9_1700000000000", "payment_status": "` + status + `"}`))
		if err != nil {
			t.Fatalf("ParseWebhook(%s): %v", status, err)
		}
		if event.IsSuccess || !event.IsFailed {
			t.Errorf("expected failure event for %s, got %+v", status, event)
		}
	}
}

func TestParseWebhookMalformedOrderID(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"order_id": "invoice_42_1700000000000", "payment_status": "SUCCESS"}`))
	if !errors.Is(err, ErrMalformedOrderID) {
		t.Fatalf("expected ErrMalformedOrderID, got %v", err)
	}
}

func TestCreateOrderSendsCredentialsAndAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-client-id") != "app" || r.Header.Get("x-client-secret") != "secret" {
			t.Error("missing gateway credentials headers")
		}
		if r.Header.Get("x-request-id") == "" {
			t.Error("missing request id header")
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["order_amount"].(float64) != 500 {
			t.Errorf("expected order_amount 500, got %v", body["order_amount"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"order_id":           body["order_id"],
			"payment_session_id": "session_xyz",
			"order_status":       "ACTIVE",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "https://example.test/return")
	order, err := client.CreateOrder(context.Background(), OrderRequest{
		BookingID: 12,
		Amount:    500,
		Currency:  "INR",
		Customer:  Customer{ID: "42", Name: "Test Mentee", Email: "mentee@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.PaymentSessionID != "session_xyz" {
		t.Errorf("expected session id, got %+v", order)
	}
	if _, err := BookingIDFromOrderID(order.OrderID); err != nil {
		t.Errorf("order id %q must carry the booking id", order.OrderID)
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	client := NewClient("https://sandbox.invalid", "app", "secret", "")
	_, err := client.CreateOrder(context.Background(), OrderRequest{BookingID: 1, Amount: 0, Currency: "INR"})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateOrderRequiresCredentials(t *testing.T) {
	client := NewClient("https://sandbox.invalid", "", "", "")
	_, err := client.CreateOrder(context.Background(), OrderRequest{BookingID: 1, Amount: 10, Currency: "INR"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestCreateOrderSurfacesGatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message": "upstream down"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "")
	_, err := client.CreateOrder(context.Background(), OrderRequest{BookingID: 1, Amount: 10, Currency: "INR"})
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected gateway failure error, got %v", err)
	}
}

func TestVerifyOrderMapsPaidStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/orders/booking_12_1700000000000" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"order_status": "PAID"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "")
	result, err := client.VerifyOrder(context.Background(), "booking_12_1700000000000")
	if err != nil {
		t.Fatalf("VerifyOrder: %v", err)
	}
	if !result.IsPaid || result.PaymentStatus != "paid" {
		t.Fatalf("expected paid result, got %+v", result)
	}
}

func TestVerifyOrderUnpaidStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"order_status": "ACTIVE"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "")
	result, err := client.VerifyOrder(context.Background(), "booking_12_1700000000000")
	if err != nil {
		t.Fatalf("VerifyOrder: %v", err)
	}
	if result.IsPaid || result.PaymentStatus != "pending" {
		t.Fatalf("expected pending result, got %+v", result)
	}
}
