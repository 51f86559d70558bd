package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingCredentials = errors.New("payment gateway credentials are not configured")
	ErrInvalidAmount      = errors.New("payment amount must be greater than zero")
	ErrMalformedOrderID   = errors.New("order id does not match the booking order format")
)

// Gateway order ids encode the booking they belong to:
// booking_{id}_{unix_ms} for hosted-checkout orders and
// link_booking_{id}_{unix_ms} for shareable payment links. The webhook path
// relies on this grammar to route callbacks back to a booking.
var orderIDPattern = regexp.MustCompile(`^(?:link_)?booking_([0-9]+)_[0-9]+$`)

const apiVersion = "2023-08-01"

type Client struct {
	baseURL    string
	appID      string
	secretKey  string
	returnURL  string
	httpClient *http.Client
}

func NewClient(baseURL, appID, secretKey, returnURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		secretKey:  secretKey,
		returnURL:  returnURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type OrderRequest struct {
	BookingID int64
	Amount    float64
	Currency  string
	Customer  Customer
}

type Order struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id,omitempty"`
	PaymentURL       string `json:"payment_url,omitempty"`
	Status           string `json:"order_status,omitempty"`
}

type VerifyResult struct {
	OrderStatus   string `json:"order_status"`
	PaymentStatus string `json:"payment_status"`
	IsPaid        bool   `json:"is_paid"`
}

// WebhookEvent is the provider callback reduced to what the booking core
// needs: which booking, and whether the payment definitively succeeded or
// failed. Anything else (pending, user dropped mid-flow) is neither.
type WebhookEvent struct {
	BookingID     int64
	OrderID       string
	PaymentStatus string
	IsSuccess     bool
	IsFailed      bool
}

// OrderID builds a fresh order id for a booking payment attempt.
func OrderID(bookingID int64) string {
	return fmt.Sprintf("booking_%d_%d", bookingID, time.Now().UnixMilli())
}

// LinkID builds the order id used for the shareable payment-link flow.
func LinkID(bookingID int64) string {
	return fmt.Sprintf("link_booking_%d_%d", bookingID, time.Now().UnixMilli())
}

// BookingIDFromOrderID recovers the booking id from either order id form.
func BookingIDFromOrderID(orderID string) (int64, error) {
	match := orderIDPattern.FindStringSubmatch(strings.TrimSpace(orderID))
	if match == nil {
		return 0, ErrMalformedOrderID
	}
	bookingID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, ErrMalformedOrderID
	}
	return bookingID, nil
}

// CreateOrder opens a hosted-checkout order with the gateway and returns the
// session the client completes payment against.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	orderID := OrderID(req.BookingID)
	payload := map[string]any{
		"order_id":       orderID,
		"order_amount":   req.Amount,
		"order_currency": req.Currency,
		"customer_details": map[string]any{
			"customer_id":    req.Customer.ID,
			"customer_name":  req.Customer.Name,
			"customer_email": req.Customer.Email,
			"customer_phone": req.Customer.Phone,
		},
		"order_meta": map[string]any{
			"return_url": c.returnURL,
		},
	}

	var response struct {
		OrderID          string `json:"order_id"`
		PaymentSessionID string `json:"payment_session_id"`
		OrderStatus      string `json:"order_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/pg/orders", payload, &response); err != nil {
		return nil, err
	}

	return &Order{
		OrderID:          response.OrderID,
		PaymentSessionID: response.PaymentSessionID,
		Status:           response.OrderStatus,
	}, nil
}

// CreatePaymentLink opens an order-less payment link the mentee can be sent
// directly. The link id carries the booking id the same way order ids do.
func (c *Client) CreatePaymentLink(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	linkID := LinkID(req.BookingID)
	payload := map[string]any{
		"link_id":       linkID,
		"link_amount":   req.Amount,
		"link_currency": req.Currency,
		"link_purpose":  fmt.Sprintf("Mentorship booking %d", req.BookingID),
		"customer_details": map[string]any{
			"customer_name":  req.Customer.Name,
			"customer_email": req.Customer.Email,
			"customer_phone": req.Customer.Phone,
		},
	}

	var response struct {
		LinkID  string `json:"link_id"`
		LinkURL string `json:"link_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/pg/links", payload, &response); err != nil {
		return nil, err
	}

	return &Order{
		OrderID:    response.LinkID,
		PaymentURL: response.LinkURL,
	}, nil
}

// VerifyOrder asks the gateway for the authoritative order state. The caller
// polls this until the payment settles; the client itself never retries.
func (c *Client) VerifyOrder(ctx context.Context, orderID string) (*VerifyResult, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}

	var response struct {
		OrderStatus string `json:"order_status"`
	}
	path := "/pg/orders/" + orderID
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}

	status := strings.ToUpper(strings.TrimSpace(response.OrderStatus))
	isPaid := status == "PAID"

	paymentStatus := "pending"
	if isPaid {
		paymentStatus = "paid"
	}

	return &VerifyResult{
		OrderStatus:   status,
		PaymentStatus: paymentStatus,
		IsPaid:        isPaid,
	}, nil
}

// ParseWebhook extracts the booking reference and payment outcome from a raw
// provider callback. Both the flat shape and the nested data.order/payment
// shape are accepted.
func ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var body struct {
		OrderID       string `json:"order_id"`
		PaymentStatus string `json:"payment_status"`
		Data          *struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
			Payment struct {
				PaymentStatus string `json:"payment_status"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	orderID := body.OrderID
	paymentStatus := body.PaymentStatus
	if orderID == "" && body.Data != nil {
		orderID = body.Data.Order.OrderID
		paymentStatus = body.Data.Payment.PaymentStatus
	}

	bookingID, err := BookingIDFromOrderID(orderID)
	if err != nil {
		return nil, err
	}

	status := strings.ToUpper(strings.TrimSpace(paymentStatus))
	event := &WebhookEvent{
		BookingID:     bookingID,
		OrderID:       orderID,
		PaymentStatus: status,
	}
	switch status {
	case "SUCCESS", "PAID":
		event.IsSuccess = true
	case "FAILED", "FAILURE", "CANCELLED", "USER_DROPPED":
		event.IsFailed = true
	}
	return event, nil
}

func (c *Client) checkCredentials() error {
	if c.appID == "" || c.secretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gateway request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
