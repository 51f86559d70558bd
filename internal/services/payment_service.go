package services

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/payments"
	"github.com/mentorleofficial/mentorle-api/internal/repository"
)

var (
	ErrPaymentNotDue  = errors.New("booking does not require payment")
	ErrOrderMismatch  = errors.New("order id does not belong to this booking")
	ErrBookingNotOpen = errors.New("booking is no longer awaiting payment")
)

type paymentGateway interface {
	CreateOrder(ctx context.Context, req payments.OrderRequest) (*payments.Order, error)
	CreatePaymentLink(ctx context.Context, req payments.OrderRequest) (*payments.Order, error)
	VerifyOrder(ctx context.Context, orderID string) (*payments.VerifyResult, error)
}

type paymentBookingStore interface {
	GetByID(ctx context.Context, bookingID int64) (*models.Booking, error)
	Update(ctx context.Context, bookingID int64, input repository.UpdateBookingInput) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID int64) (*models.Booking, error)
}

// PaymentService reconciles bookings with the payment gateway. Confirmation
// of a priced booking happens here and only here, after the gateway reports
// the payment settled via verify polling or a webhook.
type PaymentService struct {
	gateway    paymentGateway
	bookings   paymentBookingStore
	identities identityResolver
	notifier   bookingNotifier
}

func NewPaymentService(
	gateway paymentGateway,
	bookings paymentBookingStore,
	identities identityResolver,
	notifier bookingNotifier,
) *PaymentService {
	return &PaymentService{
		gateway:    gateway,
		bookings:   bookings,
		identities: identities,
		notifier:   notifier,
	}
}

// CreateOrder opens a gateway order for a pending priced booking. Only the
// paying mentee or an admin may start the payment flow.
func (s *PaymentService) CreateOrder(
	ctx context.Context,
	caller AuthenticatedCaller,
	bookingID int64,
) (*payments.Order, error) {
	booking, req, err := s.prepareOrder(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, *req)
	if err != nil {
		return nil, err
	}

	s.rememberOrder(ctx, booking.ID, order.OrderID)
	return order, nil
}

// CreatePaymentLink is the order-less alternative producing a shareable URL.
func (s *PaymentService) CreatePaymentLink(
	ctx context.Context,
	caller AuthenticatedCaller,
	bookingID int64,
) (*payments.Order, error) {
	booking, req, err := s.prepareOrder(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreatePaymentLink(ctx, *req)
	if err != nil {
		return nil, err
	}

	s.rememberOrder(ctx, booking.ID, order.OrderID)
	return order, nil
}

// Verify polls the gateway for the order state and, when the payment has
// settled, marks the booking paid and promotes pending to confirmed. Callers
// are expected to poll until settled; an unpaid result is not an error.
func (s *PaymentService) Verify(
	ctx context.Context,
	caller AuthenticatedCaller,
	bookingID int64,
	orderID string,
) (*payments.VerifyResult, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(caller, booking) {
		return nil, ErrForbidden
	}

	orderBookingID, err := payments.BookingIDFromOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if orderBookingID != booking.ID {
		return nil, ErrOrderMismatch
	}

	result, err := s.gateway.VerifyOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if result.IsPaid && booking.PaymentStatus != models.PaymentPaid {
		confirmed, err := s.bookings.ConfirmPayment(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		s.notifyBooking(confirmed)
	}

	return result, nil
}

// HandleWebhook reconciles a raw gateway callback. Success marks the booking
// paid; failure leaves it pending for the next verify poll or retry. Repeat
// deliveries for an already-paid booking are acknowledged without effect.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte) (*payments.WebhookEvent, error) {
	event, err := payments.ParseWebhook(payload)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		return nil, err
	}

	if event.IsSuccess && booking.PaymentStatus != models.PaymentPaid {
		confirmed, err := s.bookings.ConfirmPayment(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		s.notifyBooking(confirmed)
	}

	return event, nil
}

func (s *PaymentService) prepareOrder(
	ctx context.Context,
	caller AuthenticatedCaller,
	bookingID int64,
) (*models.Booking, *payments.OrderRequest, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.MenteeID != caller.UserID && !caller.IsAdmin() {
		return nil, nil, ErrForbidden
	}
	if booking.Amount <= 0 || booking.PaymentStatus == models.PaymentPaid {
		return nil, nil, ErrPaymentNotDue
	}
	if booking.Status != models.BookingPending {
		return nil, nil, ErrBookingNotOpen
	}

	req := payments.OrderRequest{
		BookingID: booking.ID,
		Amount:    booking.Amount,
		Currency:  booking.Currency,
		Customer: payments.Customer{
			ID: strconv.FormatInt(booking.MenteeID, 10),
		},
	}
	if identity, err := s.identities.Resolve(ctx, booking.MenteeID); err == nil {
		req.Customer.Name = identity.FullName
		req.Customer.Email = identity.Email
	}

	return booking, &req, nil
}

// rememberOrder stores the latest order id on the booking for diagnostics.
// A failure here is logged, not surfaced: the gateway order already exists
// and the webhook carries the booking id on its own.
func (s *PaymentService) rememberOrder(ctx context.Context, bookingID int64, orderID string) {
	if _, err := s.bookings.Update(ctx, bookingID, repository.UpdateBookingInput{
		PaymentOrderID: &orderID,
	}); err != nil {
		log.Printf("failed to record order %s on booking %d: %v", orderID, bookingID, err)
	}
}

func (s *PaymentService) notifyBooking(booking *models.Booking) {
	if s.notifier != nil {
		s.notifier.BookingUpdated(booking)
	}
}
