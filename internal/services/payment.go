package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
	"github.com/yoonbi/yoonbi-backend/internal/utils"
)

type PaymentInput struct {
	ReservationID string                `json:"reservationId"`
	Method        string                `json:"methode"`
	Details       models.PaymentDetails `json:"detailsMethode"`
}

// PaymentService records reservation payments
type PaymentService struct {
	store     storage.Store
	publisher events.Publisher
	now       func() time.Time
}

func NewPaymentService(store storage.Store, publisher events.Publisher) *PaymentService {
	return &PaymentService{store: store, publisher: publisher, now: time.Now}
}

// Process records a successful payment and confirms the reservation
func (s *PaymentService) Process(ctx context.Context, c Caller, in PaymentInput) (*models.Payment, error) {
	if in.ReservationID == "" {
		return nil, invalid("reservationId is required")
	}
	method, ok := models.ParsePaymentMethod(in.Method)
	if !ok {
		return nil, invalid("invalid payment method. allowed: CARD, MOBILE_MONEY, CASH")
	}

	reservation, err := s.store.GetReservation(ctx, in.ReservationID)
	if err != nil {
		return nil, fromStore("process payment", "reservation not found", err)
	}
	if reservation.ClientID != c.ID {
		return nil, forbidden("not authorized")
	}
	if reservation.Status != models.ReservationPending {
		return nil, invalid("this reservation has already been paid or cancelled")
	}
	if _, err := s.store.GetPaymentByReservation(ctx, reservation.ID); err == nil {
		return nil, invalid("a payment already exists for this reservation")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, internal("process payment", err)
	}

	ref, err := utils.PaymentReference(s.now())
	if err != nil {
		return nil, internal("process payment", err)
	}
	payment := &models.Payment{
		ReservationID: reservation.ID,
		Amount:        reservation.TotalAmount,
		Method:        method,
		Reference:     ref,
		Status:        models.PaymentSuccess,
		Details:       in.Details,
	}

	switch err := s.store.CreatePayment(ctx, payment); {
	case errors.Is(err, storage.ErrDuplicate):
		return nil, invalid("a payment already exists for this reservation")
	case errors.Is(err, storage.ErrConflict):
		return nil, invalid("this reservation has already been paid or cancelled")
	case err != nil:
		return nil, fromStore("process payment", "reservation not found", err)
	}
	log.Printf("💰 Payment %s recorded for reservation %s", payment.Reference, reservation.ID)

	publish(ctx, s.publisher, events.PaymentSucceeded, map[string]interface{}{
		"reference":     payment.Reference,
		"reservationId": reservation.ID,
		"amount":        payment.Amount,
		"method":        payment.Method,
	})
	return payment, nil
}

// GetByReference is open to the paying client, the trip's driver and admins
func (s *PaymentService) GetByReference(ctx context.Context, c Caller, ref string) (*models.Payment, error) {
	payment, err := s.store.GetPaymentByReference(ctx, ref)
	if err != nil {
		return nil, fromStore("get payment", "payment not found", err)
	}
	if !c.canSeePayment(payment) {
		return nil, forbidden("not authorized")
	}
	if payment.Reservation != nil {
		summarize(payment.Reservation)
	}
	return payment, nil
}
