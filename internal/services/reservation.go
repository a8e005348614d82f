package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

type CreateReservationInput struct {
	TripID         string `json:"trajetId"`
	Seats          int    `json:"nbPlaces"`
	PickupAddress  string `json:"adresseDepart"`
	DropoffAddress string `json:"adresseArrivee"`
}

type CancelReservationInput struct {
	Reason string `json:"motif"`
}

type ReservationStatusInput struct {
	Status string `json:"etat"`
	Reason string `json:"motif"`
}

// ReservationService manages seat reservations
type ReservationService struct {
	store     storage.Store
	notifier  Notifier
	publisher events.Publisher
	now       func() time.Time
}

func NewReservationService(store storage.Store, notifier Notifier, publisher events.Publisher) *ReservationService {
	return &ReservationService{store: store, notifier: notifier, publisher: publisher, now: time.Now}
}

// Create takes the seats and records a PENDING reservation in one step
func (s *ReservationService) Create(ctx context.Context, c Caller, in CreateReservationInput) (*models.Reservation, error) {
	if in.TripID == "" || in.Seats == 0 || strings.TrimSpace(in.PickupAddress) == "" || strings.TrimSpace(in.DropoffAddress) == "" {
		return nil, invalid("required fields: trajetId, nbPlaces, adresseDepart, adresseArrivee")
	}
	if !c.IsClient() {
		return nil, forbidden("only clients can book trips")
	}

	trip, err := s.store.GetTrip(ctx, in.TripID)
	if err != nil {
		return nil, fromStore("create reservation", "trip not found", err)
	}

	reservation := &models.Reservation{
		ClientID:       c.ID,
		TripID:         trip.ID,
		Seats:          in.Seats,
		PickupAddress:  strings.TrimSpace(in.PickupAddress),
		DropoffAddress: strings.TrimSpace(in.DropoffAddress),
		Status:         models.ReservationPending,
		TotalAmount:    reservationTotal(trip.PricePerSeat, in.Seats),
	}
	if err := checkValid(reservation.Validate()); err != nil {
		return nil, err
	}
	if !trip.Bookable(in.Seats) {
		if trip.Status != models.TripAvailable {
			return nil, invalid("this trip is no longer available")
		}
		return nil, invalid(fmt.Sprintf("only %d seat(s) available", trip.SeatsAvailable))
	}

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		return nil, seatsFailure(err)
	}

	created, err := s.store.GetReservation(ctx, reservation.ID)
	if err != nil {
		return nil, internal("create reservation", err)
	}
	log.Printf("🎫 Reservation %s: %d seat(s) on trip %s", created.ID, created.Seats, created.TripID)

	if created.Trip != nil && created.Trip.Driver != nil {
		client := ""
		if created.Client != nil {
			client = created.Client.FullName()
		}
		notify(ctx, s.notifier, created.Trip.Driver.Phone, render("reservation_created", reservationMessage{
			Client:  client,
			Route:   created.Trip.Route(),
			StartAt: created.Trip.StartAt,
			Seats:   created.Seats,
			Amount:  created.TotalAmount,
		}))
	}
	publish(ctx, s.publisher, events.ReservationCreated, map[string]interface{}{
		"reservationId": created.ID,
		"tripId":        created.TripID,
		"clientId":      created.ClientID,
		"seats":         created.Seats,
		"amount":        created.TotalAmount,
	})

	return summarize(created), nil
}

// Cancel is the client withdrawing their own reservation
func (s *ReservationService) Cancel(ctx context.Context, c Caller, id string, in CancelReservationInput) (*models.Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fromStore("cancel reservation", "reservation not found", err)
	}
	if current.ClientID != c.ID {
		return nil, forbidden("not authorized")
	}
	if current.Status.Terminal() {
		if current.Status == models.ReservationCancelled {
			return nil, invalid("this reservation is already cancelled")
		}
		return nil, invalid("a completed reservation cannot be cancelled")
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = models.DefaultCancelReason
	}
	updated, err := s.transition(ctx, current, models.ReservationCancelled, reason)
	if err != nil {
		return nil, err
	}
	return summarize(updated), nil
}

// UpdateStatus lets the trip's driver or an admin move a reservation along
// the transition table
func (s *ReservationService) UpdateStatus(ctx context.Context, c Caller, id string, in ReservationStatusInput) (*models.Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fromStore("update reservation", "reservation not found", err)
	}
	if !c.canManageTrip(current.Trip) {
		return nil, forbidden("not authorized")
	}

	target, ok := models.ParseReservationTarget(in.Status)
	if !ok {
		return nil, invalid("invalid status. allowed: VALIDATED, CONFIRMED, CANCELLED, COMPLETED")
	}
	if !current.Status.CanTransition(target) {
		return nil, invalid(fmt.Sprintf("cannot move a reservation from %s to %s", current.Status, target))
	}

	reason := ""
	if target == models.ReservationCancelled {
		reason = strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = "cancelled by " + strings.ToLower(string(c.Role))
		}
	}
	updated, err := s.transition(ctx, current, target, reason)
	if err != nil {
		return nil, err
	}
	return summarize(updated), nil
}

func (s *ReservationService) ListMine(ctx context.Context, c Caller) ([]*models.Reservation, error) {
	list, err := s.store.ListReservations(ctx, storage.ReservationFilter{ClientID: c.ID})
	if err != nil {
		return nil, internal("list reservations", err)
	}
	for _, r := range list {
		summarize(r)
	}
	return list, nil
}

func (s *ReservationService) ListForTrip(ctx context.Context, c Caller, tripID string) ([]*models.Reservation, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fromStore("list trip reservations", "trip not found", err)
	}
	if !c.canManageTrip(trip) {
		return nil, forbidden("not authorized")
	}
	list, err := s.store.ListReservations(ctx, storage.ReservationFilter{TripID: tripID})
	if err != nil {
		return nil, internal("list trip reservations", err)
	}
	for _, r := range list {
		summarize(r)
	}
	return list, nil
}

// transition applies a checked status change. The store re-checks the
// current status so a concurrent change surfaces as a conflict.
func (s *ReservationService) transition(ctx context.Context, r *models.Reservation, to models.ReservationStatus, reason string) (*models.Reservation, error) {
	updated, err := s.store.UpdateReservationStatus(ctx, r.ID, r.Status, to, reason, s.now())
	if err != nil {
		return nil, fromStore("update reservation", "reservation not found", err)
	}
	if to == models.ReservationCancelled {
		log.Printf("↩️  Reservation %s cancelled, %d seat(s) released", r.ID, r.Seats)
		publish(ctx, s.publisher, events.ReservationCancelled, map[string]interface{}{
			"reservationId": updated.ID,
			"tripId":        updated.TripID,
			"seats":         updated.Seats,
			"reason":        reason,
		})
	}
	return updated, nil
}

// seatsFailure explains why the store refused the seats
func seatsFailure(err error) error {
	var seats *storage.SeatsError
	switch {
	case errors.As(err, &seats):
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("only %d seat(s) available", seats.Available), Err: err}
	case errors.Is(err, storage.ErrTripUnavailable):
		return &Error{Kind: KindValidation, Message: "this trip is no longer available", Err: err}
	}
	return fromStore("create reservation", "trip not found", err)
}

// summarize strips private contact data from the joined parties
func summarize(r *models.Reservation) *models.Reservation {
	if r.Trip != nil {
		r.Trip.Driver = r.Trip.Driver.Public()
	}
	r.Client = r.Client.Public()
	return r
}
