package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
	"github.com/yoonbi/yoonbi-backend/internal/utils"
)

const driverTripsLimit = 20

var searchableStatuses = []models.TripStatus{models.TripAvailable, models.TripInProgress}

// PublishTripInput is the payload drivers send to offer a trip.
// nbPlacesTotal is accepted as an alias of nbPlacesDisponibles.
type PublishTripInput struct {
	Origin       string     `json:"depart"`
	Destination  string     `json:"arrivee"`
	StartAt      *time.Time `json:"dateDebut"`
	EndAt        *time.Time `json:"dateFin"`
	PricePerSeat *float64   `json:"prixParPlace"`
	Seats        int        `json:"nbPlacesDisponibles"`
	SeatsTotal   int        `json:"nbPlacesTotal"`
}

// TripQuery filters the public trip search. From/To bound the start time,
// both inclusive.
type TripQuery struct {
	Origin      string
	Destination string
	From        *time.Time
	To          *time.Time
	Seats       int
}

// PositionInput is one GPS sample. Pointers detect missing fields.
type PositionInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// TripCompletion is the result of ending a trip
type TripCompletion struct {
	Trip                  *models.Trip `json:"trajet"`
	CompletedReservations int64        `json:"reservationsTerminees"`
}

// TripService manages the trip registry
type TripService struct {
	store     storage.Store
	publisher events.Publisher
	now       func() time.Time
}

func NewTripService(store storage.Store, publisher events.Publisher) *TripService {
	return &TripService{store: store, publisher: publisher, now: time.Now}
}

func (s *TripService) Publish(ctx context.Context, c Caller, in PublishTripInput) (*models.Trip, error) {
	if !c.IsDriver() {
		return nil, forbidden("only drivers can publish trips")
	}
	seats := in.Seats
	if seats == 0 {
		seats = in.SeatsTotal
	}
	if strings.TrimSpace(in.Origin) == "" || strings.TrimSpace(in.Destination) == "" ||
		in.StartAt == nil || in.PricePerSeat == nil || seats == 0 {
		return nil, invalid("required fields: depart, arrivee, dateDebut, prixParPlace, nbPlacesDisponibles")
	}

	driver, err := s.store.GetUser(ctx, c.ID)
	if err != nil {
		return nil, fromStore("publish trip", "user not found", err)
	}
	if !driver.CanPublish() {
		return nil, forbidden("your account must be validated by an administrator")
	}

	trip := &models.Trip{
		DriverID:       driver.ID,
		Origin:         strings.TrimSpace(in.Origin),
		Destination:    strings.TrimSpace(in.Destination),
		StartAt:        *in.StartAt,
		EndAt:          in.EndAt,
		PricePerSeat:   *in.PricePerSeat,
		SeatsAvailable: seats,
		SeatsTotal:     seats,
		Status:         models.TripAvailable,
	}
	if err := checkValid(trip.Validate()); err != nil {
		return nil, err
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, fromStore("publish trip", "driver not found", err)
	}
	log.Printf("🚗 Trip %s published: %s", trip.ID, trip.Route())

	trip.Driver = driver.Public()
	return trip, nil
}

// Search returns trips open to booking or already under way, earliest first
func (s *TripService) Search(ctx context.Context, q TripQuery) ([]*models.Trip, error) {
	minSeats := q.Seats
	if minSeats < 1 {
		minSeats = 1
	}
	candidates, err := s.store.ListTrips(ctx, storage.TripFilter{
		Statuses:  searchableStatuses,
		MinSeats:  minSeats,
		StartFrom: q.From,
		StartTo:   q.To,
	})
	if err != nil {
		return nil, internal("search trips", err)
	}

	trips := make([]*models.Trip, 0, len(candidates))
	for _, t := range candidates {
		if !utils.MatchesPlace(t.Origin, q.Origin) || !utils.MatchesPlace(t.Destination, q.Destination) {
			continue
		}
		t.Driver = t.Driver.Public()
		trips = append(trips, t)
	}
	return trips, nil
}

func (s *TripService) Get(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fromStore("get trip", "trip not found", err)
	}
	return trip, nil
}

// ListForDriver returns the driver's latest trips
func (s *TripService) ListForDriver(ctx context.Context, driverID string) ([]*models.Trip, error) {
	trips, err := s.store.ListTrips(ctx, storage.TripFilter{
		DriverID: driverID,
		Limit:    driverTripsLimit,
		Latest:   true,
	})
	if err != nil {
		return nil, internal("list driver trips", err)
	}
	for _, t := range trips {
		t.Driver = t.Driver.Public()
	}
	return trips, nil
}

func (s *TripService) Start(ctx context.Context, c Caller, id string) (*models.Trip, error) {
	if _, err := s.ownedTrip(ctx, c, id, models.TripInProgress); err != nil {
		return nil, err
	}
	trip, err := s.store.StartTrip(ctx, id)
	if errors.Is(err, storage.ErrConflict) {
		return nil, invalid("this trip has already started or is finished")
	}
	if err != nil {
		return nil, fromStore("start trip", "trip not found", err)
	}
	log.Printf("🚦 Trip %s started", id)
	return trip, nil
}

func (s *TripService) AddPosition(ctx context.Context, c Caller, id string, in PositionInput) (*models.Trip, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return nil, invalid("required fields: latitude, longitude")
	}
	pos := models.Position{
		Latitude:   *in.Latitude,
		Longitude:  *in.Longitude,
		RecordedAt: s.now(),
	}
	if err := checkValid(pos.Validate()); err != nil {
		return nil, err
	}

	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fromStore("add position", "trip not found", err)
	}
	if !c.ownsTrip(trip) {
		return nil, forbidden("not authorized")
	}
	if trip.Status != models.TripInProgress {
		return nil, invalid("the trip must be in progress")
	}

	trip, err = s.store.AddPosition(ctx, id, pos)
	if errors.Is(err, storage.ErrConflict) {
		return nil, invalid("the trip must be in progress")
	}
	if err != nil {
		return nil, fromStore("add position", "trip not found", err)
	}
	return trip, nil
}

// End completes the trip and every confirmed reservation on it
func (s *TripService) End(ctx context.Context, c Caller, id string) (*TripCompletion, error) {
	if _, err := s.ownedTrip(ctx, c, id, models.TripCompleted); err != nil {
		return nil, err
	}
	trip, completed, err := s.store.CompleteTrip(ctx, id, s.now())
	if errors.Is(err, storage.ErrConflict) {
		return nil, invalid("the trip must be in progress")
	}
	if err != nil {
		return nil, fromStore("end trip", "trip not found", err)
	}
	log.Printf("🏁 Trip %s completed, %d reservation(s) closed", id, completed)

	publish(ctx, s.publisher, events.TripCompleted, map[string]interface{}{
		"tripId":                trip.ID,
		"driverId":              trip.DriverID,
		"completedReservations": completed,
		"distanceKm":            trip.Distance,
	})
	return &TripCompletion{Trip: trip, CompletedReservations: completed}, nil
}

// Cancel withdraws a trip nobody has booked yet
func (s *TripService) Cancel(ctx context.Context, c Caller, id string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fromStore("cancel trip", "trip not found", err)
	}
	if !c.canManageTrip(trip) {
		return nil, forbidden("not authorized")
	}
	if !trip.Status.CanTransition(models.TripCancelled) {
		return nil, invalid("only an available trip can be cancelled")
	}
	trip, err = s.store.CancelTrip(ctx, id)
	if errors.Is(err, storage.ErrConflict) {
		return nil, invalid("a trip with reservations cannot be cancelled")
	}
	if err != nil {
		return nil, fromStore("cancel trip", "trip not found", err)
	}
	return trip, nil
}

func (s *TripService) Delete(ctx context.Context, c Caller, id string) error {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return fromStore("delete trip", "trip not found", err)
	}
	if !c.canManageTrip(trip) {
		return forbidden("not authorized")
	}
	if trip.Status != models.TripAvailable {
		return invalid("only an available trip can be deleted")
	}
	err = s.store.DeleteTrip(ctx, id)
	if errors.Is(err, storage.ErrConflict) {
		return invalid("cannot delete a trip that has reservations or reports")
	}
	if err != nil {
		return fromStore("delete trip", "trip not found", err)
	}
	log.Printf("🗑️  Trip %s deleted", id)
	return nil
}

// ownedTrip loads a trip the caller drives and checks the status move.
func (s *TripService) ownedTrip(ctx context.Context, c Caller, id string, to models.TripStatus) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fromStore("load trip", "trip not found", err)
	}
	if !c.ownsTrip(trip) {
		return nil, forbidden("not authorized")
	}
	if !trip.Status.CanTransition(to) {
		if to == models.TripInProgress {
			return nil, invalid("this trip has already started or is finished")
		}
		return nil, invalid("the trip must be in progress")
	}
	return trip, nil
}

// publish is best-effort: the broker being down never fails a request.
func publish(ctx context.Context, p events.Publisher, eventType string, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		log.Printf("⚠️  Failed to publish %s: %v", eventType, err)
	}
}
