package services

import (
	"context"
	"errors"
	"log"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

const driverEvaluationsLimit = 20

type EvaluationInput struct {
	ReservationID string          `json:"reservationId"`
	Rating        int             `json:"note"`
	Comment       string          `json:"commentaire"`
	Criteria      models.Criteria `json:"criteres"`
}

// EvaluationResult carries the new evaluation and the driver's refreshed rating
type EvaluationResult struct {
	Evaluation *models.Evaluation  `json:"evaluation"`
	Driver     models.DriverRating `json:"chauffeur"`
}

type EvaluationService struct {
	store storage.Store
}

func NewEvaluationService(store storage.Store) *EvaluationService {
	return &EvaluationService{store: store}
}

func (s *EvaluationService) Create(ctx context.Context, c Caller, in EvaluationInput) (*EvaluationResult, error) {
	if !c.IsClient() {
		return nil, forbidden("only clients can rate drivers")
	}
	if in.ReservationID == "" {
		return nil, invalid("reservationId is required")
	}

	reservation, err := s.store.GetReservation(ctx, in.ReservationID)
	if err != nil {
		return nil, fromStore("create evaluation", "reservation not found", err)
	}
	if reservation.ClientID != c.ID {
		return nil, forbidden("not authorized")
	}
	if reservation.Status != models.ReservationCompleted {
		return nil, invalid("you can only rate completed trips")
	}
	if reservation.Trip == nil {
		return nil, notFound("trip not found")
	}

	evaluation := &models.Evaluation{
		ReservationID: reservation.ID,
		ClientID:      c.ID,
		DriverID:      reservation.Trip.DriverID,
		Rating:        in.Rating,
		Comment:       in.Comment,
		Criteria:      in.Criteria,
	}
	if err := checkValid(evaluation.Validate()); err != nil {
		return nil, err
	}

	if _, err := s.store.GetEvaluationByReservation(ctx, reservation.ID); err == nil {
		return nil, invalid("you have already rated this trip")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, internal("create evaluation", err)
	}

	rating, err := s.store.CreateEvaluation(ctx, evaluation)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, invalid("you have already rated this trip")
	}
	if err != nil {
		return nil, fromStore("create evaluation", "driver not found", err)
	}
	log.Printf("⭐ Driver %s rated %d, now %.1f over %d", evaluation.DriverID, evaluation.Rating, rating.Average, rating.Count)

	return &EvaluationResult{Evaluation: evaluation, Driver: rating}, nil
}

// ListForDriver returns the latest evaluations with the reviewer's public profile
func (s *EvaluationService) ListForDriver(ctx context.Context, driverID string) ([]*models.Evaluation, error) {
	list, err := s.store.ListEvaluations(ctx, driverID, driverEvaluationsLimit)
	if err != nil {
		return nil, internal("list evaluations", err)
	}
	for _, e := range list {
		e.Client = e.Client.Public()
	}
	return list, nil
}
