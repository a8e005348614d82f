package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

type ValidationDecisionInput struct {
	Decision string `json:"decision"`
}

// AdminUserInput is what an admin may change on any account
type AdminUserInput struct {
	ProfileInput
	Active *bool `json:"actif"`
}

// AdminService backs the admin console
type AdminService struct {
	store storage.Store
}

func NewAdminService(store storage.Store) *AdminService {
	return &AdminService{store: store}
}

// Statistics runs every count concurrently
func (s *AdminService) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{}
	g, ctx := errgroup.WithContext(ctx)

	countUsers := func(dst *int64, f storage.UserFilter) {
		g.Go(func() error {
			n, err := s.store.CountUsers(ctx, f)
			*dst = n
			return err
		})
	}
	countTrips := func(dst *int64, statuses ...models.TripStatus) {
		g.Go(func() error {
			n, err := s.store.CountTrips(ctx, storage.TripFilter{Statuses: statuses})
			*dst = n
			return err
		})
	}
	countReservations := func(dst *int64, statuses ...models.ReservationStatus) {
		g.Go(func() error {
			n, err := s.store.CountReservations(ctx, storage.ReservationFilter{Statuses: statuses})
			*dst = n
			return err
		})
	}

	countUsers(&stats.Users.Total, storage.UserFilter{})
	countUsers(&stats.Users.Clients, storage.UserFilter{Role: models.RoleClient})
	countUsers(&stats.Users.Drivers, storage.UserFilter{Role: models.RoleDriver})
	countUsers(&stats.Users.PendingDrivers, storage.UserFilter{Role: models.RoleDriver, ValidationStatus: models.ValidationPending})

	countTrips(&stats.Trips.Total)
	countTrips(&stats.Trips.Available, models.TripAvailable)
	countTrips(&stats.Trips.InProgress, models.TripInProgress)
	countTrips(&stats.Trips.Completed, models.TripCompleted)

	countReservations(&stats.Reservations.Total)
	countReservations(&stats.Reservations.Confirmed, models.ReservationConfirmed)
	countReservations(&stats.Reservations.Cancelled, models.ReservationCancelled)
	countReservations(&stats.Reservations.Completed, models.ReservationCompleted)

	g.Go(func() error {
		total, err := s.store.SumPayments(ctx, storage.PaymentFilter{Statuses: []models.PaymentStatus{models.PaymentSuccess}})
		stats.Revenue = total
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, internal("statistics", err)
	}
	return stats, nil
}

// PendingDrivers lists drivers awaiting validation, newest first
func (s *AdminService) PendingDrivers(ctx context.Context) ([]*models.User, error) {
	drivers, err := s.store.ListUsers(ctx, storage.UserFilter{
		Role:             models.RoleDriver,
		ValidationStatus: models.ValidationPending,
	})
	if err != nil {
		return nil, internal("pending drivers", err)
	}
	return drivers, nil
}

func (s *AdminService) ValidateDriver(ctx context.Context, id string, in ValidationDecisionInput) (*models.User, error) {
	decision, ok := models.ParseValidationDecision(in.Decision)
	if !ok {
		return nil, invalid("field 'decision' is required and must be APPROVED or REJECTED")
	}
	driver, err := s.loadDriver(ctx, id)
	if err != nil {
		return nil, err
	}
	if !driver.ValidationStatus.CanTransition(decision) {
		return nil, invalid(fmt.Sprintf("driver is already %s", driver.ValidationStatus))
	}
	driver.ValidationStatus = decision
	if err := s.store.UpdateUser(ctx, driver); err != nil {
		return nil, fromStore("validate driver", "driver not found", err)
	}
	log.Printf("🪪 Driver %s %s", driver.ID, decision)
	return driver, nil
}

// SetDriverActive blocks or unblocks a driver account
func (s *AdminService) SetDriverActive(ctx context.Context, id string, active bool) (*models.User, error) {
	driver, err := s.loadDriver(ctx, id)
	if err != nil {
		return nil, err
	}
	driver.Active = active
	if err := s.store.UpdateUser(ctx, driver); err != nil {
		return nil, fromStore("block driver", "driver not found", err)
	}
	if active {
		log.Printf("🔓 Driver %s unblocked", id)
	} else {
		log.Printf("🔒 Driver %s blocked", id)
	}
	return driver, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id string, in AdminUserInput) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fromStore("update user", "user not found", err)
	}
	applyProfile(user, in.ProfileInput)
	if in.Active != nil {
		user.Active = *in.Active
	}
	if err := checkValid(user.Validate()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errPhoneTaken
		}
		return nil, fromStore("update user", "user not found", err)
	}
	return user, nil
}

func (s *AdminService) loadDriver(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fromStore("load driver", "driver not found", err)
	}
	if user.Role != models.RoleDriver {
		return nil, invalid("this user is not a driver")
	}
	return user, nil
}
