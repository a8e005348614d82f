package storage

import (
	"context"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/models"
)

// Store defines the interface for storage operations. Methods that touch more
// than one row (seat accounting, payment confirmation, trip completion,
// rating aggregation) are atomic in every implementation.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error)
	CountUsers(ctx context.Context, f UserFilter) (int64, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	// Trip operations
	CreateTrip(ctx context.Context, t *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	ListTrips(ctx context.Context, f TripFilter) ([]*models.Trip, error)
	CountTrips(ctx context.Context, f TripFilter) (int64, error)
	StartTrip(ctx context.Context, id string) (*models.Trip, error)
	AddPosition(ctx context.Context, tripID string, p models.Position) (*models.Trip, error)
	// CompleteTrip ends an IN_PROGRESS trip and completes its CONFIRMED
	// reservations, returning how many were completed.
	CompleteTrip(ctx context.Context, id string, at time.Time) (*models.Trip, int64, error)
	CancelTrip(ctx context.Context, id string) (*models.Trip, error)
	DeleteTrip(ctx context.Context, id string) error

	// Reservation operations
	// CreateReservation takes the seats from the trip and inserts the
	// reservation, or fails with ErrTripUnavailable / *SeatsError.
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]*models.Reservation, error)
	CountReservations(ctx context.Context, f ReservationFilter) (int64, error)
	// UpdateReservationStatus moves from -> to only if the row is still in
	// from. Cancelling gives the seats back to the trip.
	UpdateReservationStatus(ctx context.Context, id string, from, to models.ReservationStatus, reason string, at time.Time) (*models.Reservation, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error

	// Payment operations
	// CreatePayment inserts the payment and confirms its PENDING reservation.
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByReference(ctx context.Context, ref string) (*models.Payment, error)
	GetPaymentByReservation(ctx context.Context, reservationID string) (*models.Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]*models.Payment, error)
	SumPayments(ctx context.Context, f PaymentFilter) (float64, error)

	// Evaluation operations
	// CreateEvaluation inserts the evaluation and refreshes the driver's
	// aggregate rating.
	CreateEvaluation(ctx context.Context, e *models.Evaluation) (models.DriverRating, error)
	GetEvaluationByReservation(ctx context.Context, reservationID string) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, driverID string, limit int) ([]*models.Evaluation, error)

	// Report operations
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, f ReportFilter) ([]*models.Report, error)
	DecideReport(ctx context.Context, id string, status models.ReportStatus, handlerID, response string, at time.Time) (*models.Report, error)

	Ping(ctx context.Context) error
}

type UserFilter struct {
	Role             models.Role
	ValidationStatus models.ValidationStatus
}

// Upper bounds of time windows are inclusive.
type TripFilter struct {
	DriverID  string
	Statuses  []models.TripStatus
	MinSeats  int
	StartFrom *time.Time
	StartTo   *time.Time
	Limit     int
	// Latest orders by start time descending instead of ascending.
	Latest bool
}

type ReservationFilter struct {
	ClientID      string
	TripID        string
	Statuses      []models.ReservationStatus
	CreatedUntil  *time.Time
	UpdatedFrom   *time.Time
	UpdatedTo     *time.Time
	TripStartFrom *time.Time
	TripStartTo   *time.Time
	// ReminderPending keeps only reservations no reminder was sent for.
	ReminderPending bool
	Limit           int
}

type PaymentFilter struct {
	Statuses    []models.PaymentStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ReportFilter struct {
	Type       models.ReportType
	Status     models.ReportStatus
	ReporterID string
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DatabaseStore)(nil)
)
