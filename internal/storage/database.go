package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yoonbi/yoonbi-backend/internal/models"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgFKViolation     = "23503"
)

// DatabaseStore implements Store on PostgreSQL through GORM
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgCheckViolation, pgFKViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// User operations

func (s *DatabaseStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *DatabaseStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *DatabaseStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.conn(ctx).First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *DatabaseStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrNotFound
	}
	var u models.User
	if err := s.conn(ctx).First(&u, "phone = ?", phone).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *DatabaseStore) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	var u models.User
	if err := s.conn(ctx).First(&u, "reset_token_hash = ?", tokenHash).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *DatabaseStore) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Save(u).Error)
}

func userQuery(db *gorm.DB, f UserFilter) *gorm.DB {
	q := db.Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.ValidationStatus != "" {
		q = q.Where("validation_status = ?", f.ValidationStatus)
	}
	return q
}

func (s *DatabaseStore) ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	var users []*models.User
	err := userQuery(s.conn(ctx), f).Order("created_at DESC").Find(&users).Error
	return users, translate(err)
}

func (s *DatabaseStore) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	var n int64
	err := userQuery(s.conn(ctx), f).Count(&n).Error
	return n, translate(err)
}

func (s *DatabaseStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.User{}).
		Where("reset_token_hash <> '' AND reset_token_expiry < ?", now).
		Updates(map[string]interface{}{"reset_token_hash": "", "reset_token_expiry": nil})
	return res.RowsAffected, translate(res.Error)
}

// Trip operations

func (s *DatabaseStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(t).Error)
}

func (s *DatabaseStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var t models.Trip
	err := s.conn(ctx).
		Preload("Driver").
		Preload("Positions", func(db *gorm.DB) *gorm.DB {
			return db.Order("recorded_at ASC, id ASC")
		}).
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func tripQuery(db *gorm.DB, f TripFilter) *gorm.DB {
	q := db.Model(&models.Trip{})
	if f.DriverID != "" {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.MinSeats > 0 {
		q = q.Where("seats_available >= ?", f.MinSeats)
	}
	if f.StartFrom != nil {
		q = q.Where("start_at >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		q = q.Where("start_at <= ?", *f.StartTo)
	}
	return q
}

func (s *DatabaseStore) ListTrips(ctx context.Context, f TripFilter) ([]*models.Trip, error) {
	q := tripQuery(s.conn(ctx), f).Preload("Driver")
	if f.Latest {
		q = q.Order("start_at DESC")
	} else {
		q = q.Order("start_at ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var trips []*models.Trip
	return trips, translate(q.Find(&trips).Error)
}

func (s *DatabaseStore) CountTrips(ctx context.Context, f TripFilter) (int64, error) {
	var n int64
	err := tripQuery(s.conn(ctx), f).Count(&n).Error
	return n, translate(err)
}

// missingOrConflict explains why a conditional write on a trip matched no row.
func missingOrConflict(tx *gorm.DB, model interface{}, id string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *DatabaseStore) StartTrip(ctx context.Context, id string) (*models.Trip, error) {
	res := s.conn(ctx).Model(&models.Trip{}).
		Where("id = ? AND status = ?", id, models.TripAvailable).
		Update("status", models.TripInProgress)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, missingOrConflict(s.conn(ctx), &models.Trip{}, id)
	}
	return s.GetTrip(ctx, id)
}

func (s *DatabaseStore) AddPosition(ctx context.Context, tripID string, p models.Position) (*models.Trip, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var trip models.Trip
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			First(&trip, "id = ?", tripID).Error
		if err != nil {
			return translate(err)
		}
		if trip.Status != models.TripInProgress {
			return ErrConflict
		}

		var step float64
		var last models.Position
		err = tx.Where("trip_id = ?", tripID).Order("recorded_at DESC, id DESC").Take(&last).Error
		switch {
		case err == nil:
			step = last.DistanceKm(p)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		p.ID = 0
		p.TripID = tripID
		if err := tx.Create(&p).Error; err != nil {
			return translate(err)
		}
		return tx.Model(&models.Trip{}).Where("id = ?", tripID).
			Update("distance", gorm.Expr("distance + ?", step)).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return s.GetTrip(ctx, tripID)
}

func (s *DatabaseStore) CompleteTrip(ctx context.Context, id string, at time.Time) (*models.Trip, int64, error) {
	var completed int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Trip{}).
			Where("id = ? AND status = ?", id, models.TripInProgress).
			Updates(map[string]interface{}{"status": models.TripCompleted, "end_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, &models.Trip{}, id)
		}

		res = tx.Model(&models.Reservation{}).
			Where("trip_id = ? AND status = ?", id, models.ReservationConfirmed).
			Update("status", models.ReservationCompleted)
		completed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, 0, translate(err)
	}
	trip, err := s.GetTrip(ctx, id)
	return trip, completed, err
}

const (
	noReservations = "NOT EXISTS (SELECT 1 FROM reservations r WHERE r.trip_id = trips.id)"
	noReports      = "NOT EXISTS (SELECT 1 FROM reports p WHERE p.trip_id = trips.id)"
)

func (s *DatabaseStore) CancelTrip(ctx context.Context, id string) (*models.Trip, error) {
	res := s.conn(ctx).Model(&models.Trip{}).
		Where("id = ? AND status = ?", id, models.TripAvailable).
		Where(noReservations).
		Update("status", models.TripCancelled)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, missingOrConflict(s.conn(ctx), &models.Trip{}, id)
	}
	return s.GetTrip(ctx, id)
}

func (s *DatabaseStore) DeleteTrip(ctx context.Context, id string) error {
	res := s.conn(ctx).
		Where("id = ? AND status = ?", id, models.TripAvailable).
		Where(noReservations).
		Where(noReports).
		Delete(&models.Trip{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(s.conn(ctx), &models.Trip{}, id)
	}
	return nil
}

// Reservation operations

func (s *DatabaseStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Trip{}).
			Where("id = ? AND status = ? AND seats_available >= ?", r.TripID, models.TripAvailable, r.Seats).
			Update("seats_available", gorm.Expr("seats_available - ?", r.Seats))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var trip models.Trip
			if err := tx.Select("id", "status", "seats_available").First(&trip, "id = ?", r.TripID).Error; err != nil {
				return err
			}
			if trip.Status != models.TripAvailable {
				return ErrTripUnavailable
			}
			return &SeatsError{Available: trip.SeatsAvailable}
		}
		return tx.Omit(clause.Associations).Create(r).Error
	}))
}

func (s *DatabaseStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.conn(ctx).Preload("Trip.Driver").Preload("Client").First(&r, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func reservationQuery(db *gorm.DB, f ReservationFilter) *gorm.DB {
	q := db.Model(&models.Reservation{})
	if f.TripStartFrom != nil || f.TripStartTo != nil {
		q = q.Joins("JOIN trips ON trips.id = reservations.trip_id")
		if f.TripStartFrom != nil {
			q = q.Where("trips.start_at >= ?", *f.TripStartFrom)
		}
		if f.TripStartTo != nil {
			q = q.Where("trips.start_at <= ?", *f.TripStartTo)
		}
	}
	if f.ClientID != "" {
		q = q.Where("reservations.client_id = ?", f.ClientID)
	}
	if f.TripID != "" {
		q = q.Where("reservations.trip_id = ?", f.TripID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("reservations.status IN ?", f.Statuses)
	}
	if f.CreatedUntil != nil {
		q = q.Where("reservations.created_at <= ?", *f.CreatedUntil)
	}
	if f.UpdatedFrom != nil {
		q = q.Where("reservations.updated_at >= ?", *f.UpdatedFrom)
	}
	if f.UpdatedTo != nil {
		q = q.Where("reservations.updated_at <= ?", *f.UpdatedTo)
	}
	if f.ReminderPending {
		q = q.Where("reservations.reminder_sent_at IS NULL")
	}
	return q
}

func (s *DatabaseStore) ListReservations(ctx context.Context, f ReservationFilter) ([]*models.Reservation, error) {
	q := reservationQuery(s.conn(ctx), f).
		Preload("Trip.Driver").
		Preload("Client").
		Order("reservations.created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []*models.Reservation
	return out, translate(q.Find(&out).Error)
}

func (s *DatabaseStore) CountReservations(ctx context.Context, f ReservationFilter) (int64, error) {
	var n int64
	err := reservationQuery(s.conn(ctx), f).Count(&n).Error
	return n, translate(err)
}

func (s *DatabaseStore) UpdateReservationStatus(ctx context.Context, id string, from, to models.ReservationStatus, reason string, at time.Time) (*models.Reservation, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Reservation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "trip_id", "seats", "status").
			First(&cur, "id = ?", id).Error
		if err != nil {
			return err
		}
		if cur.Status != from {
			return ErrConflict
		}

		updates := map[string]interface{}{"status": to}
		if to == models.ReservationCancelled {
			updates["cancelled_at"] = at
			updates["cancel_reason"] = reason
		}
		res := tx.Model(&models.Reservation{}).Where("id = ? AND status = ?", id, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if to == models.ReservationCancelled {
			return tx.Model(&models.Trip{}).Where("id = ?", cur.TripID).
				Update("seats_available", gorm.Expr("LEAST(seats_available + ?, seats_total)", cur.Seats)).Error
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return s.GetReservation(ctx, id)
}

func (s *DatabaseStore) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	res := s.conn(ctx).Model(&models.Reservation{}).Where("id = ?", id).Update("reminder_sent_at", at)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Payment operations

func (s *DatabaseStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", p.ReservationID, models.ReservationPending).
			Update("status", models.ReservationConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	}))
}

func paymentPreloads(db *gorm.DB) *gorm.DB {
	return db.Preload("Reservation.Trip.Driver").Preload("Reservation.Client")
}

func (s *DatabaseStore) GetPaymentByReference(ctx context.Context, ref string) (*models.Payment, error) {
	var p models.Payment
	if err := paymentPreloads(s.conn(ctx)).First(&p, "reference = ?", ref).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *DatabaseStore) GetPaymentByReservation(ctx context.Context, reservationID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.conn(ctx).First(&p, "reservation_id = ?", reservationID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func paymentQuery(db *gorm.DB, f PaymentFilter) *gorm.DB {
	q := db.Model(&models.Payment{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}

func (s *DatabaseStore) ListPayments(ctx context.Context, f PaymentFilter) ([]*models.Payment, error) {
	var out []*models.Payment
	err := paymentPreloads(paymentQuery(s.conn(ctx), f)).Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

func (s *DatabaseStore) SumPayments(ctx context.Context, f PaymentFilter) (float64, error) {
	var total float64
	err := paymentQuery(s.conn(ctx), f).Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, translate(err)
}

// Evaluation operations

func (s *DatabaseStore) CreateEvaluation(ctx context.Context, e *models.Evaluation) (models.DriverRating, error) {
	var rating models.DriverRating
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise evaluations of the same driver so the aggregate sees every row.
		var driver models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&driver, "id = ?", e.DriverID).Error
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
			return err
		}

		var agg struct {
			Average float64
			Count   int
		}
		err = tx.Model(&models.Evaluation{}).
			Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
			Where("driver_id = ?", e.DriverID).
			Scan(&agg).Error
		if err != nil {
			return err
		}

		rating = models.DriverRating{Average: models.RoundRating(agg.Average), Count: agg.Count}
		return tx.Model(&models.User{}).Where("id = ?", e.DriverID).
			Updates(map[string]interface{}{"rating": rating.Average, "completed_trips": rating.Count}).Error
	})
	return rating, translate(err)
}

func (s *DatabaseStore) GetEvaluationByReservation(ctx context.Context, reservationID string) (*models.Evaluation, error) {
	var e models.Evaluation
	if err := s.conn(ctx).First(&e, "reservation_id = ?", reservationID).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (s *DatabaseStore) ListEvaluations(ctx context.Context, driverID string, limit int) ([]*models.Evaluation, error) {
	q := s.conn(ctx).Preload("Client").Where("driver_id = ?", driverID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*models.Evaluation
	return out, translate(q.Find(&out).Error)
}

// Report operations

func reportPreloads(db *gorm.DB) *gorm.DB {
	return db.Preload("Trip.Driver").
		Preload("Reservation").
		Preload("Reporter").
		Preload("Client").
		Preload("Driver")
}

func (s *DatabaseStore) CreateReport(ctx context.Context, r *models.Report) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(r).Error)
}

func (s *DatabaseStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := reportPreloads(s.conn(ctx)).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *DatabaseStore) ListReports(ctx context.Context, f ReportFilter) ([]*models.Report, error) {
	q := reportPreloads(s.conn(ctx)).Model(&models.Report{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ReporterID != "" {
		q = q.Where("reporter_id = ?", f.ReporterID)
	}
	var out []*models.Report
	return out, translate(q.Order("created_at DESC").Find(&out).Error)
}

func (s *DatabaseStore) DecideReport(ctx context.Context, id string, status models.ReportStatus, handlerID, response string, at time.Time) (*models.Report, error) {
	updates := map[string]interface{}{
		"status":        status,
		"handled_by_id": handlerID,
		"handled_at":    at,
	}
	if response != "" {
		updates["support_response"] = response
	}
	res := s.conn(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetReport(ctx, id)
}
