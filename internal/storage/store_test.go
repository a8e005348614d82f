package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/models"
)

// storeSuite runs the same behavioural checks against any Store.
func storeSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("reservation seat accounting", func(t *testing.T) { testSeatAccounting(t, newStore(t)) })
	t.Run("concurrent reservations never oversell", func(t *testing.T) { testNoOversell(t, newStore(t)) })
	t.Run("payment confirms once", func(t *testing.T) { testPaymentOnce(t, newStore(t)) })
	t.Run("complete trip", func(t *testing.T) { testCompleteTrip(t, newStore(t)) })
	t.Run("delete and cancel guards", func(t *testing.T) { testDeleteGuards(t, newStore(t)) })
	t.Run("positions accumulate distance", func(t *testing.T) { testPositions(t, newStore(t)) })
	t.Run("evaluation aggregate", func(t *testing.T) { testEvaluationAggregate(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

var (
	userSeq int64
	// runTag keeps fixture phones unique across runs on a reused database
	runTag = time.Now().UnixNano() % 1000000
)

func mustUser(t *testing.T, s Store, role models.Role) *models.User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	expiry := time.Now().AddDate(1, 0, 0)
	u := &models.User{
		FirstName:    "User",
		LastName:     fmt.Sprintf("N%d", n),
		Email:        fmt.Sprintf("user%d-%d@example.com", n, time.Now().UnixNano()),
		Phone:        fmt.Sprintf("+221%06d%05d", runTag, n),
		Role:         role,
		Active:       true,
		Available:    true,
		PasswordHash: "x",
	}
	if role == models.RoleDriver {
		u.LicenseNumber = "LIC"
		u.LicenseExpiry = &expiry
		u.ValidationStatus = models.ValidationApproved
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustTrip(t *testing.T, s Store, driverID string, seats int) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		DriverID:       driverID,
		Origin:         "Dakar",
		Destination:    "Thiès",
		StartAt:        time.Now().Add(24 * time.Hour),
		PricePerSeat:   2500,
		SeatsTotal:     seats,
		SeatsAvailable: seats,
		Status:         models.TripAvailable,
	}
	if err := s.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return trip
}

func reserve(s Store, clientID, tripID string, seats int) (*models.Reservation, error) {
	r := &models.Reservation{
		ClientID:       clientID,
		TripID:         tripID,
		Seats:          seats,
		PickupAddress:  "Plateau",
		DropoffAddress: "Gare",
		Status:         models.ReservationPending,
		TotalAmount:    2500 * float64(seats),
	}
	return r, s.CreateReservation(context.Background(), r)
}

func seatsLeft(t *testing.T, s Store, tripID string) int {
	t.Helper()
	trip, err := s.GetTrip(context.Background(), tripID)
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	return trip.SeatsAvailable
}

func testSeatAccounting(t *testing.T, s Store) {
	ctx := context.Background()
	driver := mustUser(t, s, models.RoleDriver)
	a := mustUser(t, s, models.RoleClient)
	b := mustUser(t, s, models.RoleClient)
	trip := mustTrip(t, s, driver.ID, 4)

	first, err := reserve(s, a.ID, trip.ID, 2)
	if err != nil {
		t.Fatalf("first reservation: %v", err)
	}
	if got := seatsLeft(t, s, trip.ID); got != 2 {
		t.Fatalf("expected 2 seats left, got %d", got)
	}

	_, err = reserve(s, b.ID, trip.ID, 3)
	var seatsErr *SeatsError
	if !errors.As(err, &seatsErr) || !errors.Is(err, ErrInsufficientSeats) {
		t.Fatalf("expected insufficient seats, got %v", err)
	}
	if seatsErr.Available != 2 {
		t.Fatalf("expected 2 available in error, got %d", seatsErr.Available)
	}
	if got := seatsLeft(t, s, trip.ID); got != 2 {
		t.Fatalf("refused reservation must not change the trip, got %d", got)
	}

	cancelled, err := s.UpdateReservationStatus(ctx, first.ID, models.ReservationPending, models.ReservationCancelled, models.DefaultCancelReason, time.Now())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.ReservationCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled reservation: %+v", cancelled)
	}
	if got := seatsLeft(t, s, trip.ID); got != 4 {
		t.Fatalf("cancellation must restore seats, got %d", got)
	}

	if _, err := s.UpdateReservationStatus(ctx, first.ID, models.ReservationPending, models.ReservationCancelled, "", time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("second cancel must conflict, got %v", err)
	}
	if got := seatsLeft(t, s, trip.ID); got != 4 {
		t.Fatalf("seats must stay capped at total, got %d", got)
	}

	if _, err := s.StartTrip(ctx, trip.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := reserve(s, b.ID, trip.ID, 1); !errors.Is(err, ErrTripUnavailable) {
		t.Fatalf("expected unavailable trip, got %v", err)
	}
}

func testNoOversell(t *testing.T, s Store) {
	driver := mustUser(t, s, models.RoleDriver)
	trip := mustTrip(t, s, driver.ID, 5)

	clients := make([]*models.User, 12)
	for i := range clients {
		clients[i] = mustUser(t, s, models.RoleClient)
	}

	var wg sync.WaitGroup
	var ok int64
	for _, c := range clients {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := reserve(s, id, trip.ID, 1); err == nil {
				atomic.AddInt64(&ok, 1)
			}
		}(c.ID)
	}
	wg.Wait()

	if ok != 5 {
		t.Fatalf("expected exactly 5 successful reservations, got %d", ok)
	}
	if got := seatsLeft(t, s, trip.ID); got != 0 {
		t.Fatalf("expected 0 seats left, got %d", got)
	}
}

func testPaymentOnce(t *testing.T, s Store) {
	ctx := context.Background()
	driver := mustUser(t, s, models.RoleDriver)
	client := mustUser(t, s, models.RoleClient)
	trip := mustTrip(t, s, driver.ID, 3)
	r, err := reserve(s, client.ID, trip.ID, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	pay := func(ref string) error {
		return s.CreatePayment(ctx, &models.Payment{
			ReservationID: r.ID,
			Amount:        r.TotalAmount,
			Method:        models.MethodCash,
			Reference:     ref,
			Status:        models.PaymentSuccess,
		})
	}
	if err := pay("PAY-1-AAAAAAAAA"); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if err := pay("PAY-2-BBBBBBBBB"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate payment to be refused, got %v", err)
	}

	got, err := s.GetReservation(ctx, r.ID)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if got.Status != models.ReservationConfirmed {
		t.Fatalf("payment must confirm reservation, got %s", got.Status)
	}

	p, err := s.GetPaymentByReference(ctx, "PAY-1-AAAAAAAAA")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Reservation == nil || p.Reservation.Trip == nil || p.Reservation.Client == nil {
		t.Fatal("payment lookup must join reservation, trip and client")
	}

	total, err := s.SumPayments(ctx, PaymentFilter{Statuses: []models.PaymentStatus{models.PaymentSuccess}})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total < 2500 {
		t.Fatalf("expected revenue to include the payment, got %.2f", total)
	}
}

func testCompleteTrip(t *testing.T, s Store) {
	ctx := context.Background()
	driver := mustUser(t, s, models.RoleDriver)
	trip := mustTrip(t, s, driver.ID, 4)

	confirmed, _ := reserve(s, mustUser(t, s, models.RoleClient).ID, trip.ID, 1)
	pending, _ := reserve(s, mustUser(t, s, models.RoleClient).ID, trip.ID, 1)
	cancelled, _ := reserve(s, mustUser(t, s, models.RoleClient).ID, trip.ID, 1)

	now := time.Now()
	if _, err := s.UpdateReservationStatus(ctx, confirmed.ID, models.ReservationPending, models.ReservationConfirmed, "", now); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.UpdateReservationStatus(ctx, cancelled.ID, models.ReservationPending, models.ReservationCancelled, "x", now); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, _, err := s.CompleteTrip(ctx, trip.ID, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("an available trip cannot be completed, got %v", err)
	}
	if _, err := s.StartTrip(ctx, trip.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	ended, n, err := s.CompleteTrip(ctx, trip.ID, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n != 1 || ended.Status != models.TripCompleted || ended.EndAt == nil {
		t.Fatalf("unexpected completion: n=%d trip=%+v", n, ended)
	}

	want := map[string]models.ReservationStatus{
		confirmed.ID: models.ReservationCompleted,
		pending.ID:   models.ReservationPending,
		cancelled.ID: models.ReservationCancelled,
	}
	for id, status := range want {
		r, err := s.GetReservation(ctx, id)
		if err != nil {
			t.Fatalf("get reservation: %v", err)
		}
		if r.Status != status {
			t.Fatalf("reservation %s: expected %s got %s", id, status, r.Status)
		}
	}
}

func testDeleteGuards(t *testing.T, s Store) {
	ctx := context.Background()
	driver := mustUser(t, s, models.RoleDriver)

	booked := mustTrip(t, s, driver.ID, 2)
	r, _ := reserve(s, mustUser(t, s, models.RoleClient).ID, booked.ID, 1)
	if _, err := s.UpdateReservationStatus(ctx, r.ID, models.ReservationPending, models.ReservationCancelled, "", time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.DeleteTrip(ctx, booked.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("a trip with any reservation cannot be deleted, got %v", err)
	}
	if _, err := s.CancelTrip(ctx, booked.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("a trip with reservations cannot be cancelled, got %v", err)
	}

	reported := mustTrip(t, s, driver.ID, 2)
	driverID := driver.ID
	report := &models.Report{
		Type:         models.ReportVehicle,
		Description:  "vehicle not as advertised",
		TripID:       reported.ID,
		ReporterID:   driver.ID,
		ReporterRole: models.RoleDriver,
		DriverID:     &driverID,
	}
	if err := s.CreateReport(ctx, report); err != nil {
		t.Fatalf("create report: %v", err)
	}
	if err := s.DeleteTrip(ctx, reported.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("a reported trip cannot be deleted, got %v", err)
	}
	if _, err := s.GetReport(ctx, report.ID); err != nil {
		t.Fatalf("report must survive the refused delete: %v", err)
	}

	free := mustTrip(t, s, driver.ID, 2)
	if err := s.DeleteTrip(ctx, free.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTrip(ctx, free.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted trip must be gone, got %v", err)
	}
	if err := s.DeleteTrip(ctx, free.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testPositions(t *testing.T, s Store) {
	ctx := context.Background()
	driver := mustUser(t, s, models.RoleDriver)
	trip := mustTrip(t, s, driver.ID, 2)

	dakar := models.Position{Latitude: 14.7167, Longitude: -17.4677, RecordedAt: time.Now()}
	if _, err := s.AddPosition(ctx, trip.ID, dakar); !errors.Is(err, ErrConflict) {
		t.Fatalf("positions require a trip in progress, got %v", err)
	}
	if _, err := s.StartTrip(ctx, trip.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.AddPosition(ctx, trip.ID, dakar); err != nil {
		t.Fatalf("first position: %v", err)
	}
	thies := models.Position{Latitude: 14.7910, Longitude: -16.9359, RecordedAt: time.Now().Add(time.Second)}
	got, err := s.AddPosition(ctx, trip.ID, thies)
	if err != nil {
		t.Fatalf("second position: %v", err)
	}
	if len(got.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(got.Positions))
	}
	if got.Distance < 55 || got.Distance > 60 {
		t.Fatalf("expected ~57km travelled, got %.2f", got.Distance)
	}
}

func testEvaluationAggregate(t *testing.T, s Store) {
	ctx := context.Background()
	driver := mustUser(t, s, models.RoleDriver)
	client := mustUser(t, s, models.RoleClient)

	for i, note := range []int{5, 4, 4} {
		trip := mustTrip(t, s, driver.ID, 1)
		r, err := reserve(s, client.ID, trip.ID, 1)
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		rating, err := s.CreateEvaluation(ctx, &models.Evaluation{
			ReservationID: r.ID,
			ClientID:      client.ID,
			DriverID:      driver.ID,
			Rating:        note,
		})
		if err != nil {
			t.Fatalf("evaluate %d: %v", i, err)
		}
		if rating.Count != i+1 {
			t.Fatalf("expected count %d, got %d", i+1, rating.Count)
		}
		if i == 0 {
			_, err := s.CreateEvaluation(ctx, &models.Evaluation{ReservationID: r.ID, ClientID: client.ID, DriverID: driver.ID, Rating: 1})
			if !errors.Is(err, ErrDuplicate) {
				t.Fatalf("expected duplicate evaluation to be refused, got %v", err)
			}
		}
	}

	u, err := s.GetUser(ctx, driver.ID)
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	if u.Rating != 4.3 || u.CompletedTrips != 3 {
		t.Fatalf("expected rating 4.3 over 3, got %.1f over %d", u.Rating, u.CompletedTrips)
	}

	list, err := s.ListEvaluations(ctx, driver.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Client == nil {
		t.Fatalf("expected 2 evaluations with reviewer, got %d", len(list))
	}
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustUser(t, s, models.RoleClient)

	dup := *u
	dup.ID = ""
	dup.Email = "  " + u.Email + " "
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	samePhone := *u
	samePhone.ID = ""
	samePhone.Email = "other-" + u.Email
	if err := s.CreateUser(ctx, &samePhone); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate phone, got %v", err)
	}
	other := mustUser(t, s, models.RoleClient)
	other.Phone = u.Phone
	if err := s.UpdateUser(ctx, other); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("taking another account's phone must fail, got %v", err)
	}
	if _, err := s.GetUserByPhone(ctx, "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank phone must not resolve an account, got %v", err)
	}

	byEmail, err := s.GetUserByEmail(ctx, u.Email)
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("lookup by email: %v", err)
	}
	byPhone, err := s.GetUserByPhone(ctx, u.Phone)
	if err != nil || byPhone.ID != u.ID {
		t.Fatalf("lookup by phone: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	byEmail.ResetTokenHash = "deadbeef"
	byEmail.ResetTokenExpiry = &past
	if err := s.UpdateUser(ctx, byEmail); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.GetUserByResetToken(ctx, "deadbeef"); err != nil {
		t.Fatalf("lookup by token: %v", err)
	}
	n, err := s.ClearExpiredResetTokens(ctx, time.Now())
	if err != nil || n < 1 {
		t.Fatalf("expected expired token purge, got n=%d err=%v", n, err)
	}
	if _, err := s.GetUserByResetToken(ctx, "deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("purged token must be gone, got %v", err)
	}
}
