package services

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/models"
)

var referencePattern = regexp.MustCompile(`^PAY-\d+-[A-Z0-9]{9}$`)

func TestProcessPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	stranger := f.user(t, models.RoleClient, "Bamba", "Sarr")
	trip := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	r := f.reserve(t, client, trip.ID, 2)

	_, err := f.payments.Process(ctx, stranger, PaymentInput{ReservationID: r.ID, Method: "CASH"})
	wantKind(t, err, KindForbidden)

	_, err = f.payments.Process(ctx, client, PaymentInput{ReservationID: r.ID, Method: "BITCOIN"})
	wantKind(t, err, KindValidation)

	p, err := f.payments.Process(ctx, client, PaymentInput{ReservationID: r.ID, Method: "carte_bancaire"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Method != models.MethodCard || p.Status != models.PaymentSuccess || p.Amount != 5000 {
		t.Errorf("unexpected payment: %+v", p)
	}
	if !referencePattern.MatchString(p.Reference) {
		t.Errorf("reference %q has the wrong shape", p.Reference)
	}

	confirmed, _ := f.store.GetReservation(ctx, r.ID)
	if confirmed.Status != models.ReservationConfirmed {
		t.Errorf("reservation status = %s", confirmed.Status)
	}

	_, err = f.payments.Process(ctx, client, PaymentInput{ReservationID: r.ID, Method: "CASH"})
	wantKind(t, err, KindValidation)

	types := f.publisher.types()
	if types[len(types)-1] != events.PaymentSucceeded {
		t.Errorf("events = %v", types)
	}
}

func TestPaymentCancelledReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	trip := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	r := f.reserve(t, client, trip.ID, 1)
	if _, err := f.reservations.Cancel(ctx, client, r.ID, CancelReservationInput{}); err != nil {
		t.Fatal(err)
	}

	_, err := f.payments.Process(ctx, client, PaymentInput{ReservationID: r.ID, Method: "CASH"})
	wantKind(t, err, KindValidation)
}

func TestConcurrentPaymentsRecordOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	trip := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	r := f.reserve(t, client, trip.ID, 1)

	var (
		wg sync.WaitGroup
		ok int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.payments.Process(ctx, client, PaymentInput{ReservationID: r.ID, Method: "CASH"}); err == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()
	if ok != 1 {
		t.Fatalf("%d payments succeeded, want exactly 1", ok)
	}
}

func TestGetPaymentByReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	other := f.user(t, models.RoleDriver, "Ibou", "Fall")
	admin := f.user(t, models.RoleAdmin, "Root", "Admin")
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	trip := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	p := f.pay(t, client, f.reserve(t, client, trip.ID, 1).ID)

	for _, c := range []Caller{client, driver, admin} {
		got, err := f.payments.GetByReference(ctx, c, p.Reference)
		if err != nil {
			t.Fatalf("%s lookup: %v", c.Role, err)
		}
		if got.Reservation == nil || got.Reservation.Trip == nil || got.Reservation.Client == nil {
			t.Fatal("payment should join reservation, trip and client")
		}
	}

	_, err := f.payments.GetByReference(ctx, other, p.Reference)
	wantKind(t, err, KindForbidden)

	_, err = f.payments.GetByReference(ctx, admin, "PAY-0-NOTFOUND0")
	wantKind(t, err, KindNotFound)
}

func paidReservation(t *testing.T, f *fixture, client Caller, tripID string) *models.Reservation {
	t.Helper()
	r := f.reserve(t, client, tripID, 1)
	f.pay(t, client, r.ID)
	return r
}

func TestEvaluations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	clients := []Caller{
		f.user(t, models.RoleClient, "Awa", "Ndiaye"),
		f.user(t, models.RoleClient, "Bamba", "Sarr"),
		f.user(t, models.RoleClient, "Coumba", "Ba"),
	}
	trip := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	var reservations []*models.Reservation
	for _, c := range clients {
		reservations = append(reservations, paidReservation(t, f, c, trip.ID))
	}

	_, err := f.evaluations.Create(ctx, clients[0], EvaluationInput{ReservationID: reservations[0].ID, Rating: 5})
	wantKind(t, err, KindValidation)

	if _, err := f.trips.Start(ctx, driver, trip.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.trips.End(ctx, driver, trip.ID); err != nil {
		t.Fatal(err)
	}

	_, err = f.evaluations.Create(ctx, clients[1], EvaluationInput{ReservationID: reservations[0].ID, Rating: 5})
	wantKind(t, err, KindForbidden)

	_, err = f.evaluations.Create(ctx, clients[0], EvaluationInput{ReservationID: reservations[0].ID, Rating: 6})
	wantKind(t, err, KindValidation)

	bad := 0
	_, err = f.evaluations.Create(ctx, clients[0], EvaluationInput{
		ReservationID: reservations[0].ID, Rating: 4, Criteria: models.Criteria{Driving: &bad},
	})
	wantKind(t, err, KindValidation)

	var last *EvaluationResult
	for i, rating := range []int{5, 4, 4} {
		last, err = f.evaluations.Create(ctx, clients[i], EvaluationInput{
			ReservationID: reservations[i].ID, Rating: rating, Comment: "  Très bon trajet  ",
		})
		if err != nil {
			t.Fatalf("evaluation %d: %v", i, err)
		}
	}
	if last.Driver.Average != 4.3 || last.Driver.Count != 3 {
		t.Errorf("driver rating = %+v, want 4.3 over 3", last.Driver)
	}
	if last.Evaluation.Comment != "Très bon trajet" || last.Evaluation.DriverID != driver.ID {
		t.Errorf("unexpected evaluation: %+v", last.Evaluation)
	}

	_, err = f.evaluations.Create(ctx, clients[0], EvaluationInput{ReservationID: reservations[0].ID, Rating: 3})
	wantKind(t, err, KindValidation)

	u, _ := f.store.GetUser(ctx, driver.ID)
	if u.Rating != 4.3 || u.CompletedTrips != 3 {
		t.Errorf("stored driver rating = %v / %d", u.Rating, u.CompletedTrips)
	}

	list, err := f.evaluations.ListForDriver(ctx, driver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Client == nil || list[0].Client.Email != "" {
		t.Errorf("listing should carry public reviewer profiles")
	}
}

func TestOnlyClientsEvaluate(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	_, err := f.evaluations.Create(context.Background(), driver, EvaluationInput{ReservationID: "x", Rating: 5})
	wantKind(t, err, KindForbidden)
}
