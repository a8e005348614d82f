package services

import (
	"context"
	"testing"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/models"
)

func TestPublishRequiresApprovedDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")

	start := time.Now().Add(time.Hour)
	price := 2500.0
	in := PublishTripInput{Origin: "Dakar", Destination: "Thiès", StartAt: &start, PricePerSeat: &price, Seats: 4}

	_, err := f.trips.Publish(ctx, client, in)
	wantKind(t, err, KindForbidden)

	u, _ := f.store.GetUser(ctx, driver.ID)
	u.ValidationStatus = models.ValidationPending
	_ = f.store.UpdateUser(ctx, u)
	_, err = f.trips.Publish(ctx, driver, in)
	wantKind(t, err, KindForbidden)

	u.ValidationStatus = models.ValidationApproved
	_ = f.store.UpdateUser(ctx, u)
	trip, err := f.trips.Publish(ctx, driver, in)
	if err != nil {
		t.Fatal(err)
	}
	if trip.SeatsAvailable != 4 || trip.SeatsTotal != 4 || trip.Status != models.TripAvailable {
		t.Errorf("unexpected trip: %+v", trip)
	}
	if trip.Driver == nil || trip.Driver.Email != "" {
		t.Error("trip should carry the public driver summary")
	}
}

func TestPublishValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	start := time.Now().Add(time.Hour)
	free, negative := 0.0, -10.0

	_, err := f.trips.Publish(ctx, driver, PublishTripInput{Origin: "Dakar", StartAt: &start, PricePerSeat: &free, Seats: 2})
	wantKind(t, err, KindValidation)

	_, err = f.trips.Publish(ctx, driver, PublishTripInput{Origin: "Dakar", Destination: "Mbour", StartAt: &start, PricePerSeat: &negative, Seats: 2})
	wantKind(t, err, KindValidation)

	trip, err := f.trips.Publish(ctx, driver, PublishTripInput{Origin: " Dakar ", Destination: "Mbour", StartAt: &start, PricePerSeat: &free, SeatsTotal: 3})
	if err != nil {
		t.Fatalf("free trips are allowed: %v", err)
	}
	if trip.Origin != "Dakar" || trip.SeatsTotal != 3 {
		t.Errorf("unexpected trip: %+v", trip)
	}
}

func TestSearchTrips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")

	plateau := f.publishTrip(t, driver, "Dakar Plateau", "Thiès", 2500, 4)
	f.publishTrip(t, driver, "Saint-Louis", "Dakar", 4000, 2)
	full := f.publishTrip(t, driver, "Dakar", "Thiès", 2000, 1)
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	f.reserve(t, client, full.ID, 1)

	found, err := f.trips.Search(ctx, TripQuery{Origin: "dakar", Destination: "THIES"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != plateau.ID {
		t.Fatalf("expected only the plateau trip, got %d trips", len(found))
	}
	if found[0].Driver == nil || found[0].Driver.Email != "" {
		t.Error("search results carry a public driver summary")
	}

	found, _ = f.trips.Search(ctx, TripQuery{Origin: "plateau"})
	if len(found) != 1 || found[0].ID != plateau.ID {
		t.Errorf("a word inside the place name must match, got %d trips", len(found))
	}

	denis := f.publishTrip(t, driver, "Saint-Denis", "Dakar", 3000, 2)
	found, _ = f.trips.Search(ctx, TripQuery{Origin: "saint-louis"})
	if len(found) != 1 || found[0].ID == denis.ID {
		t.Errorf("saint-louis must not match saint-denis, got %d trips", len(found))
	}
	_ = f.store.DeleteTrip(ctx, denis.ID)

	found, _ = f.trips.Search(ctx, TripQuery{Seats: 3})
	if len(found) != 1 || found[0].ID != plateau.ID {
		t.Errorf("min seats filter: got %d trips", len(found))
	}

	found, _ = f.trips.Search(ctx, TripQuery{})
	if len(found) != 2 {
		t.Fatalf("full trips are hidden, got %d", len(found))
	}
	if found[0].StartAt.After(found[1].StartAt) {
		t.Error("results must be ordered by start time")
	}

	from := time.Now().Add(72 * time.Hour)
	found, _ = f.trips.Search(ctx, TripQuery{From: &from})
	if len(found) != 0 {
		t.Errorf("date window: got %d trips", len(found))
	}
}

func TestTripLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	other := f.user(t, models.RoleDriver, "Ibou", "Fall")
	alice := f.user(t, models.RoleClient, "Awa", "Ndiaye")
	bob := f.user(t, models.RoleClient, "Bamba", "Sarr")

	trip := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	paid := f.reserve(t, alice, trip.ID, 2)
	f.pay(t, alice, paid.ID)
	unpaid := f.reserve(t, bob, trip.ID, 1)

	lat, lng := 14.7167, -17.4677
	_, err := f.trips.AddPosition(ctx, driver, trip.ID, PositionInput{Latitude: &lat, Longitude: &lng})
	wantKind(t, err, KindValidation)

	_, err = f.trips.Start(ctx, other, trip.ID)
	wantKind(t, err, KindForbidden)

	started, err := f.trips.Start(ctx, driver, trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if started.Status != models.TripInProgress {
		t.Fatalf("status = %s", started.Status)
	}
	_, err = f.trips.Start(ctx, driver, trip.ID)
	wantKind(t, err, KindValidation)

	if _, err := f.trips.AddPosition(ctx, driver, trip.ID, PositionInput{Latitude: &lat, Longitude: &lng}); err != nil {
		t.Fatal(err)
	}
	lat2, lng2 := 14.7910, -16.9359
	moved, err := f.trips.AddPosition(ctx, driver, trip.ID, PositionInput{Latitude: &lat2, Longitude: &lng2})
	if err != nil {
		t.Fatal(err)
	}
	if len(moved.Positions) != 2 || moved.Distance < 50 || moved.Distance > 65 {
		t.Errorf("positions=%d distance=%.1f", len(moved.Positions), moved.Distance)
	}

	badLat := 91.0
	_, err = f.trips.AddPosition(ctx, driver, trip.ID, PositionInput{Latitude: &badLat, Longitude: &lng})
	wantKind(t, err, KindValidation)
	_, err = f.trips.AddPosition(ctx, driver, trip.ID, PositionInput{Latitude: &lat})
	wantKind(t, err, KindValidation)

	done, err := f.trips.End(ctx, driver, trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Trip.Status != models.TripCompleted || done.Trip.EndAt == nil || done.CompletedReservations != 1 {
		t.Errorf("unexpected completion: %+v", done)
	}

	r, _ := f.store.GetReservation(ctx, paid.ID)
	if r.Status != models.ReservationCompleted {
		t.Errorf("confirmed reservation should complete, got %s", r.Status)
	}
	r, _ = f.store.GetReservation(ctx, unpaid.ID)
	if r.Status != models.ReservationPending {
		t.Errorf("pending reservation must be left alone, got %s", r.Status)
	}

	_, err = f.trips.End(ctx, driver, trip.ID)
	wantKind(t, err, KindValidation)

	types := f.publisher.types()
	if types[len(types)-1] != events.TripCompleted {
		t.Errorf("last event = %s", types[len(types)-1])
	}
}

func TestDeleteAndCancelTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	admin := f.user(t, models.RoleAdmin, "Root", "Admin")
	client := f.user(t, models.RoleClient, "Awa", "Ndiaye")

	booked := f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 4)
	r := f.reserve(t, client, booked.ID, 1)
	if _, err := f.reservations.Cancel(ctx, client, r.ID, CancelReservationInput{}); err != nil {
		t.Fatal(err)
	}
	// a cancelled reservation still blocks deletion
	err := f.trips.Delete(ctx, driver, booked.ID)
	wantKind(t, err, KindValidation)
	_, err = f.trips.Cancel(ctx, driver, booked.ID)
	wantKind(t, err, KindValidation)

	empty := f.publishTrip(t, driver, "Dakar", "Mbour", 1500, 3)
	err = f.trips.Delete(ctx, client, empty.ID)
	wantKind(t, err, KindForbidden)
	if err := f.trips.Delete(ctx, admin, empty.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	_, err = f.trips.Get(ctx, empty.ID)
	wantKind(t, err, KindNotFound)

	reported := f.publishTrip(t, driver, "Dakar", "Kaolack", 3000, 3)
	if _, err := f.reports.Create(ctx, driver, ReportInput{Type: "VEHICLE", Description: "panne moteur", TripID: reported.ID}); err != nil {
		t.Fatal(err)
	}
	err = f.trips.Delete(ctx, driver, reported.ID)
	wantKind(t, err, KindValidation)
	if _, err := f.trips.Get(ctx, reported.ID); err != nil {
		t.Fatalf("reported trip must be kept: %v", err)
	}

	spare := f.publishTrip(t, driver, "Dakar", "Touba", 5000, 3)
	cancelled, err := f.trips.Cancel(ctx, driver, spare.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.TripCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}
	err = f.trips.Delete(ctx, driver, spare.ID)
	wantKind(t, err, KindValidation)
}

func TestListForDriver(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, models.RoleDriver, "Moussa", "Diop")
	for i := 0; i < driverTripsLimit+3; i++ {
		f.publishTrip(t, driver, "Dakar", "Thiès", 2500, 2)
	}
	trips, err := f.trips.ListForDriver(context.Background(), driver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(trips) != driverTripsLimit {
		t.Fatalf("got %d trips, want %d", len(trips), driverTripsLimit)
	}
	for i := 1; i < len(trips); i++ {
		if trips[i].StartAt.After(trips[i-1].StartAt) {
			t.Fatal("driver trips must be latest first")
		}
	}
}
