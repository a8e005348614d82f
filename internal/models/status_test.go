package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestTripTransitions(t *testing.T) {
	allowed := [][2]TripStatus{
		{TripAvailable, TripInProgress},
		{TripAvailable, TripCancelled},
		{TripInProgress, TripCompleted},
	}
	for _, tr := range allowed {
		if !tr[0].CanTransition(tr[1]) {
			t.Fatalf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	refused := [][2]TripStatus{
		{TripAvailable, TripCompleted},
		{TripInProgress, TripAvailable},
		{TripInProgress, TripCancelled},
		{TripCompleted, TripInProgress},
		{TripCancelled, TripAvailable},
	}
	for _, tr := range refused {
		if tr[0].CanTransition(tr[1]) {
			t.Fatalf("expected %s -> %s to be refused", tr[0], tr[1])
		}
	}
}

func TestReservationTransitions(t *testing.T) {
	if !ReservationPending.CanTransition(ReservationConfirmed) {
		t.Fatal("pending reservations must be confirmable")
	}
	if !ReservationConfirmed.CanTransition(ReservationCancelled) {
		t.Fatal("confirmed reservations must be cancellable")
	}
	if ReservationPending.CanTransition(ReservationCompleted) {
		t.Fatal("pending reservations cannot complete directly")
	}
	if ReservationCompleted.CanTransition(ReservationCancelled) {
		t.Fatal("completed reservations are terminal")
	}
	if !ReservationCancelled.Terminal() || !ReservationCompleted.Terminal() {
		t.Fatal("cancelled and completed must be terminal")
	}
	if ReservationPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
}

func TestReportAndValidationTransitions(t *testing.T) {
	if !ReportResolved.CanTransition(ReportRejected) {
		t.Fatal("admin decisions may overwrite each other")
	}
	if ReportResolved.CanTransition(ReportPending) {
		t.Fatal("a decided report cannot go back to pending")
	}
	if !ValidationRejected.CanTransition(ValidationApproved) {
		t.Fatal("a rejected driver can be approved later")
	}
	if ValidationApproved.CanTransition(ValidationPending) {
		t.Fatal("a reviewed driver cannot return to pending")
	}
}

func TestParseAliases(t *testing.T) {
	if s, ok := ParseReservationTarget("validated"); !ok || s != ReservationConfirmed {
		t.Fatalf("VALIDATED should map to CONFIRMED, got %q %v", s, ok)
	}
	if _, ok := ParseReservationTarget("PENDING"); ok {
		t.Fatal("PENDING is not an allowed update target")
	}
	if m, ok := ParsePaymentMethod("CARTE_BANCAIRE"); !ok || m != MethodCard {
		t.Fatalf("expected CARD, got %q", m)
	}
	if _, ok := ParsePaymentMethod("BITCOIN"); ok {
		t.Fatal("unknown methods must be refused")
	}
	if rt, ok := ParseReportType("retard"); !ok || rt != ReportDelay {
		t.Fatalf("expected DELAY, got %q", rt)
	}
	if d, ok := ParseValidationDecision("REJETE"); !ok || d != ValidationRejected {
		t.Fatalf("expected REJECTED, got %q", d)
	}
	if ReportSafety.Icon() != "🛡️" || ReportType("NOPE").Icon() != "📝" {
		t.Fatal("unexpected report icons")
	}
}

func TestPositionDistance(t *testing.T) {
	dakar := Position{Latitude: 14.7167, Longitude: -17.4677}
	thies := Position{Latitude: 14.7910, Longitude: -16.9359}

	d := dakar.DistanceKm(thies)
	if d < 55 || d > 60 {
		t.Fatalf("expected roughly 57km between Dakar and Thies, got %.2f", d)
	}
	if dakar.DistanceKm(dakar) != 0 {
		t.Fatal("distance to self must be zero")
	}

	if err := (Position{Latitude: 91}).Validate(); err == nil {
		t.Fatal("latitude 91 must be refused")
	}
	if err := (Position{Longitude: math.NaN()}).Validate(); err == nil {
		t.Fatal("NaN longitude must be refused")
	}
}

func TestUserValidate(t *testing.T) {
	u := &User{FirstName: "Awa", LastName: "Diop", Email: "awa@example.com", Phone: "+221 77 000 00 00", Role: RoleDriver}
	err := u.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error for a driver without license, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Fatalf("expected two license problems, got %v", verr.Problems)
	}

	expiry := time.Now().AddDate(1, 0, 0)
	u.LicenseNumber = "SN-123"
	u.LicenseExpiry = &expiry
	if err := u.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u.Normalize()
	if u.ValidationStatus != ValidationPending {
		t.Fatalf("drivers start pending, got %s", u.ValidationStatus)
	}
	if u.Photo != DefaultPhoto {
		t.Fatalf("expected default photo, got %q", u.Photo)
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(2, 10, 21)
	if p.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.TotalPages)
	}
	if NewPage(1, 10, 0).TotalPages != 1 {
		t.Fatal("an empty listing still reports one page")
	}
	if Initials("awa diop ndiaye", "CL") != "AD" || Initials("  ", "CL") != "CL" {
		t.Fatal("unexpected initials")
	}
}
