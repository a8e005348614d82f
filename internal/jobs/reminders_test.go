package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

type recordingNotifier struct {
	mu       sync.Mutex
	sent     map[string][]string
	whatsapp int
}

func (n *recordingNotifier) SendSMS(_ context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]string{}
	}
	n.sent[to] = append(n.sent[to], body)
	return nil
}

func (n *recordingNotifier) SendWhatsApp(ctx context.Context, to, body string) error {
	n.mu.Lock()
	n.whatsapp++
	n.mu.Unlock()
	return n.SendSMS(ctx, to, body)
}

func (n *recordingNotifier) count(to string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[to])
}

func seedUser(t *testing.T, s storage.Store, role models.Role, phone string) *models.User {
	t.Helper()
	expiry := time.Now().AddDate(1, 0, 0)
	u := &models.User{
		FirstName:    "Moussa",
		LastName:     "Diop",
		Email:        strings.TrimPrefix(phone, "+") + "@example.com",
		Phone:        phone,
		Role:         role,
		Active:       true,
		PasswordHash: "x",
	}
	if role == models.RoleDriver {
		u.LicenseNumber = "LIC"
		u.LicenseExpiry = &expiry
		u.ValidationStatus = models.ValidationApproved
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func confirmedBooking(t *testing.T, s storage.Store, driverID, clientID string, startIn time.Duration) *models.Reservation {
	t.Helper()
	ctx := context.Background()
	trip := &models.Trip{
		DriverID:       driverID,
		Origin:         "Dakar",
		Destination:    "Thiès",
		StartAt:        time.Now().Add(startIn),
		PricePerSeat:   2500,
		SeatsTotal:     3,
		SeatsAvailable: 3,
		Status:         models.TripAvailable,
	}
	if err := s.CreateTrip(ctx, trip); err != nil {
		t.Fatal(err)
	}
	r := &models.Reservation{
		ClientID:       clientID,
		TripID:         trip.ID,
		Seats:          1,
		PickupAddress:  "Plateau",
		DropoffAddress: "Gare",
		Status:         models.ReservationPending,
		TotalAmount:    2500,
	}
	if err := s.CreateReservation(ctx, r); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateReservationStatus(ctx, r.ID, models.ReservationPending, models.ReservationConfirmed, "", time.Now()); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDepartureReminders(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	driver := seedUser(t, store, models.RoleDriver, "+221770000001")
	soon := seedUser(t, store, models.RoleClient, "+221770000002")
	later := seedUser(t, store, models.RoleClient, "+221770000003")

	confirmedBooking(t, store, driver.ID, soon.ID, 30*time.Minute)
	confirmedBooking(t, store, driver.ID, later.ID, 5*time.Hour)

	job := NewReminderJob(store, notifier, time.Minute)
	job.RunOnce(context.Background())
	job.RunOnce(context.Background())

	if got := notifier.count(soon.Phone); got != 1 {
		t.Fatalf("passenger leaving soon got %d reminders, want exactly 1", got)
	}
	if got := notifier.count(later.Phone); got != 0 {
		t.Errorf("passenger leaving later got %d reminders", got)
	}
	if notifier.whatsapp != 1 {
		t.Errorf("reminders go over WhatsApp, got %d WhatsApp sends", notifier.whatsapp)
	}
	body := notifier.sent[soon.Phone][0]
	if !strings.Contains(body, "Dakar → Thiès") || !strings.Contains(body, "Moussa Diop") {
		t.Errorf("unexpected reminder: %q", body)
	}
}

func TestExpiredResetTokensAreCleared(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	u := seedUser(t, store, models.RoleClient, "+221770000009")
	past := time.Now().Add(-time.Minute)
	u.ResetTokenHash = "deadbeef"
	u.ResetTokenExpiry = &past
	if err := store.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	NewReminderJob(store, &recordingNotifier{}, time.Minute).RunOnce(ctx)

	if _, err := store.GetUserByResetToken(ctx, "deadbeef"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired token should be gone, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	driver := seedUser(t, store, models.RoleDriver, "+221770000011")
	client := seedUser(t, store, models.RoleClient, "+221770000012")
	confirmedBooking(t, store, driver.ID, client.ID, 10*time.Minute)

	job := NewReminderJob(store, notifier, 10*time.Millisecond)
	job.Start(context.Background())
	job.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for notifier.count(client.Phone) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	job.Stop()
	job.Stop()

	if got := notifier.count(client.Phone); got != 1 {
		t.Fatalf("reminders = %d, want 1", got)
	}
}
