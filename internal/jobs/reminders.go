package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/services"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

// reminderWindow is how far ahead of departure passengers are reminded
const reminderWindow = time.Hour

// ReminderJob sends departure reminders and purges expired reset tokens
type ReminderJob struct {
	store    storage.Store
	notifier services.Notifier
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReminderJob creates a new reminder job scheduler
func NewReminderJob(store storage.Store, notifier services.Notifier, interval time.Duration) *ReminderJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReminderJob{
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs the job every interval until ctx is cancelled or Stop is called
func (j *ReminderJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		log.Println("Reminder job already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	log.Printf("⏰ Reminder job started (every %v)", j.interval)

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts the job and waits for the current run to finish
func (j *ReminderJob) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel = nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Println("⏹️  Reminder job stopped")
}

// RunOnce performs a single pass of both tasks
func (j *ReminderJob) RunOnce(ctx context.Context) {
	sent := j.sendDepartureReminders(ctx)
	if sent > 0 {
		log.Printf("📨 Sent %d departure reminder(s)", sent)
	}

	cleared, err := j.store.ClearExpiredResetTokens(ctx, j.now())
	if err != nil {
		log.Printf("Error clearing expired reset tokens: %v", err)
	} else if cleared > 0 {
		log.Printf("🧹 Cleared %d expired reset token(s)", cleared)
	}
}

// sendDepartureReminders messages every confirmed passenger whose trip leaves
// within the window over WhatsApp. Each reservation is reminded at most once.
func (j *ReminderJob) sendDepartureReminders(ctx context.Context) int {
	now := j.now()
	until := now.Add(reminderWindow)

	due, err := j.store.ListReservations(ctx, storage.ReservationFilter{
		Statuses:        []models.ReservationStatus{models.ReservationConfirmed},
		TripStartFrom:   &now,
		TripStartTo:     &until,
		ReminderPending: true,
	})
	if err != nil {
		log.Printf("Error getting reservations for reminders: %v", err)
		return 0
	}

	sent := 0
	for _, r := range due {
		if r.Client == nil || r.Client.Phone == "" || r.Trip == nil {
			continue
		}
		driver := ""
		if r.Trip.Driver != nil {
			driver = r.Trip.Driver.FullName()
		}
		body := services.DepartureReminder(services.ReminderMessage{
			Route:   r.Trip.Route(),
			StartAt: r.Trip.StartAt,
			Driver:  driver,
		})
		if body == "" {
			continue
		}
		if err := j.notifier.SendWhatsApp(ctx, r.Client.Phone, body); err != nil {
			log.Printf("Failed to send reminder for reservation %s: %v", r.ID, err)
			continue
		}
		if err := j.store.MarkReminderSent(ctx, r.ID, now); err != nil {
			log.Printf("Error marking reminder sent for %s: %v", r.ID, err)
			continue
		}
		sent++
	}
	return sent
}
