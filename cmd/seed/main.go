// Command seed fills a development database with an admin, a test client,
// an approved test driver and a few trips leaving in the next hours.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yoonbi/yoonbi-backend/database"
	"github.com/yoonbi/yoonbi-backend/internal/config"
	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/services"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

const testPassword = "test123"

type sampleTrip struct {
	from, to string
	in       time.Duration
	price    float64
	seats    int
}

var sampleTrips = []sampleTrip{
	{"Dakar", "Thiès", 2 * time.Hour, 2500, 3},
	{"Dakar", "Saint-Louis", 5 * time.Hour, 5000, 4},
	{"Thiès", "Dakar", 3 * time.Hour, 2500, 2},
	{"Dakar", "Mbour", 4 * time.Hour, 3500, 3},
	{"Kaolack", "Dakar", 6 * time.Hour, 4000, 4},
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	store := storage.NewDatabaseStore(db)

	auth := services.NewAuthService(store, services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry), services.LogNotifier{}, false)
	admin := services.NewAdminService(store)
	trips := services.NewTripService(store, events.NopPublisher{})

	adminEmail, adminPassword := cfg.Admin.Email, cfg.Admin.Password
	if adminEmail == "" || adminPassword == "" {
		adminEmail, adminPassword = "admin@yoonbi.com", "admin123"
	}
	if err := auth.EnsureAdmin(ctx, adminEmail, adminPassword); err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	client := ensureUser(ctx, store, auth, services.RegisterInput{
		FirstName: "Test",
		LastName:  "Client",
		Email:     "test@yoonbi.com",
		Phone:     "221777777777",
		Password:  testPassword,
		Role:      models.RoleClient,
	})

	expiry := time.Date(time.Now().Year()+1, time.December, 31, 0, 0, 0, 0, time.Local)
	driver := ensureUser(ctx, store, auth, services.RegisterInput{
		FirstName:     "Test",
		LastName:      "Chauffeur",
		Email:         "chauffeur@yoonbi.com",
		Phone:         "221788888888",
		Password:      testPassword,
		Role:          models.RoleDriver,
		LicenseNumber: "TEST123456",
		LicenseExpiry: &expiry,
		Vehicle: &models.Vehicle{
			Type:  "BERLINE",
			Make:  "Toyota",
			Model: "Corolla",
			Plate: "DK-1234-AB",
			Color: "Noir",
			Seats: 4,
		},
	})
	if driver.ValidationStatus != models.ValidationApproved {
		if _, err := admin.ValidateDriver(ctx, driver.ID, services.ValidationDecisionInput{Decision: string(models.ValidationApproved)}); err != nil {
			log.Fatal("Failed to approve test driver:", err)
		}
	}

	existing, err := store.CountTrips(ctx, storage.TripFilter{DriverID: driver.ID})
	if err != nil {
		log.Fatal("Failed to count trips:", err)
	}
	if existing == 0 {
		caller := services.Caller{ID: driver.ID, Role: models.RoleDriver}
		for _, s := range sampleTrips {
			start := time.Now().Add(s.in)
			price := s.price
			trip, err := trips.Publish(ctx, caller, services.PublishTripInput{
				Origin:       s.from,
				Destination:  s.to,
				StartAt:      &start,
				PricePerSeat: &price,
				Seats:        s.seats,
			})
			if err != nil {
				log.Fatal("Failed to create trip:", err)
			}
			log.Printf("  %s - %.0f FCFA - %d places", trip.Route(), trip.PricePerSeat, trip.SeatsAvailable)
		}
	}

	log.Println("========================================")
	log.Printf("👤 Admin:     %s", adminEmail)
	log.Printf("🧍 Client:    %s / %s", client.Email, testPassword)
	log.Printf("🚗 Chauffeur: %s / %s", driver.Email, testPassword)
	log.Println("========================================")
}

// ensureUser registers the account unless the email is already taken
func ensureUser(ctx context.Context, store storage.Store, auth *services.AuthService, in services.RegisterInput) *models.User {
	user, err := store.GetUserByEmail(ctx, in.Email)
	if err == nil {
		log.Printf("✔️  %s already exists", in.Email)
		return user
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Fatal("Failed to look up user:", err)
	}

	res, err := auth.Register(ctx, in)
	if err != nil {
		log.Fatalf("Failed to register %s: %v", in.Email, err)
	}
	user, err = store.GetUser(ctx, res.User.ID)
	if err != nil {
		log.Fatal("Failed to reload user:", err)
	}
	log.Printf("✅ Created %s %s", user.Role, user.Email)
	return user
}
