package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/handlers"
	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// Services groups everything the routes need
type Services struct {
	Auth         *services.AuthService
	Trips        *services.TripService
	Reservations *services.ReservationService
	Payments     *services.PaymentService
	Evaluations  *services.EvaluationService
	Reports      *services.ReportService
	Admin        *services.AdminService
	Finance      *services.FinanceService
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc Services, health *handlers.HealthHandler) {
	app.Get("/", health.Root)
	app.Get("/health", health.Check)

	protect := middleware.Protect(svc.Auth)
	admin := middleware.Authorize(models.RoleAdmin)
	client := middleware.Authorize(models.RoleClient)
	driver := middleware.Authorize(models.RoleDriver)
	driverOrAdmin := middleware.Authorize(models.RoleDriver, models.RoleAdmin)

	authH := handlers.NewAuthHandler(svc.Auth)
	tripH := handlers.NewTripHandler(svc.Trips)
	reservationH := handlers.NewReservationHandler(svc.Reservations)
	paymentH := handlers.NewPaymentHandler(svc.Payments)
	evaluationH := handlers.NewEvaluationHandler(svc.Evaluations)
	reportH := handlers.NewReportHandler(svc.Reports)
	adminH := handlers.NewAdminHandler(svc.Admin, svc.Finance)

	api := app.Group("/api")

	// ========== AUTH ==========
	auth := api.Group("/auth")
	auth.Post("/register", authH.Register)
	auth.Post("/login", authH.Login)
	auth.Post("/forgot-password", authH.ForgotPassword)
	auth.Post("/reset-password", authH.ResetPassword)
	auth.Get("/me", protect, authH.Me)
	auth.Post("/logout", protect, authH.Logout)
	auth.Put("/profile", protect, authH.UpdateProfile)
	auth.Put("/password", protect, authH.ChangePassword)
	auth.Put("/admin/users/:id", protect, admin, adminH.UpdateUser)
	auth.Put("/admin/chauffeurs/:id/block", protect, admin, adminH.BlockDriver)
	auth.Put("/admin/chauffeurs/:id/unblock", protect, admin, adminH.UnblockDriver)

	// ========== TRAJETS ==========
	trips := api.Group("/trajets")
	trips.Get("/", tripH.Search)
	trips.Post("/", protect, driver, tripH.Publish)
	trips.Get("/chauffeur/:chauffeurId", tripH.ListForDriver)
	trips.Get("/:id", tripH.Get)
	trips.Put("/:id/start", protect, driver, tripH.Start)
	trips.Post("/:id/positions", protect, driver, tripH.AddPosition)
	trips.Put("/:id/end", protect, driver, tripH.End)
	trips.Put("/:id/cancel", protect, driverOrAdmin, tripH.Cancel)
	trips.Delete("/:id", protect, driverOrAdmin, tripH.Delete)

	// ========== RESERVATIONS ==========
	reservations := api.Group("/reservations", protect)
	reservations.Post("/", client, reservationH.Create)
	reservations.Get("/mes-reservations", client, reservationH.ListMine)
	reservations.Get("/trajet/:trajetId", driverOrAdmin, reservationH.ListForTrip)
	reservations.Patch("/:id", driverOrAdmin, reservationH.UpdateStatus)
	reservations.Delete("/:id", client, reservationH.Cancel)

	// ========== PAIEMENTS ==========
	payments := api.Group("/paiements", protect)
	payments.Post("/", paymentH.Process)
	payments.Get("/:ref", paymentH.GetByReference)

	// ========== EVALUATIONS ==========
	evaluations := api.Group("/evaluations")
	evaluations.Post("/", protect, client, evaluationH.Create)
	evaluations.Get("/chauffeur/:chauffeurId", evaluationH.ListForDriver)

	// ========== SIGNALEMENTS ==========
	reports := api.Group("/signalements", protect)
	reports.Post("/", reportH.Create)
	reports.Get("/mes-signalements", reportH.ListMine)

	// ========== ADMIN ==========
	adminGroup := api.Group("/admin", protect, admin)
	adminGroup.Get("/statistics", adminH.Statistics)
	adminGroup.Get("/chauffeurs/pending", adminH.PendingDrivers)
	adminGroup.Put("/chauffeurs/:id/validate", adminH.ValidateDriver)
	adminGroup.Get("/finance/stats", adminH.FinanceStats)
	adminGroup.Get("/finance/payments", adminH.FinancePayments)
	adminGroup.Get("/finance/pending-trips", adminH.FinancePendingTrips)
	adminGroup.Get("/reports", reportH.List)
	adminGroup.Put("/reports/:id/resolve", reportH.Resolve)
	adminGroup.Put("/reports/:id/reject", reportH.Reject)
}
