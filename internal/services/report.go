package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	filterAll       = "all"
)

type ReportInput struct {
	Type          string `json:"type"`
	Description   string `json:"description"`
	TripID        string `json:"trajetId"`
	ReservationID string `json:"reservationId"`
}

// ReportQuery is the admin listing filter. Empty or "all" disables a filter.
type ReportQuery struct {
	Page   int
	Limit  int
	Search string
	Type   string
	Status string
}

type ReportDecisionInput struct {
	Response string `json:"reponseSupport"`
}

// ReportList is one page of the admin report table
type ReportList struct {
	Items []models.ReportRow `json:"items"`
	models.Page
}

// ReportService handles incidents raised about trips
type ReportService struct {
	store storage.Store
	now   func() time.Time
}

func NewReportService(store storage.Store) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Create files a report. Clients must hold a reservation on the trip and
// drivers must own it.
func (s *ReportService) Create(ctx context.Context, c Caller, in ReportInput) (*models.Report, error) {
	if in.Type == "" || strings.TrimSpace(in.Description) == "" || in.TripID == "" {
		return nil, invalid("type, description and trajetId are required")
	}
	reportType, ok := models.ParseReportType(in.Type)
	if !ok {
		return nil, invalid("invalid report type")
	}
	if !c.IsClient() && !c.IsDriver() {
		return nil, forbidden("only clients and drivers can file reports")
	}

	trip, err := s.store.GetTrip(ctx, in.TripID)
	if err != nil {
		return nil, fromStore("create report", "trip not found", err)
	}

	report := &models.Report{
		Type:         reportType,
		Description:  in.Description,
		TripID:       trip.ID,
		ReporterID:   c.ID,
		ReporterRole: c.Role,
		Status:       models.ReportPending,
		DriverID:     &trip.DriverID,
	}
	if err := checkValid(report.Validate()); err != nil {
		return nil, err
	}

	if in.ReservationID != "" {
		reservation, err := s.store.GetReservation(ctx, in.ReservationID)
		if err != nil {
			return nil, fromStore("create report", "reservation not found", err)
		}
		if reservation.TripID != trip.ID {
			return nil, invalid("the reservation does not belong to this trip")
		}
		if c.IsClient() && reservation.ClientID != c.ID {
			return nil, forbidden("you can only report on your own reservations")
		}
		report.ReservationID = &reservation.ID
		report.ClientID = &reservation.ClientID
	}

	switch {
	case c.IsDriver():
		if trip.DriverID != c.ID {
			return nil, forbidden("you can only report on your own trips")
		}
	case report.ClientID == nil:
		held, err := s.store.CountReservations(ctx, storage.ReservationFilter{ClientID: c.ID, TripID: trip.ID})
		if err != nil {
			return nil, internal("create report", err)
		}
		if held == 0 {
			return nil, forbidden("you can only report on trips you booked")
		}
		clientID := c.ID
		report.ClientID = &clientID
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fromStore("create report", "trip not found", err)
	}
	log.Printf("🚩 Report %s filed by %s on trip %s", report.ID, report.ReporterRole, report.TripID)

	created, err := s.store.GetReport(ctx, report.ID)
	if err != nil {
		return nil, internal("create report", err)
	}
	return publicReport(created), nil
}

// ListMine returns the caller's own reports, newest first
func (s *ReportService) ListMine(ctx context.Context, c Caller) ([]*models.Report, error) {
	list, err := s.store.ListReports(ctx, storage.ReportFilter{ReporterID: c.ID})
	if err != nil {
		return nil, internal("list reports", err)
	}
	for _, r := range list {
		publicReport(r)
	}
	return list, nil
}

// List is the admin report table: filtered in the store, searched and
// paginated here
func (s *ReportService) List(ctx context.Context, q ReportQuery) (*ReportList, error) {
	filter := storage.ReportFilter{}
	if q.Type != "" && q.Type != filterAll {
		t, ok := models.ParseReportType(q.Type)
		if !ok {
			return nil, invalid("invalid report type")
		}
		filter.Type = t
	}
	if q.Status != "" && q.Status != filterAll {
		st, ok := models.ParseReportStatus(q.Status)
		if !ok {
			return nil, invalid("invalid report status")
		}
		filter.Status = st
	}

	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, internal("list reports", err)
	}

	term := strings.ToLower(strings.TrimSpace(q.Search))
	rows := make([]models.ReportRow, 0, len(reports))
	for _, r := range reports {
		row := reportRow(r)
		if term != "" &&
			!strings.Contains(strings.ToLower(row.ID), term) &&
			!strings.Contains(strings.ToLower(row.Client.Name), term) &&
			!strings.Contains(strings.ToLower(row.Driver.Name), term) {
			continue
		}
		rows = append(rows, row)
	}

	page, limit := pageBounds(q.Page, q.Limit)
	return &ReportList{
		Items: pageOf(rows, page, limit),
		Page:  models.NewPage(page, limit, int64(len(rows))),
	}, nil
}

// Decide closes a report as RESOLVED or REJECTED, overwriting any earlier decision
func (s *ReportService) Decide(ctx context.Context, c Caller, id string, status models.ReportStatus, in ReportDecisionInput) (*models.ReportRow, error) {
	if !c.IsAdmin() {
		return nil, forbidden("not authorized")
	}
	current, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fromStore("decide report", "report not found", err)
	}
	if !current.Status.CanTransition(status) {
		return nil, invalid("invalid report status")
	}
	updated, err := s.store.DecideReport(ctx, id, status, c.ID, strings.TrimSpace(in.Response), s.now())
	if err != nil {
		return nil, fromStore("decide report", "report not found", err)
	}
	log.Printf("📋 Report %s marked %s", id, status)
	row := reportRow(updated)
	return &row, nil
}

func reportRow(r *models.Report) models.ReportRow {
	clientName := r.ClientName()
	driverName := r.DriverName()
	row := models.ReportRow{
		ID:          r.ID,
		Date:        r.CreatedAt,
		Type:        r.Type,
		TypeIcon:    r.Type.Icon(),
		Client:      models.Party{Name: clientName, Initials: models.Initials(nameOrEmpty(r.Client), "CL")},
		Driver:      models.Party{Name: driverName, Initials: models.Initials(driverFullName(r), "CH")},
		Status:      r.Status,
		Description: r.Description,
		Reporter:    r.ReporterRole,
		Response:    r.SupportResponse,
		HandledAt:   r.HandledAt,
	}
	if r.Trip != nil {
		row.Trip = r.Trip.Route()
		start := r.Trip.StartAt
		row.TripDate = &start
	}
	return row
}

func nameOrEmpty(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.FullName()
}

func driverFullName(r *models.Report) string {
	if r.Driver != nil {
		return r.Driver.FullName()
	}
	if r.Trip != nil {
		return nameOrEmpty(r.Trip.Driver)
	}
	return ""
}

func publicReport(r *models.Report) *models.Report {
	r.Reporter = r.Reporter.Public()
	r.Client = r.Client.Public()
	r.Driver = r.Driver.Public()
	if r.Trip != nil {
		r.Trip.Driver = r.Trip.Driver.Public()
	}
	return r
}

// pageBounds clamps page to >= 1 and limit to 1..100, defaulting to 10
func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func pageOf[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
