package services

import (
	"context"
	"strings"
	"time"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

const pendingTripsLimit = 20

// Finance periods
const (
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
	PeriodCustom  = "custom"
)

// FinanceQuery selects the stats window. From/To are only read for custom periods.
type FinanceQuery struct {
	Period string
	From   string
	To     string
}

// PaymentQuery is the admin payments table filter
type PaymentQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
}

type PaymentList struct {
	Items []models.FinancePayment `json:"items"`
	models.Page
}

// FinanceService computes the admin money rollups
type FinanceService struct {
	store storage.Store
	now   func() time.Time
}

func NewFinanceService(store storage.Store) *FinanceService {
	return &FinanceService{store: store, now: time.Now}
}

// Stats returns the KPIs for the window [start, end)
func (s *FinanceService) Stats(ctx context.Context, q FinanceQuery) (*models.FinanceStats, error) {
	period, start, end, err := s.periodRange(q)
	if err != nil {
		return nil, err
	}
	// store windows are inclusive, finance windows exclude their end
	last := end.Add(-time.Nanosecond)

	revenue, err := s.store.SumPayments(ctx, storage.PaymentFilter{
		Statuses:    []models.PaymentStatus{models.PaymentSuccess},
		CreatedFrom: &start,
		CreatedTo:   &last,
	})
	if err != nil {
		return nil, internal("finance stats", err)
	}

	confirmed, err := s.store.ListReservations(ctx, storage.ReservationFilter{
		Statuses:     []models.ReservationStatus{models.ReservationConfirmed},
		CreatedUntil: &last,
	})
	if err != nil {
		return nil, internal("finance stats", err)
	}

	completed, err := s.store.ListReservations(ctx, storage.ReservationFilter{
		Statuses:    []models.ReservationStatus{models.ReservationCompleted},
		UpdatedFrom: &start,
		UpdatedTo:   &last,
	})
	if err != nil {
		return nil, internal("finance stats", err)
	}

	revenueCommission := commission(revenue)
	tripTotal := sum(amounts(completed))
	tripCommission := commission(tripTotal)

	return &models.FinanceStats{
		Period: period,
		From:   start,
		To:     end,
		KPI: models.FinanceKPI{
			TotalRevenue:      revenue,
			Commission:        revenueCommission,
			PaidToDrivers:     subtract(revenue, revenueCommission),
			PendingValidation: sum(amounts(confirmed)),
		},
		Monthly: models.MonthlyBlock{
			CompletedTrips: len(completed),
			TotalTripPrice: tripTotal,
			Commission:     tripCommission,
			NetPaid:        subtract(tripTotal, tripCommission),
		},
	}, nil
}

var paymentStatusFilters = map[string]models.PaymentStatus{
	"success":  models.PaymentSuccess,
	"pending":  models.PaymentPending,
	"failed":   models.PaymentFailed,
	"refunded": models.PaymentRefunded,
}

// Payments lists payments newest first with the per-payment split
func (s *FinanceService) Payments(ctx context.Context, q PaymentQuery) (*PaymentList, error) {
	filter := storage.PaymentFilter{}
	if status := strings.ToLower(strings.TrimSpace(q.Status)); status != "" && status != filterAll {
		st, ok := paymentStatusFilters[status]
		if !ok {
			return nil, invalid("invalid status. allowed: all, success, pending, failed, refunded")
		}
		filter.Statuses = []models.PaymentStatus{st}
	}

	payments, err := s.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, internal("finance payments", err)
	}

	term := strings.ToLower(strings.TrimSpace(q.Search))
	rows := make([]models.FinancePayment, 0, len(payments))
	for _, p := range payments {
		row := paymentRow(p)
		if term != "" &&
			!strings.Contains(strings.ToLower(row.Driver), term) &&
			!strings.Contains(strings.ToLower(row.Reference), term) &&
			!strings.Contains(strings.ToLower(row.Client), term) {
			continue
		}
		rows = append(rows, row)
	}

	page, limit := pageBounds(q.Page, q.Limit)
	return &PaymentList{
		Items: pageOf(rows, page, limit),
		Page:  models.NewPage(page, limit, int64(len(rows))),
	}, nil
}

// PendingTrips lists the latest confirmed reservations not yet travelled
func (s *FinanceService) PendingTrips(ctx context.Context) ([]models.PendingTrip, error) {
	reservations, err := s.store.ListReservations(ctx, storage.ReservationFilter{
		Statuses: []models.ReservationStatus{models.ReservationConfirmed},
		Limit:    pendingTripsLimit,
	})
	if err != nil {
		return nil, internal("pending trips", err)
	}

	items := make([]models.PendingTrip, 0, len(reservations))
	for _, r := range reservations {
		item := models.PendingTrip{
			ReservationID: r.ID,
			Client:        nameOrEmpty(r.Client),
			Amount:        r.TotalAmount,
		}
		if r.Trip != nil {
			item.Trip = r.Trip.Route()
			item.Driver = nameOrEmpty(r.Trip.Driver)
			start := r.Trip.StartAt
			item.TripDate = &start
		}
		items = append(items, item)
	}
	return items, nil
}

// periodRange resolves the query to a half-open window in local time.
// Unknown periods and incomplete custom ranges fall back to the current month.
func (s *FinanceService) periodRange(q FinanceQuery) (string, time.Time, time.Time, error) {
	now := s.now()
	y, m, loc := now.Year(), now.Month(), now.Location()

	switch q.Period {
	case PeriodQuarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, first, 1, 0, 0, 0, 0, loc)
		return PeriodQuarter, start, start.AddDate(0, 3, 0), nil
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return PeriodYear, start, start.AddDate(1, 0, 0), nil
	case PeriodCustom:
		if q.From != "" && q.To != "" {
			start, err := parseDate(q.From, loc)
			if err != nil {
				return "", time.Time{}, time.Time{}, invalid("invalid 'from' date")
			}
			end, err := parseDate(q.To, loc)
			if err != nil {
				return "", time.Time{}, time.Time{}, invalid("invalid 'to' date")
			}
			if !end.After(start) {
				return "", time.Time{}, time.Time{}, invalid("'to' must be after 'from'")
			}
			return PeriodCustom, start, end, nil
		}
	}
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return PeriodMonth, start, start.AddDate(0, 1, 0), nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func paymentRow(p *models.Payment) models.FinancePayment {
	row := models.FinancePayment{
		Reference: p.Reference,
		Date:      p.CreatedAt,
		Driver:    "Chauffeur",
		Client:    "Client",
		Method:    string(p.Method),
		Phone:     p.Details.PhoneNumber,
		Status:    "pending",
	}
	if p.Status == models.PaymentSuccess {
		row.Status = "success"
	}

	total := p.Amount
	if r := p.Reservation; r != nil {
		if r.TotalAmount > 0 {
			total = r.TotalAmount
		}
		if name := nameOrEmpty(r.Client); name != "" {
			row.Client = name
		}
		if r.Trip != nil {
			row.Trip = r.Trip.Route()
			if name := nameOrEmpty(r.Trip.Driver); name != "" {
				row.Driver = name
			}
		}
	}
	row.DriverAvatar = models.Initials(row.Driver, "CH")
	row.TotalPrice = total
	row.Commission = commission(total)
	row.AmountPaid = driverShare(total)
	return row
}

func amounts(list []*models.Reservation) []float64 {
	out := make([]float64, len(list))
	for i, r := range list {
		out[i] = r.TotalAmount
	}
	return out
}
