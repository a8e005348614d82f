package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yoonbi/yoonbi-backend/internal/models"
)

// MemoryStore holds all data in memory. A single mutex serialises every
// operation so multi-row updates are as atomic as the database transactions.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string]*models.User
	trips        map[string]*models.Trip
	reservations map[string]*models.Reservation
	payments     map[string]*models.Payment
	evaluations  map[string]*models.Evaluation
	reports      map[string]*models.Report

	// insertion order, used to break ties between equal timestamps
	seq   int64
	order map[string]int64

	now func() time.Time
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*models.User),
		trips:        make(map[string]*models.Trip),
		reservations: make(map[string]*models.Reservation),
		payments:     make(map[string]*models.Payment),
		evaluations:  make(map[string]*models.Evaluation),
		reports:      make(map[string]*models.Report),
		order:        make(map[string]int64),
		now:          time.Now,
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) stamp(id string, created, updated *time.Time) {
	now := m.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
	m.seq++
	m.order[id] = m.seq
}

// newestFirst sorts by timestamp descending, latest insert first on ties.
func newestFirst[T any](items []T, at func(T) time.Time, id func(T) string, order map[string]int64) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := at(items[i]), at(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return order[id(items[i])] > order[id(items[j])]
	})
}

func within(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func contains[S comparable](set []S, v S) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Copies handed out are detached from the maps and carry their associations,
// like the preloaded rows of the database store.

func (m *MemoryStore) userCopy(id string) *models.User {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (m *MemoryStore) tripCopy(id string, withPositions bool) *models.Trip {
	t, ok := m.trips[id]
	if !ok {
		return nil
	}
	cp := *t
	cp.Driver = m.userCopy(t.DriverID)
	cp.Positions = nil
	if withPositions {
		cp.Positions = append([]models.Position{}, t.Positions...)
	}
	return &cp
}

func (m *MemoryStore) reservationCopy(id string) *models.Reservation {
	r, ok := m.reservations[id]
	if !ok {
		return nil
	}
	cp := *r
	cp.Trip = m.tripCopy(r.TripID, false)
	cp.Client = m.userCopy(r.ClientID)
	return &cp
}

func (m *MemoryStore) paymentCopy(p *models.Payment) *models.Payment {
	cp := *p
	cp.Reservation = m.reservationCopy(p.ReservationID)
	return &cp
}

func (m *MemoryStore) reportCopy(r *models.Report) *models.Report {
	cp := *r
	cp.Trip = m.tripCopy(r.TripID, false)
	cp.Reporter = m.userCopy(r.ReporterID)
	if r.ReservationID != nil {
		if res, ok := m.reservations[*r.ReservationID]; ok {
			rc := *res
			cp.Reservation = &rc
		}
	}
	if r.ClientID != nil {
		cp.Client = m.userCopy(*r.ClientID)
	}
	if r.DriverID != nil {
		cp.Driver = m.userCopy(*r.DriverID)
	}
	return &cp
}

// User operations

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Normalize()
	if _, exists := m.users[u.ID]; exists {
		return ErrDuplicate
	}
	for _, other := range m.users {
		if sameContact(other, u) {
			return ErrDuplicate
		}
	}
	m.stamp(u.ID, &u.CreatedAt, &u.UpdatedAt)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u := m.userCopy(id); u != nil {
		return u, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) findUser(match func(*models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, u := range m.users {
		if match(u) {
			return m.userCopy(id), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.findUser(func(u *models.User) bool { return u.Email == email })
}

func (m *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrNotFound
	}
	return m.findUser(func(u *models.User) bool { return u.Phone == phone })
}

func (m *MemoryStore) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	return m.findUser(func(u *models.User) bool { return u.ResetTokenHash == tokenHash })
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && sameContact(other, u) {
			return ErrDuplicate
		}
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = m.now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// sameContact mirrors the unique indexes on email and non-empty phone
func sameContact(a, b *models.User) bool {
	return a.Email == b.Email || (a.Phone != "" && a.Phone == strings.TrimSpace(b.Phone))
}

func (m *MemoryStore) filterUsers(f UserFilter) []*models.User {
	var out []*models.User
	for id, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.ValidationStatus != "" && u.ValidationStatus != f.ValidationStatus {
			continue
		}
		out = append(out, m.userCopy(id))
	}
	return out
}

func (m *MemoryStore) ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := m.filterUsers(f)
	newestFirst(users, func(u *models.User) time.Time { return u.CreatedAt },
		func(u *models.User) string { return u.ID }, m.order)
	return users, nil
}

func (m *MemoryStore) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.filterUsers(f))), nil
}

func (m *MemoryStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, u := range m.users {
		if u.ResetTokenHash != "" && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.Before(now) {
			u.ResetTokenHash = ""
			u.ResetTokenExpiry = nil
			n++
		}
	}
	return n, nil
}

// Trip operations

func (m *MemoryStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TripAvailable
	}
	if _, ok := m.users[t.DriverID]; !ok {
		return ErrNotFound
	}
	if t.SeatsAvailable < 0 || t.SeatsAvailable > t.SeatsTotal {
		return ErrConflict
	}
	m.stamp(t.ID, &t.CreatedAt, &t.UpdatedAt)
	cp := *t
	cp.Driver = nil
	cp.Positions = nil
	m.trips[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t := m.tripCopy(id, true); t != nil {
		return t, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) filterTrips(f TripFilter) []*models.Trip {
	var out []*models.Trip
	for id, t := range m.trips {
		if f.DriverID != "" && t.DriverID != f.DriverID {
			continue
		}
		if !contains(f.Statuses, t.Status) {
			continue
		}
		if f.MinSeats > 0 && t.SeatsAvailable < f.MinSeats {
			continue
		}
		if !within(t.StartAt, f.StartFrom, f.StartTo) {
			continue
		}
		out = append(out, m.tripCopy(id, false))
	}
	return out
}

func (m *MemoryStore) ListTrips(ctx context.Context, f TripFilter) ([]*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trips := m.filterTrips(f)
	sort.SliceStable(trips, func(i, j int) bool {
		if f.Latest {
			return trips[i].StartAt.After(trips[j].StartAt)
		}
		return trips[i].StartAt.Before(trips[j].StartAt)
	})
	if f.Limit > 0 && len(trips) > f.Limit {
		trips = trips[:f.Limit]
	}
	return trips, nil
}

func (m *MemoryStore) CountTrips(ctx context.Context, f TripFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.filterTrips(f))), nil
}

func (m *MemoryStore) StartTrip(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TripAvailable {
		return nil, ErrConflict
	}
	t.Status = models.TripInProgress
	t.UpdatedAt = m.now()
	return m.tripCopy(id, true), nil
}

func (m *MemoryStore) AddPosition(ctx context.Context, tripID string, p models.Position) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TripInProgress {
		return nil, ErrConflict
	}
	if n := len(t.Positions); n > 0 {
		t.Distance += t.Positions[n-1].DistanceKm(p)
	}
	p.ID = uint(len(t.Positions) + 1)
	p.TripID = tripID
	t.Positions = append(t.Positions, p)
	t.UpdatedAt = m.now()
	return m.tripCopy(tripID, true), nil
}

func (m *MemoryStore) CompleteTrip(ctx context.Context, id string, at time.Time) (*models.Trip, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	if t.Status != models.TripInProgress {
		return nil, 0, ErrConflict
	}
	now := m.now()
	t.Status = models.TripCompleted
	t.EndAt = &at
	t.UpdatedAt = now

	var completed int64
	for _, r := range m.reservations {
		if r.TripID == id && r.Status == models.ReservationConfirmed {
			r.Status = models.ReservationCompleted
			r.UpdatedAt = now
			completed++
		}
	}
	return m.tripCopy(id, true), completed, nil
}

func (m *MemoryStore) tripHasReservations(id string) bool {
	for _, r := range m.reservations {
		if r.TripID == id {
			return true
		}
	}
	return false
}

func (m *MemoryStore) tripHasReports(id string) bool {
	for _, r := range m.reports {
		if r.TripID == id {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CancelTrip(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TripAvailable || m.tripHasReservations(id) {
		return nil, ErrConflict
	}
	t.Status = models.TripCancelled
	t.UpdatedAt = m.now()
	return m.tripCopy(id, true), nil
}

func (m *MemoryStore) DeleteTrip(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != models.TripAvailable || m.tripHasReservations(id) || m.tripHasReports(id) {
		return ErrConflict
	}
	delete(m.trips, id)
	delete(m.order, id)
	return nil
}

// Reservation operations

func (m *MemoryStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[r.TripID]
	if !ok {
		return ErrNotFound
	}
	if t.Status != models.TripAvailable {
		return ErrTripUnavailable
	}
	if t.SeatsAvailable < r.Seats {
		return &SeatsError{Available: t.SeatsAvailable}
	}
	if _, ok := m.users[r.ClientID]; !ok {
		return ErrNotFound
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.ReservationPending
	}
	t.SeatsAvailable -= r.Seats
	t.UpdatedAt = m.now()

	m.stamp(r.ID, &r.CreatedAt, &r.UpdatedAt)
	cp := *r
	cp.Trip = nil
	cp.Client = nil
	m.reservations[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r := m.reservationCopy(id); r != nil {
		return r, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) filterReservations(f ReservationFilter) []*models.Reservation {
	var out []*models.Reservation
	for id, r := range m.reservations {
		if f.ClientID != "" && r.ClientID != f.ClientID {
			continue
		}
		if f.TripID != "" && r.TripID != f.TripID {
			continue
		}
		if !contains(f.Statuses, r.Status) {
			continue
		}
		if f.CreatedUntil != nil && r.CreatedAt.After(*f.CreatedUntil) {
			continue
		}
		if !within(r.UpdatedAt, f.UpdatedFrom, f.UpdatedTo) {
			continue
		}
		if f.ReminderPending && r.ReminderSentAt != nil {
			continue
		}
		if f.TripStartFrom != nil || f.TripStartTo != nil {
			t, ok := m.trips[r.TripID]
			if !ok || !within(t.StartAt, f.TripStartFrom, f.TripStartTo) {
				continue
			}
		}
		out = append(out, m.reservationCopy(id))
	}
	return out
}

func (m *MemoryStore) ListReservations(ctx context.Context, f ReservationFilter) ([]*models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.filterReservations(f)
	newestFirst(out, func(r *models.Reservation) time.Time { return r.CreatedAt },
		func(r *models.Reservation) string { return r.ID }, m.order)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CountReservations(ctx context.Context, f ReservationFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.filterReservations(f))), nil
}

func (m *MemoryStore) UpdateReservationStatus(ctx context.Context, id string, from, to models.ReservationStatus, reason string, at time.Time) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != from {
		return nil, ErrConflict
	}
	r.Status = to
	r.UpdatedAt = m.now()
	if to == models.ReservationCancelled {
		r.CancelledAt = &at
		r.CancelReason = reason
		if t, ok := m.trips[r.TripID]; ok {
			t.SeatsAvailable += r.Seats
			if t.SeatsAvailable > t.SeatsTotal {
				t.SeatsAvailable = t.SeatsTotal
			}
			t.UpdatedAt = r.UpdatedAt
		}
	}
	return m.reservationCopy(id), nil
}

func (m *MemoryStore) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return ErrNotFound
	}
	r.ReminderSentAt = &at
	return nil
}

// Payment operations

func (m *MemoryStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.payments {
		if other.ReservationID == p.ReservationID || other.Reference == p.Reference {
			return ErrDuplicate
		}
	}
	r, ok := m.reservations[p.ReservationID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.ReservationPending {
		return ErrConflict
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	m.stamp(p.ID, &p.CreatedAt, &p.UpdatedAt)
	r.Status = models.ReservationConfirmed
	r.UpdatedAt = p.UpdatedAt

	cp := *p
	cp.Reservation = nil
	m.payments[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPaymentByReference(ctx context.Context, ref string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.payments {
		if p.Reference == ref {
			return m.paymentCopy(p), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetPaymentByReservation(ctx context.Context, reservationID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.payments {
		if p.ReservationID == reservationID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) filterPayments(f PaymentFilter) []*models.Payment {
	var out []*models.Payment
	for _, p := range m.payments {
		if !contains(f.Statuses, p.Status) || !within(p.CreatedAt, f.CreatedFrom, f.CreatedTo) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *MemoryStore) ListPayments(ctx context.Context, f PaymentFilter) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Payment
	for _, p := range m.filterPayments(f) {
		out = append(out, m.paymentCopy(p))
	}
	newestFirst(out, func(p *models.Payment) time.Time { return p.CreatedAt },
		func(p *models.Payment) string { return p.ID }, m.order)
	return out, nil
}

func (m *MemoryStore) SumPayments(ctx context.Context, f PaymentFilter) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, p := range m.filterPayments(f) {
		total += p.Amount
	}
	return total, nil
}

// Evaluation operations

func (m *MemoryStore) CreateEvaluation(ctx context.Context, e *models.Evaluation) (models.DriverRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, ok := m.users[e.DriverID]
	if !ok {
		return models.DriverRating{}, ErrNotFound
	}
	for _, other := range m.evaluations {
		if other.ReservationID == e.ReservationID {
			return models.DriverRating{}, ErrDuplicate
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.stamp(e.ID, &e.CreatedAt, &e.UpdatedAt)
	cp := *e
	cp.Client = nil
	m.evaluations[e.ID] = &cp

	var sum, count int
	for _, ev := range m.evaluations {
		if ev.DriverID == e.DriverID {
			sum += ev.Rating
			count++
		}
	}
	rating := models.DriverRating{
		Average: models.RoundRating(float64(sum) / float64(count)),
		Count:   count,
	}
	driver.Rating = rating.Average
	driver.CompletedTrips = rating.Count
	driver.UpdatedAt = m.now()
	return rating, nil
}

func (m *MemoryStore) GetEvaluationByReservation(ctx context.Context, reservationID string) (*models.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.evaluations {
		if e.ReservationID == reservationID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListEvaluations(ctx context.Context, driverID string, limit int) ([]*models.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Evaluation
	for _, e := range m.evaluations {
		if e.DriverID == driverID {
			cp := *e
			cp.Client = m.userCopy(e.ClientID)
			out = append(out, &cp)
		}
	}
	newestFirst(out, func(e *models.Evaluation) time.Time { return e.CreatedAt },
		func(e *models.Evaluation) string { return e.ID }, m.order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Report operations

func (m *MemoryStore) CreateReport(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trips[r.TripID]; !ok {
		return ErrNotFound
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.ReportPending
	}
	m.stamp(r.ID, &r.CreatedAt, &r.UpdatedAt)
	cp := *r
	cp.Trip, cp.Reservation, cp.Reporter, cp.Client, cp.Driver = nil, nil, nil, nil, nil
	m.reports[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.reportCopy(r), nil
}

func (m *MemoryStore) ListReports(ctx context.Context, f ReportFilter) ([]*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Report
	for _, r := range m.reports {
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.ReporterID != "" && r.ReporterID != f.ReporterID {
			continue
		}
		out = append(out, m.reportCopy(r))
	}
	newestFirst(out, func(r *models.Report) time.Time { return r.CreatedAt },
		func(r *models.Report) string { return r.ID }, m.order)
	return out, nil
}

func (m *MemoryStore) DecideReport(ctx context.Context, id string, status models.ReportStatus, handlerID, response string, at time.Time) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Status = status
	r.HandledByID = &handlerID
	r.HandledAt = &at
	if response != "" {
		r.SupportResponse = response
	}
	r.UpdatedAt = m.now()
	return m.reportCopy(r), nil
}
