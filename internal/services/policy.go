package services

import "github.com/yoonbi/yoonbi-backend/internal/models"

// Caller is the authenticated user a request runs as
type Caller struct {
	ID   string
	Role models.Role
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

func (c Caller) IsClient() bool { return c.Role == models.RoleClient }

func (c Caller) IsDriver() bool { return c.Role == models.RoleDriver }

// ownsTrip is true for the driver who published the trip
func (c Caller) ownsTrip(t *models.Trip) bool {
	return c.IsDriver() && t != nil && t.DriverID == c.ID
}

func (c Caller) canManageTrip(t *models.Trip) bool {
	return c.IsAdmin() || c.ownsTrip(t)
}

// canSeePayment allows the paying client, the trip's driver and admins
func (c Caller) canSeePayment(p *models.Payment) bool {
	if c.IsAdmin() {
		return true
	}
	r := p.Reservation
	if r == nil {
		return false
	}
	return r.ClientID == c.ID || c.ownsTrip(r.Trip)
}
