package models

import (
	"strings"
	"time"
)

// Statistics is the admin dashboard payload
type Statistics struct {
	Users struct {
		Total          int64 `json:"total"`
		Clients        int64 `json:"clients"`
		Drivers        int64 `json:"chauffeurs"`
		PendingDrivers int64 `json:"chauffeursEnAttente"`
	} `json:"utilisateurs"`
	Trips struct {
		Total      int64 `json:"total"`
		Available  int64 `json:"disponibles"`
		InProgress int64 `json:"enCours"`
		Completed  int64 `json:"termines"`
	} `json:"trajets"`
	Reservations struct {
		Total     int64 `json:"total"`
		Confirmed int64 `json:"confirmees"`
		Cancelled int64 `json:"annulees"`
		Completed int64 `json:"terminees"`
	} `json:"reservations"`
	Revenue float64 `json:"revenus"`
}

// FinanceStats summarises money flows over a period window
type FinanceStats struct {
	Period  string       `json:"period"`
	From    time.Time    `json:"startDate"`
	To      time.Time    `json:"endDate"`
	KPI     FinanceKPI   `json:"kpi"`
	Monthly MonthlyBlock `json:"monthly"`
}

type FinanceKPI struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	Commission        float64 `json:"commission"`
	PaidToDrivers     float64 `json:"paidToDrivers"`
	PendingValidation float64 `json:"pendingValidation"`
}

type MonthlyBlock struct {
	CompletedTrips int     `json:"completedTrips"`
	TotalTripPrice float64 `json:"totalTripPrice"`
	Commission     float64 `json:"commission"`
	NetPaid        float64 `json:"netPaid"`
}

// FinancePayment is one row of the admin payments table
type FinancePayment struct {
	Reference    string    `json:"id"`
	Date         time.Time `json:"date"`
	Driver       string    `json:"driver"`
	DriverAvatar string    `json:"driverAvatar"`
	Trip         string    `json:"trip"`
	Client       string    `json:"client"`
	TotalPrice   float64   `json:"totalPrice"`
	Commission   float64   `json:"commission"`
	AmountPaid   float64   `json:"amountPaid"`
	Method       string    `json:"paymentMethod"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
}

// PendingTrip is a confirmed reservation not yet settled with the driver
type PendingTrip struct {
	ReservationID string     `json:"id"`
	Trip          string     `json:"trip"`
	Client        string     `json:"client"`
	Driver        string     `json:"driver"`
	TripDate      *time.Time `json:"tripDate,omitempty"`
	Amount        float64    `json:"amount"`
}

// Party is a person shown in the admin report table
type Party struct {
	Name     string `json:"name"`
	Initials string `json:"initials"`
}

// ReportRow is one entry of the admin report listing
type ReportRow struct {
	ID          string       `json:"id"`
	Date        time.Time    `json:"date"`
	Type        ReportType   `json:"type"`
	TypeIcon    string       `json:"typeIcon"`
	Client      Party        `json:"client"`
	Driver      Party        `json:"chauffeur"`
	Trip        string       `json:"trajet"`
	TripDate    *time.Time   `json:"dateDu,omitempty"`
	Status      ReportStatus `json:"status"`
	Description string       `json:"description"`
	Reporter    Role         `json:"signaleParType"`
	Response    string       `json:"reponseSupport,omitempty"`
	HandledAt   *time.Time   `json:"dateTraitement,omitempty"`
}

// Initials returns up to two upper-case initials, or fallback for an empty name
func Initials(name, fallback string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(part))[0])
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return string(out)
}

// Page describes a paginated listing
type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPage always reports at least one page, as the admin console expects
func NewPage(page, limit int, total int64) Page {
	pages := 1
	if limit > 0 && total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
