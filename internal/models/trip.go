package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const earthRadiusKm = 6371.0

// Trip is a ride offered by a driver. SeatsAvailable never leaves
// [0, SeatsTotal]; the database enforces it with a CHECK constraint.
type Trip struct {
	ID             string     `json:"id" gorm:"type:uuid;primaryKey"`
	DriverID       string     `json:"chauffeurId" gorm:"type:uuid;not null;index"`
	Driver         *User      `json:"chauffeur,omitempty" gorm:"foreignKey:DriverID;constraint:OnDelete:RESTRICT"`
	Origin         string     `json:"depart" gorm:"not null;index:idx_trip_route"`
	Destination    string     `json:"arrivee" gorm:"not null;index:idx_trip_route"`
	StartAt        time.Time  `json:"dateDebut" gorm:"not null;index"`
	EndAt          *time.Time `json:"dateFin,omitempty"`
	PricePerSeat   float64    `json:"prixParPlace" gorm:"not null;check:chk_trip_price,price_per_seat >= 0"`
	SeatsAvailable int        `json:"nbPlacesDisponibles" gorm:"not null;check:chk_trip_seats,seats_available >= 0 AND seats_available <= seats_total"`
	SeatsTotal     int        `json:"nbPlacesTotal" gorm:"not null;check:chk_trip_total,seats_total >= 1"`
	Status         TripStatus `json:"statut" gorm:"type:varchar(16);not null;index"`
	Distance       float64    `json:"distanceParcourue"`
	Positions      []Position `json:"positions" gorm:"foreignKey:TripID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Position is one GPS sample of a trip in progress
type Position struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	TripID     string    `json:"-" gorm:"type:uuid;not null;index"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"horodatage"`
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Origin = strings.TrimSpace(t.Origin)
	t.Destination = strings.TrimSpace(t.Destination)
	if t.Status == "" {
		t.Status = TripAvailable
	}
	return nil
}

func (t *Trip) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(t.Origin) == "" {
		v.add("departure is required")
	}
	if strings.TrimSpace(t.Destination) == "" {
		v.add("destination is required")
	}
	if t.StartAt.IsZero() {
		v.add("start date is required")
	}
	if t.PricePerSeat < 0 || math.IsNaN(t.PricePerSeat) || math.IsInf(t.PricePerSeat, 0) {
		v.add("price per seat must be a positive number")
	}
	if t.SeatsTotal < 1 {
		v.add("at least one seat is required")
	}
	if t.SeatsAvailable < 0 || t.SeatsAvailable > t.SeatsTotal {
		v.add("available seats must be between 0 and the total")
	}
	return v.orNil()
}

// Bookable reports whether a client may currently reserve n seats.
func (t *Trip) Bookable(n int) bool {
	return t.Status == TripAvailable && n >= 1 && t.SeatsAvailable >= n
}

func (t *Trip) Route() string {
	return t.Origin + " → " + t.Destination
}

func (p Position) Validate() error {
	v := &ValidationError{}
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || p.Latitude < -90 || p.Latitude > 90 {
		v.add("latitude must be between -90 and 90")
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < -180 || p.Longitude > 180 {
		v.add("longitude must be between -180 and 180")
	}
	return v.orNil()
}

// DistanceKm is the great-circle distance between two samples
func (p Position) DistanceKm(q Position) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := q.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (q.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
