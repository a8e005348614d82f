package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultCancelReason = "client cancellation"

// Reservation holds seats on a trip for one client. TotalAmount is fixed at
// creation and never recomputed.
type Reservation struct {
	ID             string            `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID       string            `json:"clientId" gorm:"type:uuid;not null;index"`
	Client         *User             `json:"client,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	TripID         string            `json:"trajetId" gorm:"type:uuid;not null;index"`
	Trip           *Trip             `json:"trajet,omitempty" gorm:"foreignKey:TripID;constraint:OnDelete:RESTRICT"`
	Seats          int               `json:"nbPlaces" gorm:"not null;check:chk_reservation_seats,seats >= 1"`
	PickupAddress  string            `json:"adresseDepart" gorm:"not null"`
	DropoffAddress string            `json:"adresseArrivee" gorm:"not null"`
	Status         ReservationStatus `json:"etat" gorm:"type:varchar(16);not null;index"`
	TotalAmount    float64           `json:"montantTotal" gorm:"not null"`
	CancelledAt    *time.Time        `json:"dateAnnulation,omitempty"`
	CancelReason   string            `json:"motifAnnulation,omitempty"`
	ReminderSentAt *time.Time        `json:"-"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = ReservationPending
	}
	return nil
}

func (r *Reservation) Validate() error {
	v := &ValidationError{}
	if r.TripID == "" {
		v.add("trip is required")
	}
	if r.Seats < 1 {
		v.add("at least one seat must be reserved")
	}
	if strings.TrimSpace(r.PickupAddress) == "" {
		v.add("pickup address is required")
	}
	if strings.TrimSpace(r.DropoffAddress) == "" {
		v.add("drop-off address is required")
	}
	return v.orNil()
}
