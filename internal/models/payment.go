package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payment struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	ReservationID  string         `json:"reservationId" gorm:"type:uuid;uniqueIndex;not null"`
	Reservation    *Reservation   `json:"reservation,omitempty" gorm:"foreignKey:ReservationID;constraint:OnDelete:RESTRICT"`
	Amount         float64        `json:"montant" gorm:"not null"`
	Method         PaymentMethod  `json:"methode" gorm:"type:varchar(16);not null"`
	Reference      string         `json:"ref" gorm:"uniqueIndex;not null"`
	Status         PaymentStatus  `json:"statut" gorm:"type:varchar(16);not null;index"`
	Details        PaymentDetails `json:"detailsMethode" gorm:"embedded;embeddedPrefix:details_"`
	RefundedAt     *time.Time     `json:"dateRemboursement,omitempty"`
	RefundedAmount *float64       `json:"montantRembourse,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// PaymentDetails carries method-specific data, never a full card number
type PaymentDetails struct {
	PhoneNumber string `json:"numeroTelephone,omitempty"`
	LastDigits  string `json:"dernierChiffres,omitempty"`
	Operator    string `json:"operateur,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	return nil
}
