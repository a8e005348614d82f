package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report is an incident raised by a client or a driver about a trip
type Report struct {
	ID            string       `json:"id" gorm:"type:uuid;primaryKey"`
	Type          ReportType   `json:"type" gorm:"type:varchar(16);not null;index"`
	Status        ReportStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Description   string       `json:"description" gorm:"size:500;not null"`
	TripID        string       `json:"trajetId" gorm:"type:uuid;not null;index"`
	Trip          *Trip        `json:"trajet,omitempty" gorm:"foreignKey:TripID;constraint:OnDelete:RESTRICT"`
	ReservationID *string      `json:"reservationId,omitempty" gorm:"type:uuid;index"`
	Reservation   *Reservation `json:"reservation,omitempty" gorm:"foreignKey:ReservationID"`
	ReporterID    string       `json:"signaleParId" gorm:"type:uuid;not null;index"`
	Reporter      *User        `json:"signalePar,omitempty" gorm:"foreignKey:ReporterID"`
	ReporterRole  Role         `json:"signaleParType" gorm:"type:varchar(16);not null"`

	// Parties involved, resolved at creation from the trip and reservation
	ClientID *string `json:"clientId,omitempty" gorm:"type:uuid"`
	Client   *User   `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	DriverID *string `json:"chauffeurId,omitempty" gorm:"type:uuid"`
	Driver   *User   `json:"chauffeur,omitempty" gorm:"foreignKey:DriverID"`

	SupportResponse string     `json:"reponseSupport,omitempty"`
	HandledByID     *string    `json:"traitePar,omitempty" gorm:"type:uuid"`
	HandledAt       *time.Time `json:"dateTraitement,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = ReportPending
	}
	return nil
}

func (r *Report) Validate() error {
	v := &ValidationError{}
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		v.add("description is required")
	} else if utf8.RuneCountInString(r.Description) > MaxCommentLength {
		v.add("description cannot exceed 500 characters")
	}
	if r.TripID == "" {
		v.add("trip is required")
	}
	if r.ReporterRole != RoleClient && r.ReporterRole != RoleDriver {
		v.add("only clients and drivers can file reports")
	}
	return v.orNil()
}

// ClientName falls back to a generic label when the party is unknown
func (r *Report) ClientName() string {
	if r.Client != nil {
		return r.Client.FullName()
	}
	return "Client"
}

func (r *Report) DriverName() string {
	switch {
	case r.Driver != nil:
		return r.Driver.FullName()
	case r.Trip != nil && r.Trip.Driver != nil:
		return r.Trip.Driver.FullName()
	}
	return "Chauffeur"
}
