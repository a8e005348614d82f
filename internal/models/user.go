package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultPhoto = "default-avatar.png"

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phonePattern = regexp.MustCompile(`^[0-9+\s\-()]+$`)
)

// User is a client, a driver or an admin. Driver-only fields stay empty for
// the other roles.
type User struct {
	ID        string `json:"id" gorm:"type:uuid;primaryKey"`
	FirstName string `json:"prenom" gorm:"not null"`
	LastName  string `json:"nom" gorm:"not null"`
	Email     string `json:"email,omitempty" gorm:"uniqueIndex;not null"`
	Phone     string `json:"tel" gorm:"uniqueIndex:idx_users_phone_unique,where:phone <> '';not null"`
	Photo     string `json:"photo"`
	Role      Role   `json:"typeUtilisateur" gorm:"type:varchar(16);not null;index"`
	Active    bool   `json:"actif" gorm:"not null"`

	PasswordHash     string     `json:"-" gorm:"not null"`
	ResetTokenHash   string     `json:"-" gorm:"index"`
	ResetTokenExpiry *time.Time `json:"-"`

	// Driver profile
	LicenseNumber    string           `json:"numPermis,omitempty"`
	LicenseExpiry    *time.Time       `json:"dateValiditePermis,omitempty"`
	LicenseCirExpiry *time.Time       `json:"dateValiditePermisCir,omitempty"`
	Vehicle          Vehicle          `json:"vehicule" gorm:"embedded;embeddedPrefix:vehicle_"`
	ValidationStatus ValidationStatus `json:"statutValidation" gorm:"type:varchar(16);index"`
	Rating           float64          `json:"noteEval"`
	CompletedTrips   int              `json:"nbCourses"`
	Available        bool             `json:"disponibilite" gorm:"not null"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Vehicle struct {
	Type      string `json:"typeVehicule,omitempty"`
	Class     string `json:"typeClasse,omitempty"`
	Color     string `json:"couleur,omitempty"`
	Seats     int    `json:"nbPlaces,omitempty"`
	Plate     string `json:"immatriculation,omitempty"`
	Make      string `json:"marque,omitempty"`
	Model     string `json:"modele,omitempty"`
	Insurance string `json:"assurance,omitempty"`
	Photo     string `json:"photo,omitempty"`
}

// BeforeCreate assigns the id and normalizes contact data
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Normalize()
	return nil
}

// Normalize applies the defaults a new account gets whichever store saves it.
func (u *User) Normalize() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Phone = strings.TrimSpace(u.Phone)
	u.Vehicle.Plate = strings.ToUpper(strings.TrimSpace(u.Vehicle.Plate))
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	if u.ValidationStatus == "" {
		if u.Role == RoleDriver {
			u.ValidationStatus = ValidationPending
		} else {
			u.ValidationStatus = ValidationApproved
		}
	}
}

// Validate checks field formats and the driver-specific requirements.
func (u *User) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(u.FirstName) == "" {
		v.add("first name is required")
	}
	if strings.TrimSpace(u.LastName) == "" {
		v.add("last name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(u.Email)) {
		v.add("a valid email is required")
	}
	if u.Role != RoleAdmin || u.Phone != "" {
		if !phonePattern.MatchString(strings.TrimSpace(u.Phone)) {
			v.add("a valid phone number is required")
		}
	}
	if !u.Role.Valid() {
		v.add("invalid user type")
	}
	if u.Role == RoleDriver {
		if strings.TrimSpace(u.LicenseNumber) == "" {
			v.add("license number is required for drivers")
		}
		if u.LicenseExpiry == nil {
			v.add("license validity date is required for drivers")
		}
	}
	if u.Vehicle.Seats != 0 && (u.Vehicle.Seats < 1 || u.Vehicle.Seats > 9) {
		v.add("vehicle seats must be between 1 and 9")
	}
	if u.Rating < 0 || u.Rating > 5 {
		v.add("rating must be between 0 and 5")
	}
	return v.orNil()
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CanPublish reports whether the user may offer trips
func (u *User) CanPublish() bool {
	return u.Role == RoleDriver && u.ValidationStatus == ValidationApproved && u.Active
}

// Public returns a copy safe to embed in public listings (no email).
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Email = ""
	cp.LicenseNumber = ""
	cp.LicenseExpiry = nil
	cp.LicenseCirExpiry = nil
	return &cp
}
