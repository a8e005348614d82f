package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxCommentLength = 500

type Evaluation struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	ReservationID string    `json:"reservationId" gorm:"type:uuid;uniqueIndex;not null"`
	ClientID      string    `json:"clientId" gorm:"type:uuid;not null;index"`
	Client        *User     `json:"client,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	DriverID      string    `json:"chauffeurId" gorm:"type:uuid;not null;index"`
	Rating        int       `json:"note" gorm:"not null;check:chk_evaluation_rating,rating BETWEEN 1 AND 5"`
	Comment       string    `json:"commentaire,omitempty" gorm:"size:500"`
	Criteria      Criteria  `json:"criteres" gorm:"embedded;embeddedPrefix:criteria_"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Criteria are optional sub-scores, each 1..5 when present
type Criteria struct {
	Punctuality  *int `json:"ponctualite,omitempty"`
	Driving      *int `json:"conduite,omitempty"`
	Cleanliness  *int `json:"proprete,omitempty"`
	Friendliness *int `json:"amabilite,omitempty"`
}

// DriverRating is the aggregate written back to the driver after each evaluation
type DriverRating struct {
	Average float64 `json:"noteEval"`
	Count   int     `json:"nbCourses"`
}

func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e *Evaluation) Validate() error {
	v := &ValidationError{}
	e.Comment = strings.TrimSpace(e.Comment)
	if e.Rating < 1 || e.Rating > 5 {
		v.add("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(e.Comment) > MaxCommentLength {
		v.add("comment cannot exceed 500 characters")
	}
	scores := []struct {
		name  string
		value *int
	}{
		{"punctuality", e.Criteria.Punctuality},
		{"driving", e.Criteria.Driving},
		{"cleanliness", e.Criteria.Cleanliness},
		{"friendliness", e.Criteria.Friendliness},
	}
	for _, s := range scores {
		if s.value != nil && (*s.value < 1 || *s.value > 5) {
			v.add(s.name + " must be between 1 and 5")
		}
	}
	return v.orNil()
}

// RoundRating keeps one decimal, the precision shown on driver profiles
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
