package models

import "strings"

// Role is the account type carried in tokens and on every user row
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleDriver Role = "CHAUFFEUR"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// ValidationStatus tracks admin review of a driver account
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "PENDING"
	ValidationApproved ValidationStatus = "APPROVED"
	ValidationRejected ValidationStatus = "REJECTED"
)

type TripStatus string

const (
	TripAvailable  TripStatus = "AVAILABLE"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCard        PaymentMethod = "CARD"
	MethodMobileMoney PaymentMethod = "MOBILE_MONEY"
	MethodCash        PaymentMethod = "CASH"
)

type ReportStatus string

const (
	ReportPending    ReportStatus = "PENDING"
	ReportInProgress ReportStatus = "IN_PROGRESS"
	ReportResolved   ReportStatus = "RESOLVED"
	ReportRejected   ReportStatus = "REJECTED"
)

type ReportType string

const (
	ReportDelay        ReportType = "DELAY"
	ReportCancellation ReportType = "CANCELLATION"
	ReportBehavior     ReportType = "BEHAVIOR"
	ReportVehicle      ReportType = "VEHICLE"
	ReportRouteChanged ReportType = "ROUTE_CHANGED"
	ReportSafety       ReportType = "SAFETY"
	ReportOther        ReportType = "OTHER"
)

// Transition tables. A missing key means the state is terminal.
var (
	tripTransitions = map[TripStatus][]TripStatus{
		TripAvailable:  {TripInProgress, TripCancelled},
		TripInProgress: {TripCompleted},
	}

	reservationTransitions = map[ReservationStatus][]ReservationStatus{
		ReservationPending:   {ReservationConfirmed, ReservationCancelled},
		ReservationConfirmed: {ReservationCompleted, ReservationCancelled},
	}

	reportTransitions = map[ReportStatus][]ReportStatus{
		ReportPending:    {ReportInProgress, ReportResolved, ReportRejected},
		ReportInProgress: {ReportResolved, ReportRejected},
		ReportResolved:   {ReportResolved, ReportRejected},
		ReportRejected:   {ReportResolved, ReportRejected},
	}

	validationTransitions = map[ValidationStatus][]ValidationStatus{
		ValidationPending:  {ValidationApproved, ValidationRejected},
		ValidationApproved: {ValidationRejected},
		ValidationRejected: {ValidationApproved},
	}
)

func canTransition[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s TripStatus) CanTransition(to TripStatus) bool {
	return canTransition(tripTransitions, s, to)
}

func (s ReservationStatus) CanTransition(to ReservationStatus) bool {
	return canTransition(reservationTransitions, s, to)
}

func (s ReportStatus) CanTransition(to ReportStatus) bool {
	return canTransition(reportTransitions, s, to)
}

func (s ValidationStatus) CanTransition(to ValidationStatus) bool {
	return canTransition(validationTransitions, s, to)
}

// Terminal reports whether no further status change is possible
func (s ReservationStatus) Terminal() bool {
	_, ok := reservationTransitions[s]
	return !ok
}

// Inputs from older clients still send the French codes; they are folded
// into the canonical values here.
var (
	reservationTargets = map[string]ReservationStatus{
		"VALIDATED": ReservationConfirmed,
		"VALIDEE":   ReservationConfirmed,
		"CONFIRMED": ReservationConfirmed,
		"CONFIRMEE": ReservationConfirmed,
		"CANCELLED": ReservationCancelled,
		"ANNULEE":   ReservationCancelled,
		"COMPLETED": ReservationCompleted,
		"TERMINEE":  ReservationCompleted,
	}

	paymentMethods = map[string]PaymentMethod{
		"CARD":           MethodCard,
		"CARTE_BANCAIRE": MethodCard,
		"MOBILE_MONEY":   MethodMobileMoney,
		"CASH":           MethodCash,
		"ESPECES":        MethodCash,
	}

	reportTypes = map[string]ReportType{
		"DELAY":          ReportDelay,
		"RETARD":         ReportDelay,
		"CANCELLATION":   ReportCancellation,
		"ANNULATION":     ReportCancellation,
		"BEHAVIOR":       ReportBehavior,
		"COMPORTEMENT":   ReportBehavior,
		"VEHICLE":        ReportVehicle,
		"VEHICULE":       ReportVehicle,
		"ROUTE_CHANGED":  ReportRouteChanged,
		"TRAJET_MODIFIE": ReportRouteChanged,
		"SAFETY":         ReportSafety,
		"SECURITE":       ReportSafety,
		"OTHER":          ReportOther,
		"AUTRE":          ReportOther,
	}

	validationDecisions = map[string]ValidationStatus{
		"APPROVED": ValidationApproved,
		"VALIDE":   ValidationApproved,
		"REJECTED": ValidationRejected,
		"REJETE":   ValidationRejected,
	}

	reportStatuses = map[string]ReportStatus{
		"PENDING":     ReportPending,
		"IN_PROGRESS": ReportInProgress,
		"RESOLVED":    ReportResolved,
		"REJECTED":    ReportRejected,
	}

	reportIcons = map[ReportType]string{
		ReportDelay:        "⏰",
		ReportCancellation: "🚫",
		ReportBehavior:     "⚠️",
		ReportVehicle:      "🚗",
		ReportRouteChanged: "🔄",
		ReportSafety:       "🛡️",
		ReportOther:        "📝",
	}
)

func lookup[V any](table map[string]V, raw string) (V, bool) {
	v, ok := table[strings.ToUpper(strings.TrimSpace(raw))]
	return v, ok
}

// ParseReservationTarget maps the status-update allow-list to a canonical status
func ParseReservationTarget(raw string) (ReservationStatus, bool) {
	return lookup(reservationTargets, raw)
}

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	return lookup(paymentMethods, raw)
}

func ParseReportType(raw string) (ReportType, bool) {
	return lookup(reportTypes, raw)
}

func ParseReportStatus(raw string) (ReportStatus, bool) {
	return lookup(reportStatuses, raw)
}

func ParseValidationDecision(raw string) (ValidationStatus, bool) {
	return lookup(validationDecisions, raw)
}

// Icon returns the emoji shown next to a report in the admin console
func (t ReportType) Icon() string {
	if icon, ok := reportIcons[t]; ok {
		return icon
	}
	return reportIcons[ReportOther]
}
