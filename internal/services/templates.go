package services

import (
	"bytes"
	"log"
	"text/template"
	"time"
)

const dateLayout = "02/01/2006 15:04"

// Message bodies sent to users. Kept in French, the language of the app.
var messages = template.Must(template.New("messages").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format(dateLayout) },
}).Parse(`
{{define "reservation_created"}}Yoon-Bi: nouvelle réservation de {{.Client}} pour {{.Route}} le {{date .StartAt}} ({{.Seats}} place(s), {{.Amount}} FCFA).{{end}}
{{define "reset_code"}}Yoon-Bi: votre code de réinitialisation est {{.Code}}. Il expire dans {{.Minutes}} minutes.{{end}}
{{define "departure_reminder"}}Yoon-Bi: rappel, votre trajet {{.Route}} part le {{date .StartAt}}. Chauffeur: {{.Driver}}.{{end}}
`))

type reservationMessage struct {
	Client  string
	Route   string
	StartAt time.Time
	Seats   int
	Amount  float64
}

type resetMessage struct {
	Code    string
	Minutes int
}

// ReminderMessage feeds the departure reminder template
type ReminderMessage struct {
	Route   string
	StartAt time.Time
	Driver  string
}

// render returns the empty string when the template fails; callers skip sending.
func render(name string, data interface{}) string {
	var buf bytes.Buffer
	if err := messages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("❌ Failed to render %s message: %v", name, err)
		return ""
	}
	return buf.String()
}

// DepartureReminder renders the reminder sent to clients before departure
func DepartureReminder(m ReminderMessage) string {
	return render("departure_reminder", m)
}
