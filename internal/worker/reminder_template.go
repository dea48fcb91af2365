package worker

import (
	"fmt"
	"time"

	"github.com/osteele/liquid"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// DefaultReminderTemplate is the HTML body used when the deployment does
// not configure its own. Variables follow Liquid syntax.
const DefaultReminderTemplate = `<p>Olá {{ customer_name }},</p>
<p>O serviço <strong>{{ service_name }}</strong> ({{ price }}) vence em {{ due_date }}.</p>
<p>Entre em contato conosco para renovar.</p>`

// DefaultReminderSubject is the subject template used when none is
// configured.
const DefaultReminderSubject = `Lembrete: {{ service_name }} vence em {{ due_date }}`

// ReminderRenderer renders expiration-reminder messages from Liquid
// templates. Templates are parsed once at construction.
type ReminderRenderer struct {
	subject *liquid.Template
	body    *liquid.Template
}

// NewReminderRenderer parses the subject and body templates. Empty strings
// select the defaults.
func NewReminderRenderer(subjectTmpl, bodyTmpl string) (*ReminderRenderer, error) {
	if subjectTmpl == "" {
		subjectTmpl = DefaultReminderSubject
	}
	if bodyTmpl == "" {
		bodyTmpl = DefaultReminderTemplate
	}

	engine := liquid.NewEngine()
	subject, err := engine.ParseString(subjectTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse reminder subject template: %w", err)
	}
	body, err := engine.ParseString(bodyTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse reminder body template: %w", err)
	}
	return &ReminderRenderer{subject: subject, body: body}, nil
}

// Render produces the subject and HTML body for one reminder.
func (r *ReminderRenderer) Render(cand domain.ReminderCandidate, dueDate time.Time) (string, string, error) {
	bindings := map[string]interface{}{
		"customer_name": cand.CustomerName,
		"service_name":  cand.ServiceName,
		"price":         fmt.Sprintf("R$ %.2f", cand.ServicePrice),
		"due_date":      dueDate.Format("02/01/2006"),
	}

	subject, err := r.subject.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render reminder subject: %w", err)
	}
	body, err := r.body.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render reminder body: %w", err)
	}
	return subject, body, nil
}
