package notify

import (
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// BookingNotifier emails a confirmation to the patient and a copy to clinic staff.
type BookingNotifier struct {
	email      EmailSender
	clinicName string
	staff      []string
	logger     *logging.Logger
}

type BookingOption func(*BookingNotifier)

// WithStaffRecipients copies every confirmation to the given addresses.
func WithStaffRecipients(addrs ...string) BookingOption {
	return func(n *BookingNotifier) {
		for _, a := range addrs {
			if a = strings.TrimSpace(a); a != "" {
				n.staff = append(n.staff, a)
			}
		}
	}
}

func WithClinicName(name string) BookingOption {
	return func(n *BookingNotifier) {
		if name != "" {
			n.clinicName = name
		}
	}
}

func WithNotifierLogger(l *logging.Logger) BookingOption {
	return func(n *BookingNotifier) {
		if l != nil {
			n.logger = l
		}
	}
}

func NewBookingNotifier(email EmailSender, opts ...BookingOption) *BookingNotifier {
	if email == nil {
		panic("notify: email sender cannot be nil")
	}
	n := &BookingNotifier{
		email:      email,
		clinicName: defaultFromName,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var (
	patientText = template.Must(template.New("patient").Option("missingkey=error").Parse(
		`Hi {{.Booking.PatientName}},

Your appointment with {{.Booking.ProviderName}} is confirmed for {{.Booking.Label}}.
{{with .Booking.Complaint}}Reason for visit: {{.}}
{{end}}Confirmation number: {{.Booking.VisitID}}

If you need to change this appointment, reply to this email or call the clinic.

- {{.Clinic}}`))

	patientHTML = htmltemplate.Must(htmltemplate.New("patient").Option("missingkey=error").Parse(
		`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Your appointment is confirmed</h2>
<p>Hi <strong>{{.Booking.PatientName}}</strong>, you're booked with <strong>{{.Booking.ProviderName}}</strong>.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px;"><strong>When:</strong></td><td style="padding: 8px;">{{.Booking.Label}}</td></tr>
  {{with .Booking.Complaint}}<tr><td style="padding: 8px;"><strong>Reason:</strong></td><td style="padding: 8px;">{{.}}</td></tr>{{end}}
  <tr><td style="padding: 8px;"><strong>Confirmation:</strong></td><td style="padding: 8px;">{{.Booking.VisitID}}</td></tr>
</table>
<p style="color: #6b7280; font-size: 12px;">- {{.Clinic}}</p>
</div>`))

	staffText = template.Must(template.New("staff").Option("missingkey=error").Parse(
		`New appointment booked through intake.

Patient: {{.Booking.PatientName}} ({{.Booking.PatientID}})
Provider: {{.Booking.ProviderName}}
When: {{.Booking.Label}}
Reason: {{.Booking.Complaint}}
Visit: {{.Booking.VisitID}}
Profile changes logged: {{.Booking.Changes}}`))
)

type emailData struct {
	Booking intake.Booking
	Clinic  string
}

// BookingConfirmed sends the patient confirmation when an email is on file and
// the staff copy when recipients are configured. Every recipient is attempted.
func (n *BookingNotifier) BookingConfirmed(ctx context.Context, b intake.Booking) error {
	data := emailData{Booking: b, Clinic: n.clinicName}
	var errs []error

	if b.Email != "" {
		msg, err := patientMessage(b, data)
		if err != nil {
			return fmt.Errorf("notify: render confirmation: %w", err)
		}
		if err := n.email.Send(ctx, msg); err != nil {
			n.logger.Error("notify: failed to send confirmation", "error", err, "visit_id", b.VisitID)
			errs = append(errs, err)
		} else {
			n.logger.Info("notify: confirmation sent", "visit_id", b.VisitID, "patient_id", b.PatientID)
		}
	}

	if len(n.staff) > 0 {
		var body strings.Builder
		if err := staffText.Execute(&body, data); err != nil {
			return fmt.Errorf("notify: render staff copy: %w", err)
		}
		subject := fmt.Sprintf("New booking - %s with %s", b.PatientName, b.ProviderName)
		for _, to := range n.staff {
			if err := n.email.Send(ctx, EmailMessage{To: to, Subject: subject, Body: body.String()}); err != nil {
				n.logger.Error("notify: failed to send staff copy", "error", err, "to", to)
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func patientMessage(b intake.Booking, data emailData) (EmailMessage, error) {
	var text, html strings.Builder
	if err := patientText.Execute(&text, data); err != nil {
		return EmailMessage{}, err
	}
	if err := patientHTML.Execute(&html, data); err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      b.Email,
		ToName:  b.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed: %s", b.Label),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

var _ intake.Notifier = (*BookingNotifier)(nil)
