// Package notifier delivers reminder emails over SMTP.
package notifier

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"crm_assistant_backend/platform/config"
)

// Notifier sends reminder emails. A nil notifier drops every send, so the
// worker runs without SMTP configured.
type Notifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	loc      *time.Location
}

// New builds the notifier. Returns an error when SMTP_HOST is not set;
// callers treat that as "delivery disabled".
func New(cfg *config.Config, loc *time.Location) (*Notifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host not configured")
	}
	return &Notifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		loc:      loc,
	}, nil
}

// Reminder is the content of one reminder email.
type Reminder struct {
	EstablishmentName string
	Kind              string
	OccursAt          time.Time
	Comment           string
}

func kindLabel(kind string) string {
	switch kind {
	case "call":
		return "Appel"
	case "visit":
		return "Visite"
	case "mail":
		return "Email"
	default:
		return "Action"
	}
}

// SendReminder emails one due reminder.
func (n *Notifier) SendReminder(ctx context.Context, toEmail string, reminder Reminder) error {
	if n == nil {
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}

	when := reminder.OccursAt.In(n.loc).Format("02/01/2006 à 15h04")
	msg.Subject(fmt.Sprintf("Rappel : %s - %s", kindLabel(reminder.Kind), reminder.EstablishmentName))

	body := fmt.Sprintf("%s prévue le %s pour %s.", kindLabel(reminder.Kind), when, reminder.EstablishmentName)
	if reminder.Comment != "" {
		body += "\n\n" + reminder.Comment
	}
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(n.host,
		gomail.WithPort(n.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.username),
		gomail.WithPassword(n.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
