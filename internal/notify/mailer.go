// Package notify e-mails brokers about new leads.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/tork-crm/tork-api/internal/config"
	"gopkg.in/gomail.v2"
)

// NewLead is the content of a new-lead notification
type NewLead struct {
	ContactName   string
	Phone         string
	Email         string
	InsuranceType string
	Title         string
	DealID        string
}

// Notifier informs brokers about incoming leads
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead NewLead) error
}

// NewNotifier returns an SMTP notifier when mail is enabled and has recipients
func NewNotifier(cfg *config.MailConfig) Notifier {
	if !cfg.Enabled || len(cfg.NotifyTo) == 0 {
		return NoopNotifier{}
	}
	return NewSMTPNotifier(cfg)
}

var newLeadTemplate = template.Must(template.New("new-lead").Parse(`<h2>Novo lead no Tork CRM</h2>
<p><strong>{{.Title}}</strong></p>
<ul>
  <li>Nome: {{.ContactName}}</li>
  <li>Telefone: {{.Phone}}</li>
  {{if .Email}}<li>E-mail: {{.Email}}</li>{{end}}
  <li>Tipo de seguro: {{.InsuranceType}}</li>
</ul>
<p>Negócio: {{.DealID}}</p>
`))

// SMTPNotifier sends HTML mail through an SMTP relay
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

func NewSMTPNotifier(cfg *config.MailConfig) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		to:     cfg.NotifyTo,
	}
}

// NotifyNewLead renders and sends the notification. The SMTP dial is not
// context-aware; ctx is only checked before sending.
func (s *SMTPNotifier) NotifyNewLead(ctx context.Context, lead NewLead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.buildMessage(lead)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send new lead e-mail: %w", err)
	}
	return nil
}

func (s *SMTPNotifier) buildMessage(lead NewLead) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := newLeadTemplate.Execute(&body, lead); err != nil {
		return nil, fmt.Errorf("failed to render new lead e-mail: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", fmt.Sprintf("Novo lead: %s", lead.Title))
	m.SetBody("text/html", body.String())
	return m, nil
}

// NoopNotifier is used when mail is disabled
type NoopNotifier struct{}

func (NoopNotifier) NotifyNewLead(context.Context, NewLead) error { return nil }
