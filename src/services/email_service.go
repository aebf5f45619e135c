package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog"

	"github.com/nubecita/lacoctelera/src/models"
	"github.com/nubecita/lacoctelera/src/templates"
)

// Mailer is the mail-sending collaborator consumed by the registration
// workflow. It is an interface so tests can substitute a recorder.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, toEmail, toName, confirmationLink string) error
	NotifyPendingRequest(ctx context.Context, id models.ClientID) error
}

// EmailService sends transactional email through Mailgun.
type EmailService struct {
	mg         *mailgun.MailgunImpl
	fromEmail  string
	fromName   string
	adminEmail string
	config     *templates.EmailConfig
}

// NewEmailService creates a new email service with Mailgun configuration
func NewEmailService(domain, apiKey, fromEmail, fromName, adminEmail string) *EmailService {
	mg := mailgun.NewMailgun(domain, apiKey)
	mg.SetAPIBase(mailgun.APIBaseEU)

	config, err := templates.LoadEmailConfig()
	if err != nil {
		config = templates.DefaultEmailConfig()
	}

	return &EmailService{
		mg:         mg,
		fromEmail:  fromEmail,
		fromName:   fromName,
		adminEmail: adminEmail,
		config:     config,
	}
}

// SendConfirmationEmail mails the confirmation link to a prospective client.
func (s *EmailService) SendConfirmationEmail(ctx context.Context, toEmail, toName, confirmationLink string) error {
	displayName := toName
	if displayName == "" {
		displayName = "there"
	}

	body := fmt.Sprintf(`Hi %s,

%s

%s

%s

%s

--
%s
%s`,
		displayName,
		s.config.Confirmation.Intro,
		confirmationLink,
		s.config.Confirmation.ExpiryWarning,
		s.config.Confirmation.IgnoreText,
		s.config.Branding.Name,
		s.config.Branding.Website,
	)

	message := s.mg.NewMessage(
		fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		s.config.Subjects.Confirmation,
		body,
		toEmail,
	)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, _, err := s.mg.Send(ctxWithTimeout, message); err != nil {
		return fmt.Errorf("%w: failed to send confirmation email to %s: %v", ErrEmailClient, toEmail, err)
	}
	return nil
}

// LogMailer writes confirmation links to the log instead of sending mail.
// Used when Mailgun credentials are not configured, so a development
// install can still walk through the whole registration flow.
type LogMailer struct {
	Log zerolog.Logger
}

func (m *LogMailer) SendConfirmationEmail(ctx context.Context, toEmail, toName, confirmationLink string) error {
	m.Log.Warn().
		Str("to", toEmail).
		Str("link", confirmationLink).
		Msg("mailgun not configured, confirmation link logged instead of emailed")
	return nil
}

func (m *LogMailer) NotifyPendingRequest(ctx context.Context, id models.ClientID) error {
	m.Log.Warn().
		Str("client_id", id.String()).
		Msg("mailgun not configured, pending-approval notification logged instead of emailed")
	return nil
}

// NotifyPendingRequest tells the operator that a client validated its email
// and now awaits approval.
func (s *EmailService) NotifyPendingRequest(ctx context.Context, id models.ClientID) error {
	body := fmt.Sprintf(
		"A new client (%s) has validated the account. Proceed to the evaluation of the request.",
		id,
	)

	message := s.mg.NewMessage(
		fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		s.config.Subjects.AdminPending,
		body,
		s.adminEmail,
	)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, _, err := s.mg.Send(ctxWithTimeout, message); err != nil {
		return fmt.Errorf("%w: failed to notify admin: %v", ErrEmailClient, err)
	}
	return nil
}
