package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog"

	"authhub/api/internal/config"
	"authhub/api/internal/reporting"
)

const sendTimeout = 10 * time.Second

type Mailgun struct {
	client   *mailgun.MailgunImpl
	from     string
	log      zerolog.Logger
	reporter reporting.Reporter
}

func NewMailgun(cfg config.MailConfig, log zerolog.Logger, reporter reporting.Reporter) *Mailgun {
	client := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		client.SetAPIBase(cfg.APIBase)
	}
	if reporter == nil {
		reporter = reporting.Nop()
	}

	return &Mailgun{
		client:   client,
		from:     formatFrom(cfg.FromName, cfg.FromEmail),
		log:      log.With().Str("component", "mailgun").Logger(),
		reporter: reporter,
	}
}

func (m *Mailgun) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	message := m.client.NewMessage(m.from, msg.Subject, msg.Text, msg.To...)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	for _, cc := range msg.CC {
		message.AddCC(cc)
	}
	if msg.ReplyTo != "" {
		message.SetReplyTo(msg.ReplyTo)
	}
	for _, a := range msg.Attachments {
		if a.Path != "" {
			message.AddAttachment(a.Path)
			continue
		}
		message.AddBufferAttachment(a.Name, a.Data)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, id, err := m.client.Send(ctx, message)
	if err != nil {
		m.log.Error().Err(err).
			Strs("to", msg.To).
			Str("subject", msg.Subject).
			Msg("send email failed")
		m.reporter.CaptureException(err, map[string]string{"component": "mailgun"})
		if msg.RaiseOnError {
			return fmt.Errorf("mailgun send: %w", err)
		}
		return nil
	}

	m.log.Debug().Str("message_id", id).Strs("to", msg.To).Msg("email queued")
	return nil
}

func formatFrom(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// LogSender writes messages to the log instead of delivering them. Used when no
// provider key is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "mail").Logger()}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	s.log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("email not delivered: no mail provider configured")
	return nil
}
