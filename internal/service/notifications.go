package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"authhub/api/internal/events"
	"authhub/api/internal/mailer"
)

const (
	activationSubject = "Visit link to activate user"
	backgroundTimeout = 30 * time.Second
)

// Notifier turns account events into transactional email.
type Notifier struct {
	sender     mailer.Sender
	activation *ActivationService
	domain     string
	log        zerolog.Logger
	pending    sync.WaitGroup
}

func NewNotifier(sender mailer.Sender, activation *ActivationService, domain string, log zerolog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		activation: activation,
		domain:     strings.TrimSuffix(domain, "/"),
		log:        log,
	}
}

// Subscribe wires the reset email, and the activation email when sendActivation is set.
// Reset mail is sent in the background so a reset request for a known account returns
// as fast as one for an unknown email.
func (n *Notifier) Subscribe(bus *events.Bus, sendActivation bool) {
	bus.Subscribe(events.PasswordResetRequested, n.background(n.SendPasswordReset))
	if sendActivation {
		bus.Subscribe(events.UserRegistered, events.ListenerFunc(n.SendActivation))
	}
}

// Wait blocks until background deliveries finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) background(send events.ListenerFunc) events.Listener {
	return events.ListenerFunc(func(ctx context.Context, event events.Event) error {
		n.pending.Add(1)
		go func() {
			defer n.pending.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
			defer cancel()
			if err := send(sendCtx, event); err != nil {
				n.log.Warn().Err(err).
					Str("account_id", event.Account.ID).
					Str("event", string(event.Type)).
					Msg("background notification failed")
			}
		}()
		return nil
	})
}

func (n *Notifier) SendActivation(ctx context.Context, event events.Event) error {
	link := n.activation.Link(event.Account)
	n.log.Debug().Str("account_id", event.Account.ID).Msg("sending activation email")
	return n.sender.Send(ctx, mailer.Message{
		To:      []string{event.Account.Email},
		Subject: activationSubject,
		Text:    link,
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, event events.Event) error {
	token := event.Metadata[MetadataToken]
	if token == "" {
		return errors.New("reset event without token")
	}

	link := fmt.Sprintf("%s/auth/create-password/%s", n.domain, token)
	n.log.Debug().Str("account_id", event.Account.ID).Msg("sending password reset email")
	return n.sender.Send(ctx, mailer.Message{
		To:      []string{event.Account.Email},
		Subject: "forgot password for " + event.Account.Email,
		Text:    link,
		HTML:    fmt.Sprintf(`<html><a href="%s" target="blank">Reset Password</a></html>`, html.EscapeString(link)),
	})
}
