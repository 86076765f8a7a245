package mailer

import (
	"context"
	"errors"
)

var ErrNoRecipients = errors.New("mail: at least one recipient is required")

type Attachment struct {
	// Path is read from disk when set; otherwise Name and Data are sent.
	Path string
	Name string
	Data []byte
}

type Message struct {
	To          []string
	CC          []string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
	// RaiseOnError returns provider failures instead of logging and dropping them.
	RaiseOnError bool
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
