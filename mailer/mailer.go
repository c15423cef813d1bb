// Package mailer renders account lifecycle emails from django style
// templates and hands them to a Sender for delivery.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"

	"github.com/Endy02/microservice/auth"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Sender delivers a rendered message to a recipient. Implementations
// wrap SMTP, a provider API, or a log for development.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, to, subject, body string) error

func (f SenderFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

type message struct {
	template string
	subject  string
}

var messages = map[auth.MessageKind]message{
	auth.MessageKindActivation: {
		template: "templates/activation_email",
		subject:  "Activate your account",
	},
	auth.MessageKindPasswordReset: {
		template: "templates/password_reset_email",
		subject:  "Reset your account password",
	},
}

// Mailer implements auth.Notifier on top of the embedded templates.
type Mailer struct {
	engine *django.Engine
	sender Sender
	logger auth.Logger
}

var _ auth.Notifier = (*Mailer)(nil)

func New(sender Sender, opts ...Option) (*Mailer, error) {
	engine := django.NewFileSystem(http.FS(templatesFS), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	}

	m := &Mailer{
		engine: engine,
		sender: sender,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.sender == nil {
		m.sender = logSender{logger: m.logger}
	}

	return m, nil
}

type Option func(*Mailer)

func WithLogger(logger auth.Logger) Option {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func (m *Mailer) Send(ctx context.Context, kind auth.MessageKind, recipient string, data auth.MessageContext) error {
	msg, ok := messages[kind]
	if !ok {
		return goerrors.New("unknown message kind", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}

	var buf bytes.Buffer
	err := m.engine.Render(&buf, msg.template, map[string]any{
		"username": data.Username,
		"domain":   data.Domain,
		"uuid":     data.UserUUID.String(),
		"token":    data.Token,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template")
	}

	return m.sender.Send(ctx, recipient, msg.subject, buf.String())
}

// logSender writes outbound mail to the log instead of delivering it.
// It is the default when no real Sender is configured.
type logSender struct {
	logger auth.Logger
}

func (s logSender) Send(_ context.Context, to, subject, body string) error {
	if s.logger != nil {
		s.logger.Info("outbound mail to=%s subject=%q bytes=%d", to, subject, len(body))
	}
	return nil
}
