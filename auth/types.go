package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetAccessTokenExpiration() int
	GetRefreshTokenExpiration() int
	GetStateTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetAuthScheme() string
	GetDomain() string
}

// MessageKind identifies the notification template to deliver.
type MessageKind string

const (
	// MessageKindActivation is the account activation email
	MessageKindActivation MessageKind = "account_activation"
	// MessageKindPasswordReset is the password reset email
	MessageKindPasswordReset MessageKind = "password_reset"
)

// MessageContext carries the values a notification template needs.
type MessageContext struct {
	UserUUID uuid.UUID
	Username string
	Domain   string
	Token    string
}

// Notifier delivers account lifecycle notifications. Delivery is best
// effort: callers log failures and move on, the account transition that
// triggered the message has already been committed.
type Notifier interface {
	Send(ctx context.Context, kind MessageKind, recipient string, data MessageContext) error
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, MessageKind, string, MessageContext) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
