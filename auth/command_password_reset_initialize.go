package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	UserUUID uuid.UUID
	Token    string
	Success  bool
}

// InitializePasswordResetHandler sends a reset link for an existing
// account. The flow is read only: the token binds to the account's
// current state, nothing is written until the reset is finalized.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	codec    *StateTokenCodec
	notifier Notifier
	domain   string
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, codec *StateTokenCodec) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		codec:    codec,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the notifier used to deliver the reset email.
func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithDomain sets the public domain embedded in reset links.
func (h *InitializePasswordResetHandler) WithDomain(domain string) *InitializePasswordResetHandler {
	h.domain = domain
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("no account with that email", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithMetadata(map[string]any{"email": event.Email})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, err := h.codec.Issue(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue password reset token")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		err := h.notifier.Send(ctx, MessageKindPasswordReset, user.Email, MessageContext{
			UserUUID: user.ID,
			Username: user.Username,
			Domain:   h.domain,
			Token:    token,
		})
		if err != nil {
			h.logger.Warn("password reset notification for user %s failed: %v", user.ID.String(), err)
		}
	}()

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			UserUUID: user.ID,
			Token:    token,
			Success:  true,
		})
	}

	return nil
}
