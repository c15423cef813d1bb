package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	UserUUID string `json:"uuid"`
	Token    string `json:"token"`
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

// ActivateAccountHandler flips an account to active once the activation
// token verifies against the account's current state. A token that fails
// verification leaves the record untouched.
type ActivateAccountHandler struct {
	repo   RepositoryManager
	codec  *StateTokenCodec
	logger Logger
}

func NewActivateAccountHandler(repo RepositoryManager, codec *StateTokenCodec) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account activation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserUUID)
	if err != nil {
		return goerrors.New("invalid account identifier", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"uuid": event.UserUUID})
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Read through the transaction so a concurrent state change is
		// observed before the token is verified.
		user, err := h.repo.Users().GetByUUIDTx(ctx, tx, id)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return goerrors.New("no account for activation token", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for activation")
		}

		if !h.codec.Verify(user, event.Token) {
			return ErrActivationFailed
		}

		user.IsActive = true
		user.EmailVerified = true

		if _, err := h.repo.Users().SaveTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist account activation")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	return nil
}
