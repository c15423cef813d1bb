package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	UserUUID        string `json:"uuid" doc:"Account identifier from the reset link."`
	Token           string `json:"token" doc:"State bound reset token from the reset link."`
	Password        string `json:"password" doc:"New password."`
	ConfirmPassword string `json:"confirm_password" doc:"New password, repeated."`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_confirm" }

// FinalizePasswordResetHandler applies a new password after verifying the
// reset token. Every rejection collapses into ErrResetForbidden so callers
// cannot tell which check failed.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	codec  *StateTokenCodec
	logger Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, codec *StateTokenCodec) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserUUID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed account identifier").
			WithCode(goerrors.CodeBadRequest)
	}

	return h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Read through the transaction so of two concurrent confirmations
		// the loser sees the winner's password hash and fails verification.
		user, err := h.repo.Users().GetByUUIDTx(ctx, tx, id)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrResetForbidden
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		// Reusing the current password counts as a failed reset.
		if err := ComparePasswordAndHash(event.Password, user.PasswordHash); err == nil {
			return ErrResetForbidden
		}

		if event.Password == "" || event.Password != event.ConfirmPassword {
			return ErrResetForbidden
		}

		if !h.codec.Verify(user, event.Token) {
			return ErrResetForbidden
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
		}

		if err := h.repo.Users().ResetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new password")
		}

		h.logger.Info("password reset completed for user %s", user.ID.String())
		return nil
	})
}
