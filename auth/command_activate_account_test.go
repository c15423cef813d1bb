package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Endy02/microservice/auth"
)

func TestActivateAccount(t *testing.T) {
	users := &MockUsers{}
	repo := NewMockRepositoryManager(users)
	codec := auth.NewStateTokenCodec([]byte("test-secret"), time.Hour)

	user := &auth.User{
		ID:           uuid.New(),
		Email:        "activate@example.com",
		PasswordHash: "$2a$14$hash",
	}

	token, err := codec.Issue(user)
	require.NoError(t, err)

	users.On("GetByUUIDTx", mock.Anything, mock.Anything, user.ID).Return(user, nil)
	users.On("SaveTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
		return u.IsActive && u.EmailVerified
	})).Return(user, nil)

	handler := auth.NewActivateAccountHandler(repo, codec)

	err = handler.Execute(context.Background(), auth.ActivateAccountMessage{
		UserUUID: user.ID.String(),
		Token:    token,
	})
	require.NoError(t, err)

	users.AssertExpectations(t)
}

func TestActivateAccountBadToken(t *testing.T) {
	users := &MockUsers{}
	repo := NewMockRepositoryManager(users)
	codec := auth.NewStateTokenCodec([]byte("test-secret"), time.Hour)

	user := &auth.User{ID: uuid.New(), PasswordHash: "$2a$14$hash"}
	users.On("GetByUUIDTx", mock.Anything, mock.Anything, user.ID).Return(user, nil)

	handler := auth.NewActivateAccountHandler(repo, codec)

	err := handler.Execute(context.Background(), auth.ActivateAccountMessage{
		UserUUID: user.ID.String(),
		Token:    "1abc-deadbeefdeadbeefdeadbeefdeadbeef",
	})
	assert.ErrorIs(t, err, auth.ErrActivationFailed)

	// A failed verification never touches the record.
	users.AssertNotCalled(t, "SaveTx", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, user.IsActive)
	assert.False(t, user.EmailVerified)
}

func TestActivateAccountStaleToken(t *testing.T) {
	users := &MockUsers{}
	repo := NewMockRepositoryManager(users)
	codec := auth.NewStateTokenCodec([]byte("test-secret"), time.Hour)

	user := &auth.User{ID: uuid.New(), PasswordHash: "$2a$14$hash"}

	token, err := codec.Issue(user)
	require.NoError(t, err)

	// Password changed after the link was mailed, the token binds to the
	// old state and stops verifying.
	user.PasswordHash = "$2a$14$changed"
	users.On("GetByUUIDTx", mock.Anything, mock.Anything, user.ID).Return(user, nil)

	handler := auth.NewActivateAccountHandler(repo, codec)

	err = handler.Execute(context.Background(), auth.ActivateAccountMessage{
		UserUUID: user.ID.String(),
		Token:    token,
	})
	assert.ErrorIs(t, err, auth.ErrActivationFailed)
}

func TestActivateAccountUnknownUser(t *testing.T) {
	users := &MockUsers{}
	repo := NewMockRepositoryManager(users)
	codec := auth.NewStateTokenCodec([]byte("test-secret"), time.Hour)

	id := uuid.New()
	users.On("GetByUUIDTx", mock.Anything, mock.Anything, id).Return(nil, notFoundErr())

	handler := auth.NewActivateAccountHandler(repo, codec)

	err := handler.Execute(context.Background(), auth.ActivateAccountMessage{
		UserUUID: id.String(),
		Token:    "whatever",
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestActivateAccountMalformedUUID(t *testing.T) {
	users := &MockUsers{}
	repo := NewMockRepositoryManager(users)
	codec := auth.NewStateTokenCodec([]byte("test-secret"), time.Hour)

	handler := auth.NewActivateAccountHandler(repo, codec)

	err := handler.Execute(context.Background(), auth.ActivateAccountMessage{
		UserUUID: "not-a-uuid",
		Token:    "whatever",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, goerrors.CategoryBadInput, richErr.Category)
}
