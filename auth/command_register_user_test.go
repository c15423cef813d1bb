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

func newRegisterFixture() (*MockUsers, *MockRepositoryManager, *auth.StateTokenCodec) {
	users := &MockUsers{}
	repo := NewMockRepositoryManager(users)
	codec := auth.NewStateTokenCodec([]byte("test-secret"), time.Hour)
	return users, repo, codec
}

func TestRegisterUserCreatesInactiveAccount(t *testing.T) {
	users, repo, codec := newRegisterFixture()
	notifier := NewMockNotifier()

	created := &auth.User{
		ID:           uuid.New(),
		Email:        "pepe.rone@example.com",
		Username:     "pepe.rone",
		PasswordHash: "$2a$14$hash",
	}

	users.On("CreateAccountTx", mock.Anything, mock.Anything, mock.MatchedBy(func(input auth.NewAccount) bool {
		return input.Email == "pepe.rone@example.com" && input.Password == "secret-password"
	})).Return(created, nil)

	handler := auth.NewRegisterUserHandler(repo, codec).
		WithNotifier(notifier).
		WithDomain("example.com")

	err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "pepe.rone@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	select {
	case msg := <-notifier.Received:
		assert.Equal(t, auth.MessageKindActivation, msg.Kind)
		assert.Equal(t, "pepe.rone@example.com", msg.Recipient)
		assert.Equal(t, created.ID, msg.Data.UserUUID)
		assert.Equal(t, "example.com", msg.Data.Domain)
		assert.True(t, codec.Verify(created, msg.Data.Token), "emailed token verifies against the new account")
	case <-time.After(2 * time.Second):
		t.Fatal("activation notification was never sent")
	}
}

func TestRegisterUserSurfacesValidationError(t *testing.T) {
	users, repo, codec := newRegisterFixture()

	validationErr := goerrors.New("a valid email is required to register", goerrors.CategoryValidation).
		WithTextCode("INVALID_EMAIL")
	users.On("CreateAccountTx", mock.Anything, mock.Anything, mock.Anything).Return(nil, validationErr)

	handler := auth.NewRegisterUserHandler(repo, codec)

	err := handler.Execute(context.Background(), auth.RegisterUserMessage{Email: "not-an-email"})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
	assert.Equal(t, "INVALID_EMAIL", richErr.TextCode)
}

func TestRegisterUserNotificationFailureIsNotFatal(t *testing.T) {
	users, repo, codec := newRegisterFixture()
	notifier := NewMockNotifier()
	notifier.Err = assert.AnError

	created := &auth.User{ID: uuid.New(), Email: "pepe.rone@example.com"}
	users.On("CreateAccountTx", mock.Anything, mock.Anything, mock.Anything).Return(created, nil)

	handler := auth.NewRegisterUserHandler(repo, codec).WithNotifier(notifier)

	err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "pepe.rone@example.com",
		Password: "secret-password",
	})
	assert.NoError(t, err)
}

func TestRegisterUserCancelledContext(t *testing.T) {
	_, repo, codec := newRegisterFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := auth.NewRegisterUserHandler(repo, codec)
	err := handler.Execute(ctx, auth.RegisterUserMessage{Email: "pepe.rone@example.com"})
	assert.Error(t, err)
}
