package auth_test

import (
	"context"
	"database/sql"
	"sync"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/Endy02/microservice/auth"
)

// notFoundErr builds the same not found error the repositories surface.
func notFoundErr() error {
	return repository.NewRecordNotFound()
}

// MockUsers implements the subset of auth.Users the handlers exercise.
// The embedded interface covers the rest; calling an unconfigured method
// panics, which is what we want in a test.
type MockUsers struct {
	auth.Users
	mock.Mock
}

func (m *MockUsers) CreateAccountTx(ctx context.Context, tx bun.IDB, input auth.NewAccount) (*auth.User, error) {
	args := m.Called(ctx, tx, input)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByUUID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, tx, id)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) SaveTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	if saved, ok := args.Get(0).(*auth.User); ok {
		return saved, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

// MockRepositoryManager hands the handlers a MockUsers and runs
// transaction bodies directly, no database involved.
type MockRepositoryManager struct {
	users *MockUsers
}

func NewMockRepositoryManager(users *MockUsers) *MockRepositoryManager {
	return &MockRepositoryManager{users: users}
}

func (m *MockRepositoryManager) Users() auth.Users { return m.users }
func (m *MockRepositoryManager) Validate() error   { return nil }
func (m *MockRepositoryManager) MustValidate()     {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// MockNotifier records deliveries and signals on a channel so tests can
// wait for the fire and forget send.
type MockNotifier struct {
	mu       sync.Mutex
	sent     []SentMessage
	Received chan SentMessage
	Err      error
}

type SentMessage struct {
	Kind      auth.MessageKind
	Recipient string
	Data      auth.MessageContext
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		Received: make(chan SentMessage, 4),
	}
}

func (m *MockNotifier) Send(_ context.Context, kind auth.MessageKind, recipient string, data auth.MessageContext) error {
	m.mu.Lock()
	msg := SentMessage{Kind: kind, Recipient: recipient, Data: data}
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.Received <- msg
	return m.Err
}

func (m *MockNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage{}, m.sent...)
}

// testConfig satisfies auth.Config for token service tests.
type testConfig struct {
	signingKey   string
	accessMins   int
	refreshHours int
	stateSecs    int
	issuer       string
	audience     []string
}

func (c testConfig) GetSigningKey() string          { return c.signingKey }
func (c testConfig) GetAccessTokenExpiration() int  { return c.accessMins }
func (c testConfig) GetRefreshTokenExpiration() int { return c.refreshHours }
func (c testConfig) GetStateTokenExpiration() int   { return c.stateSecs }
func (c testConfig) GetIssuer() string              { return c.issuer }
func (c testConfig) GetAudience() []string          { return c.audience }
func (c testConfig) GetContextKey() string          { return "user" }
func (c testConfig) GetAuthScheme() string          { return "Bearer" }
func (c testConfig) GetDomain() string              { return "example.com" }

func defaultTestConfig() testConfig {
	return testConfig{
		signingKey:   "test-signing-key",
		accessMins:   30,
		refreshHours: 72,
		stateSecs:    3600,
		issuer:       "test-issuer",
		audience:     []string{"test-app"},
	}
}
