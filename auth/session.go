package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CredentialStore is the slice of the users repository the session
// manager needs.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// SessionManager issues, refreshes, and revokes session credential
// pairs. Access tokens are short lived and stateless; refresh tokens are
// revocable through the RevocationStore blacklist.
type SessionManager struct {
	store   CredentialStore
	tokens  *TokenService
	revoked RevocationStore
	logger  Logger
}

func NewSessionManager(store CredentialStore, tokens *TokenService, revoked RevocationStore) *SessionManager {
	return &SessionManager{
		store:   store,
		tokens:  tokens,
		revoked: revoked,
		logger:  defLogger{},
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// TokenService exposes the underlying token service, the HTTP middleware
// uses it to validate bearer tokens without a database round trip.
func (m *SessionManager) TokenService() *TokenService {
	return m.tokens
}

// Login verifies the credentials and issues a token pair. Unknown email,
// wrong password, missing credential, and inactive account all fail with
// the same error so the response never reveals whether the account
// exists.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.HasUsablePassword() {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	// Updating last_login_at also invalidates any outstanding activation
	// or reset token, since the codec signature binds that field.
	if err := m.store.TrackSuccessfulLogin(ctx, user); err != nil {
		m.logger.Error("failed to track successful login: %v", err)
	}

	return m.tokens.GeneratePair(user)
}

// Refresh validates the refresh token and issues a fresh access token.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := m.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.RegisteredClaims.ID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token revocation")
	}
	if revoked {
		return "", ErrInvalidToken
	}

	user, err := m.userFromClaims(ctx, claims)
	if err != nil {
		return "", err
	}

	return m.tokens.SignAccess(user)
}

// Logout revokes the refresh token. Parsing is strict: a malformed or
// already revoked token fails with an invalid token error rather than
// succeeding silently. Callers should treat that as terminal, not
// retryable.
func (m *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	claims, err := m.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return err
	}

	jti := claims.RegisteredClaims.ID
	if jti == "" {
		return ErrInvalidToken
	}

	revoked, err := m.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token revocation")
	}
	if revoked {
		return ErrInvalidToken
	}

	ttl := time.Until(claims.Expires())
	if err := m.revoked.Revoke(ctx, jti, ttl); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke refresh token")
	}

	return nil
}

// User resolves the account behind already validated claims. The HTTP
// layer uses it after the middleware has checked the bearer token.
func (m *SessionManager) User(ctx context.Context, claims *Claims) (*User, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}
	return m.userFromClaims(ctx, claims)
}

// CurrentUser resolves the account behind a bearer access token.
func (m *SessionManager) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := m.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, err
	}

	return m.userFromClaims(ctx, claims)
}

func (m *SessionManager) userFromClaims(ctx context.Context, claims *Claims) (*User, error) {
	id, err := claims.UserUUID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := m.store.GetByUUID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve token subject")
	}

	return user, nil
}
