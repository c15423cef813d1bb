package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload for both halves of a session pair.
type Claims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Staff     bool   `json:"is_staff,omitempty"`
}

// UserID returns the account UUID the token was issued for.
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserUUID parses the account UUID.
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Expires returns the expiration time
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// TokenPair is a session credential pair: a short lived stateless access
// token plus a longer lived revocable refresh token.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// TokenService signs and validates session JWTs.
type TokenService struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. Access expiration
// is configured in minutes, refresh expiration in hours.
func NewTokenService(opts Config, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey: []byte(opts.GetSigningKey()),
		accessTTL:  time.Duration(opts.GetAccessTokenExpiration()) * time.Minute,
		refreshTTL: time.Duration(opts.GetRefreshTokenExpiration()) * time.Hour,
		issuer:     opts.GetIssuer(),
		audience:   opts.GetAudience(),
		logger:     logger,
	}
}

// GeneratePair issues an access/refresh pair for the account.
func (ts *TokenService) GeneratePair(user *User) (*TokenPair, error) {
	access, err := ts.sign(user, TokenTypeAccess, ts.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.sign(user, TokenTypeRefresh, ts.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// SignAccess issues a standalone access token, used on refresh.
func (ts *TokenService) SignAccess(user *User) (string, error) {
	return ts.sign(user, TokenTypeAccess, ts.accessTTL)
}

func (ts *TokenService) sign(user *User, tokenType string, ttl time.Duration) (string, error) {
	if user == nil {
		return "", goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       user.ID.String(),
		TokenType: tokenType,
		Staff:     user.IsStaff,
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenService) SignClaims(claims *Claims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenService) Validate(tokenString string) (*Claims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// ValidateAccess validates the raw token and checks it carries the access
// token type.
func (ts *TokenService) ValidateAccess(tokenString string) (*Claims, error) {
	return ts.validateTyped(tokenString, TokenTypeAccess)
}

// ValidateRefresh validates the raw token and checks it carries the
// refresh token type. Strict parsing: anything that is not a well formed
// refresh token is an invalid token error.
func (ts *TokenService) ValidateRefresh(tokenString string) (*Claims, error) {
	return ts.validateTyped(tokenString, TokenTypeRefresh)
}

func (ts *TokenService) validateTyped(tokenString, tokenType string) (*Claims, error) {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
