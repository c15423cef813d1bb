package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Endy02/microservice/auth"
)

// ClaimsKey is the fiber locals key the middleware stores validated
// claims under when no context key is configured.
const ClaimsKey = "user"

// RequireAuth validates the bearer access token and stores its claims
// in the request locals. Missing, malformed, and expired tokens all end
// the request with 403, unauthenticated reads never reach the handler.
func RequireAuth(tokens *auth.TokenService, cfg auth.Config) fiber.Handler {
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = ClaimsKey
	}

	scheme := cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	return func(c *fiber.Ctx) error {
		raw, err := extractBearerToken(c, scheme)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "authentication required")
		}

		claims, err := tokens.ValidateAccess(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "authentication required")
		}

		c.Locals(contextKey, claims)
		return c.Next()
	}
}

// RequireStaff allows only tokens carrying the staff flag. Must run
// after RequireAuth.
func RequireStaff(cfg auth.Config) fiber.Handler {
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = ClaimsKey
	}

	return func(c *fiber.Ctx) error {
		claims := ClaimsFromLocals(c, contextKey)
		if claims == nil || !claims.Staff {
			return fiber.NewError(fiber.StatusForbidden, "staff access required")
		}
		return c.Next()
	}
}

// ClaimsFromLocals retrieves the validated claims stored by RequireAuth.
func ClaimsFromLocals(c *fiber.Ctx, contextKey string) *auth.Claims {
	if contextKey == "" {
		contextKey = ClaimsKey
	}

	claims, ok := c.Locals(contextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractBearerToken(c *fiber.Ctx, scheme string) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", fiber.ErrForbidden
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", fiber.ErrForbidden
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", fiber.ErrForbidden
	}

	return token, nil
}
