package middleware

import (
	"strings"

	domainerrors "account/internal/domain/errors"
	"account/internal/domain/service"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ContextKeyUserID is the echo.Context key holding the authenticated user's ID.
const ContextKeyUserID = "userID"

const bearerPrefix = "Bearer "

// AuthMiddleware provides middleware for bearer token authentication.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate validates the bearer token and stores its subject under ContextKeyUserID.
// A missing header or a non-bearer scheme fails with 401, an unusable token with 403.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return domainerrors.ErrTokenMissing.WithDetails("authorization header is missing")
		}

		if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			return domainerrors.ErrTokenMissing.WithDetails("authorization scheme must be Bearer")
		}

		tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if tokenString == "" {
			return domainerrors.ErrTokenMissing.WithDetails("bearer token is empty")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return errors.WithStack(err)
		}

		c.Set(ContextKeyUserID, claims.UserID())

		return next(c)
	}
}

// UserID returns the authenticated user's ID set by Authenticate.
func UserID(c echo.Context) (string, bool) {
	userID, ok := c.Get(ContextKeyUserID).(string)

	return userID, ok && userID != ""
}
