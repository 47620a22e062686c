// Package middleware provides the request processing middleware for the
// settlement API: JWT validation and admin gating for the operator
// endpoints.
package middleware

import (
	"strings"

	"relist/internal/models"
	"relist/internal/services/auth"
	"relist/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware validates bearer tokens and stores the claims on the
// request context. A token is rejected when its version no longer matches
// the user's current one, so logout invalidates outstanding sessions.
type AuthMiddleware struct {
	authService auth.Service
	log         *logrus.Entry
}

func NewAuthMiddleware(authService auth.Service, log *logrus.Logger) *AuthMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthMiddleware{
		authService: authService,
		log:         log.WithField("component", "auth_middleware"),
	}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		m.log.WithError(err).Debug("token validation failed")
		return utils.Unauthorized(c, "invalid token")
	}

	currentVersion, err := m.authService.GetUserTokenVersion(claims.UserID)
	if err != nil {
		m.log.WithError(err).WithField("user_id", claims.UserID).Debug("token user lookup failed")
		return utils.Unauthorized(c, "invalid token")
	}
	if claims.TokenVersion != currentVersion {
		return utils.Unauthorized(c, "session expired")
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// AdminOnly gates the operator endpoints.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "unauthorized")
	}
	if claims.Role != "admin" {
		return utils.Forbidden(c, "insufficient permissions")
	}
	return c.Next()
}

// RequirePermission returns a handler that checks one permission. Admins
// pass unconditionally.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return utils.Unauthorized(c, "unauthorized")
		}
		if claims.Role == "admin" || claims.HasPermission(permission) {
			return c.Next()
		}
		return utils.Forbidden(c, "insufficient permissions")
	}
}
