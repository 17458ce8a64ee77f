package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/domain"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// HasRole reports whether user holds one of roles. Every permitted role must
// be listed; admin gets no implicit pass.
func HasRole(user *domain.User, roles ...domain.Role) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// RequireRole rejects callers that hold none of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !HasRole(principal.User, allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
