package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/skillcert/skillcert-api/internal/auth"
	"github.com/skillcert/skillcert-api/internal/utils"
)

// JWTProtected returns a middleware that validates bearer access tokens
// through the token issuer and binds the caller's identity to the request.
func JWTProtected(issuer *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := issuer.ParseAccessToken(tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_email", claims.Email)
		if claims.Role != "" {
			c.Locals("user_role", strings.ToLower(claims.Role))
		}

		return c.Next()
	}
}
