package auth

import (
	"strings"

	"perakende-backend/internal/config"
	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ctxClaimsKey: doğrulanmış Claims'in fiber Locals anahtarı. Handler'lar
// Locals'a doğrudan dokunmaz, ClaimsFrom kullanır.
const ctxClaimsKey = "auth_claims"

// JWTMiddleware: Authorization başlığındaki bearer token'ı doğrular ve
// claim'leri isteğe bağlar.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header eksik")
		}

		scheme, tokenStr, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization formatı 'Bearer <token>' olmalı")
		}

		claims, err := ParseToken(cfg.JWTSecret, strings.TrimSpace(tokenStr))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Geçersiz veya süresi dolmuş token")
		}

		c.Locals(ctxClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom: JWTMiddleware'in bağladığı claim'leri döner. Middleware'siz
// route'larda çağrılırsa 401 verir.
func ClaimsFrom(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals(ctxClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Oturum bilgisi alınamadı")
	}
	return claims, nil
}

// RequireRole: route'u verilen rollerle sınırlar.
func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFrom(c)
		if err != nil {
			return err
		}
		for _, r := range allowedRoles {
			if r == claims.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Bu işlem için yetkiniz yok")
	}
}
