package auth

import (
	"fmt"

	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Şube kapsamı çözümleme yardımcıları. Şube yöneticisi için şube HER ZAMAN
// token'dan gelir; istemcinin gönderdiği branch_id'ye güvenilmez. Super admin
// hangi şube adına çalıştığını body/query ile belirtmek zorundadır.

func branchFromClaims(claims *Claims) (uint, error) {
	if claims.BranchID == nil {
		return 0, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
	}
	return *claims.BranchID, nil
}

func ResolveBranchIDFromBody(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
	claims, err := ClaimsFrom(c)
	if err != nil {
		return 0, err
	}

	if claims.Role == models.RoleBranchAdmin {
		return branchFromClaims(claims)
	}

	// super_admin
	if bodyBranchID == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *bodyBranchID, nil
}

func ResolveBranchIDFromQuery(c *fiber.Ctx) (uint, error) {
	claims, err := ClaimsFrom(c)
	if err != nil {
		return 0, err
	}

	if claims.Role == models.RoleBranchAdmin {
		return branchFromClaims(claims)
	}

	// super_admin
	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	var bid uint
	if _, err := fmt.Sscan(bidStr, &bid); err != nil || bid == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
	}
	return bid, nil
}

// UserInfo: audit/activity kayıtları için kullanıcı kimliğini döner.
// İsim token'da taşındığından ek sorgu gerekmez.
func UserInfo(c *fiber.Ctx) (uint, string, *uint, error) {
	claims, err := ClaimsFrom(c)
	if err != nil {
		return 0, "", nil, err
	}
	return claims.UserID, claims.Name, claims.BranchID, nil
}
