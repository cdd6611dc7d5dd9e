package admin

import (
	"strings"

	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type BranchRequest struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type BranchResponse struct {
	ID      uint   `json:"id"`
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func toBranchResponse(b *models.Branch) BranchResponse {
	return BranchResponse{ID: b.ID, Code: b.Code, Name: b.Name, Address: b.Address, Phone: b.Phone}
}

// POST /api/admin/branches
func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Şube adı zorunlu")
		}
		// Kod barkod formatına 3 hane olarak giriyor
		if body.Code < 1 || body.Code > 999 {
			return fiber.NewError(fiber.StatusBadRequest, "Şube kodu 1-999 arasında olmalı")
		}

		branch := models.Branch{
			Code:    body.Code,
			Name:    body.Name,
			Address: body.Address,
			Phone:   body.Phone,
		}
		if err := database.DB.Create(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Şube oluşturulamadı, ad veya kod kullanımda olabilir")
		}

		return c.Status(fiber.StatusCreated).JSON(toBranchResponse(&branch))
	}
}

// GET /api/admin/branches
func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Order("code").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şubeler getirilemedi")
		}

		resp := make([]BranchResponse, 0, len(branches))
		for i := range branches {
			resp = append(resp, toBranchResponse(&branches[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/branches/:id
func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}
		return c.JSON(toBranchResponse(&branch))
	}
}

// PUT /api/admin/branches/:id
func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		var body BranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if name := strings.TrimSpace(body.Name); name != "" {
			branch.Name = name
		}
		branch.Address = body.Address
		branch.Phone = body.Phone
		// Kod basılı etiketlerde kullanılıyor, güncellemeyle değişmez

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Şube güncellenemedi")
		}
		return c.JSON(toBranchResponse(&branch))
	}
}

// DELETE /api/admin/branches/:id
func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		// Envanter kaydı olan şube silinemez
		var unitCount int64
		database.DB.Model(&models.SerializedUnit{}).Where("branch_id = ?", branch.ID).Count(&unitCount)
		var movementCount int64
		database.DB.Model(&models.StockMovement{}).Where("branch_id = ?", branch.ID).Count(&movementCount)
		if unitCount > 0 || movementCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Şubenin envanter kayıtları var, silinemez")
		}

		if err := database.DB.Delete(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube silinemedi")
		}
		return c.JSON(fiber.Map{"deleted": branch.ID})
	}
}

type CreateBranchAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/admin/branches/:id/admin
func CreateBranchAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		var body CreateBranchAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim, email ve şifre zorunlu")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			BranchID:     &branch.ID,
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleBranchAdmin,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Kullanıcı oluşturulamadı, email kullanımda olabilir")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"branch_id": user.BranchID,
		})
	}
}

// GET /api/admin/branches/:id/admins
func ListBranchAdminsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var users []models.User
		if err := database.DB.Where("branch_id = ? AND role = ?", id, models.RoleBranchAdmin).
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar getirilemedi")
		}

		type row struct {
			ID    uint   `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		resp := make([]row, 0, len(users))
		for _, u := range users {
			resp = append(resp, row{ID: u.ID, Name: u.Name, Email: u.Email})
		}
		return c.JSON(resp)
	}
}
