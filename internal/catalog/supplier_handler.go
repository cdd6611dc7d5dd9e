package catalog

import (
	"strings"

	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SupplierRequest struct {
	Name     string `json:"name"`
	TaxNo    string `json:"tax_no"`
	Phone    string `json:"phone"`
	IsSystem bool   `json:"is_system"`
}

type SupplierResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	TaxNo         string `json:"tax_no"`
	Phone         string `json:"phone"`
	IsSystem      bool   `json:"is_system"`
	CreditBalance string `json:"credit_balance"`
}

func toSupplierResponse(s *models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:            s.ID,
		Name:          s.Name,
		TaxNo:         s.TaxNo,
		Phone:         s.Phone,
		IsSystem:      s.IsSystem,
		CreditBalance: s.CreditBalance.String(),
	}
}

// POST /api/admin/suppliers
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi adı zorunlu")
		}

		supplier := models.Supplier{
			Name:     body.Name,
			TaxNo:    body.TaxNo,
			Phone:    body.Phone,
			IsSystem: body.IsSystem,
		}
		if err := database.DB.Create(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toSupplierResponse(&supplier))
	}
}

// GET /api/suppliers
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var suppliers []models.Supplier
		if err := database.DB.Order("name").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçiler getirilemedi")
		}

		resp := make([]SupplierResponse, 0, len(suppliers))
		for i := range suppliers {
			resp = append(resp, toSupplierResponse(&suppliers[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/suppliers/:id
func GetSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var supplier models.Supplier
		if err := database.DB.First(&supplier, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}
		return c.JSON(toSupplierResponse(&supplier))
	}
}

// PUT /api/admin/suppliers/:id
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var supplier models.Supplier
		if err := database.DB.First(&supplier, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}

		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if name := strings.TrimSpace(body.Name); name != "" {
			supplier.Name = name
		}
		supplier.TaxNo = body.TaxNo
		supplier.Phone = body.Phone
		// IsSystem ve CreditBalance güncellemeyle değişmez; bakiye sadece
		// mal girişiyle hareket eder.

		if err := database.DB.Save(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi güncellenemedi")
		}
		return c.JSON(toSupplierResponse(&supplier))
	}
}

// DELETE /api/admin/suppliers/:id
func DeleteSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var supplier models.Supplier
		if err := database.DB.First(&supplier, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}

		if !supplier.CreditBalance.IsZero() {
			return fiber.NewError(fiber.StatusConflict, "Cari bakiyesi sıfır olmayan tedarikçi silinemez")
		}

		var productCount int64
		database.DB.Model(&models.Product{}).Where("supplier_id = ?", supplier.ID).Count(&productCount)
		var receiptCount int64
		database.DB.Model(&models.PurchaseReceipt{}).Where("supplier_id = ?", supplier.ID).Count(&receiptCount)
		if productCount > 0 || receiptCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Tedarikçiye bağlı kayıtlar var, silinemez")
		}

		if err := database.DB.Delete(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi silinemedi")
		}
		return c.JSON(fiber.Map{"deleted": supplier.ID})
	}
}
