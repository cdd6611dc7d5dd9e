package catalog

import (
	"strings"

	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type ProductRequest struct {
	CategoryID    uint            `json:"category_id" validate:"required"`
	SupplierID    *uint           `json:"supplier_id"`
	Name          string          `json:"name" validate:"required"`
	Mode          string          `json:"mode"` // serialized / simple (varsayılan)
	Unit          string          `json:"unit"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	VatRate       decimal.Decimal `json:"vat_rate"`
	AllowNegative bool            `json:"allow_negative"`
}

type ProductResponse struct {
	ID            uint   `json:"id"`
	CategoryID    uint   `json:"category_id"`
	SupplierID    *uint  `json:"supplier_id"`
	Name          string `json:"name"`
	Mode          string `json:"mode"`
	Unit          string `json:"unit"`
	SalePrice     string `json:"sale_price"`
	VatRate       string `json:"vat_rate"`
	AllowNegative bool   `json:"allow_negative"`
	Active        bool   `json:"active"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		CategoryID:    p.CategoryID,
		SupplierID:    p.SupplierID,
		Name:          p.Name,
		Mode:          string(p.Mode),
		Unit:          p.Unit,
		SalePrice:     p.SalePrice.String(),
		VatRate:       p.VatRate.String(),
		AllowNegative: p.AllowNegative,
		Active:        p.Active,
	}
}

func parseMode(s string) (models.ProductMode, error) {
	switch s {
	case "", string(models.ModeSimple):
		return models.ModeSimple, nil
	case string(models.ModeSerialized):
		return models.ModeSerialized, nil
	}
	return "", fiber.NewError(fiber.StatusBadRequest, "Mod serialized veya simple olmalı")
}

// POST /api/admin/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori ve ürün adı zorunlu")
		}

		mode, err := parseMode(body.Mode)
		if err != nil {
			return err
		}
		if body.SalePrice.Sign() < 0 || body.VatRate.Sign() < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat ve KDV oranı negatif olamaz")
		}

		var category models.Category
		if err := database.DB.First(&category, "id = ?", body.CategoryID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}
		if body.SupplierID != nil {
			var supplier models.Supplier
			if err := database.DB.First(&supplier, "id = ?", *body.SupplierID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
			}
		}

		product := models.Product{
			CategoryID:    body.CategoryID,
			SupplierID:    body.SupplierID,
			Name:          strings.TrimSpace(body.Name),
			Mode:          mode,
			Unit:          body.Unit,
			SalePrice:     body.SalePrice,
			VatRate:       body.VatRate,
			AllowNegative: body.AllowNegative,
			Active:        true,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toProductResponse(&product))
	}
}

// GET /api/products?category_id=1&mode=serialized&q=kablo
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Product{})

		if cid := c.QueryInt("category_id", 0); cid > 0 {
			dbq = dbq.Where("category_id = ?", cid)
		}
		if mode := c.Query("mode"); mode != "" {
			dbq = dbq.Where("mode = ?", mode)
		}
		if q := c.Query("q"); q != "" {
			dbq = dbq.Where("name ILIKE ?", "%"+q+"%")
		}
		if c.Query("include_inactive") != "true" {
			dbq = dbq.Where("active = true")
		}

		var products []models.Product
		if err := dbq.Order("name").Limit(500).Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler getirilemedi")
		}

		resp := make([]ProductResponse, 0, len(products))
		for i := range products {
			resp = append(resp, toProductResponse(&products[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		return c.JSON(toProductResponse(&product))
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}

		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		// Mod envanter kayıtları oluştuktan sonra değiştirilemez; iki izleme
		// şekli arasında otomatik dönüşüm yok.
		if body.Mode != "" && body.Mode != string(product.Mode) {
			return fiber.NewError(fiber.StatusConflict, "Ürün modu sonradan değiştirilemez")
		}
		if body.SalePrice.Sign() < 0 || body.VatRate.Sign() < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat ve KDV oranı negatif olamaz")
		}

		if name := strings.TrimSpace(body.Name); name != "" {
			product.Name = name
		}
		if body.CategoryID != 0 {
			var category models.Category
			if err := database.DB.First(&category, "id = ?", body.CategoryID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
			}
			product.CategoryID = body.CategoryID
		}
		product.SupplierID = body.SupplierID
		if body.Unit != "" {
			product.Unit = body.Unit
		}
		product.SalePrice = body.SalePrice
		product.VatRate = body.VatRate
		product.AllowNegative = body.AllowNegative

		if err := database.DB.Save(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
		}
		return c.JSON(toProductResponse(&product))
	}
}

// DELETE /api/admin/products/:id: hareket kaydı varsa silmek yerine pasife alır
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}

		var unitCount int64
		database.DB.Model(&models.SerializedUnit{}).Where("product_id = ?", product.ID).Count(&unitCount)
		var movementCount int64
		database.DB.Model(&models.StockMovement{}).Where("product_id = ?", product.ID).Count(&movementCount)

		if unitCount > 0 || movementCount > 0 {
			if err := database.DB.Model(&product).Update("active", false).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Ürün pasife alınamadı")
			}
			return c.JSON(fiber.Map{"deactivated": product.ID})
		}

		if err := database.DB.Delete(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}
		return c.JSON(fiber.Map{"deleted": product.ID})
	}
}
