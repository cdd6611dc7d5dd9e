// Package sales: satış akışı. Seri satırlar barkod kümesini ya-hep-ya-hiç
// satar, simple satırlar bakiyeden düşer; belge ve satırlar aynı
// transaction'da yazılır.
package sales

import (
	"fmt"
	"time"

	"perakende-backend/internal/activity"
	"perakende-backend/internal/auth"
	"perakende-backend/internal/database"
	"perakende-backend/internal/models"
	"perakende-backend/internal/sequence"
	"perakende-backend/internal/stock"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

type SaleItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	// Codes: seri modda satılacak barkodlar. Simple modda boş bırakılır.
	Codes    []string        `json:"codes"`
	Quantity decimal.Decimal `json:"quantity"` // simple mod
	Discount decimal.Decimal `json:"discount"` // birim başına indirim
}

type CreateSaleRequest struct {
	BranchID *uint             `json:"branch_id"`
	Items    []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type SaleResponse struct {
	ID            uint   `json:"id"`
	DocNo         string `json:"doc_no"`
	BranchID      uint   `json:"branch_id"`
	Total         string `json:"total"`
	VatTotal      string `json:"vat_total"`
	CorrelationID string `json:"correlation_id"`
}

// POST /api/sales
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "En az bir satış satırı zorunlu")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}
		userID, userName, _, err := auth.UserInfo(c)
		if err != nil {
			return err
		}

		now := time.Now()
		period := sequence.Period(now)
		correlationID := uuid.NewString()

		var sale models.Sale

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		err = func() error {
			var branch models.Branch
			if err := tx.First(&branch, "id = ?", branchID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Şube bulunamadı (ID: %d)", branchID))
			}

			sale = models.Sale{
				BranchID:      branchID,
				Total:         decimal.Zero,
				VatTotal:      decimal.Zero,
				CorrelationID: correlationID,
				SaleDate:      now,
				CreatedBy:     userID,
			}
			if _, err := sequence.GenerateDocNo(tx, "SL", branchID, branch.Code, period, func(sp *gorm.DB, docNo string) error {
				sale.DocNo = docNo
				return sp.Create(&sale).Error
			}); err != nil {
				return err
			}

			total := decimal.Zero
			vatTotal := decimal.Zero

			for _, item := range body.Items {
				product, err := stock.ProductByID(tx, item.ProductID)
				if err != nil {
					return err
				}

				switch product.Mode {
				case models.ModeSerialized:
					if len(item.Codes) == 0 {
						return fiber.NewError(fiber.StatusBadRequest,
							fmt.Sprintf("Seri ürün için barkod listesi zorunlu: %s", product.Name))
					}
					if err := stock.SellUnits(tx, branchID, item.Codes, now); err != nil {
						return err
					}

					qtyOne := decimal.NewFromInt(1)
					for _, code := range item.Codes {
						calc := stock.CalcLine(product.SalePrice, item.Discount, qtyOne, product.VatRate)
						codeCopy := code
						if err := tx.Create(&models.SaleItem{
							SaleID:    sale.ID,
							ProductID: product.ID,
							Quantity:  qtyOne,
							UnitPrice: calc.UnitPrice,
							Discount:  item.Discount,
							VatAmount: calc.VatAmount,
							UnitCode:  &codeCopy,
						}).Error; err != nil {
							return err
						}
						total = total.Add(calc.LineTotal)
						vatTotal = vatTotal.Add(calc.VatAmount)
					}

				case models.ModeSimple:
					ref := stock.MovementRef{Type: "sale", ID: sale.ID, Note: sale.DocNo}
					calc, err := stock.ApplySale(tx, branchID, product, item.Quantity, product.SalePrice, item.Discount, ref)
					if err != nil {
						return err
					}
					if err := tx.Create(&models.SaleItem{
						SaleID:    sale.ID,
						ProductID: product.ID,
						Quantity:  item.Quantity,
						UnitPrice: calc.UnitPrice,
						Discount:  item.Discount,
						VatAmount: calc.VatAmount,
					}).Error; err != nil {
						return err
					}
					total = total.Add(calc.LineTotal)
					vatTotal = vatTotal.Add(calc.VatAmount)

				default:
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Bilinmeyen ürün modu: %s", product.Mode))
				}
			}

			if err := tx.Model(&sale).Updates(map[string]interface{}{
				"total":     total,
				"vat_total": vatTotal,
			}).Error; err != nil {
				return err
			}
			sale.Total = total
			sale.VatTotal = vatTotal
			return nil
		}()
		if err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem tamamlanamadı")
		}

		activity.Log(activity.LogOptions{
			BranchID:      &branchID,
			UserID:        userID,
			UserName:      userName,
			EntityType:    "sale",
			EntityID:      sale.ID,
			Action:        models.ActivityCreate,
			Description:   fmt.Sprintf("Satış: %s, tutar %s", sale.DocNo, sale.Total.String()),
			CorrelationID: correlationID,
			After:         sale,
		})

		return c.Status(fiber.StatusCreated).JSON(SaleResponse{
			ID:            sale.ID,
			DocNo:         sale.DocNo,
			BranchID:      sale.BranchID,
			Total:         sale.Total.String(),
			VatTotal:      sale.VatTotal.String(),
			CorrelationID: sale.CorrelationID,
		})
	}
}

type ReturnRequest struct {
	Code     string `json:"code" validate:"required"`
	BranchID *uint  `json:"branch_id"`
}

// POST /api/sales/returns: seri ürün iadesi (sold -> returned)
func ReturnUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReturnRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "code zorunlu")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		unit, err := stock.ReturnUnit(tx, branchID, body.Code)
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem tamamlanamadı")
		}

		if userID, userName, _, uerr := auth.UserInfo(c); uerr == nil {
			activity.Log(activity.LogOptions{
				BranchID:    &branchID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "serialized_unit",
				EntityID:    unit.ID,
				Action:      models.ActivityUpdate,
				Description: fmt.Sprintf("İade alındı: %s", unit.Code),
				After:       unit,
			})
		}

		return c.JSON(fiber.Map{
			"code":   unit.Code,
			"status": unit.Status,
		})
	}
}

// GET /api/sales?from=2026-01-01&to=2026-02-01
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Sale{}).Where("branch_id = ?", branchID)
		if from := c.Query("from"); from != "" {
			dbq = dbq.Where("sale_date >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			dbq = dbq.Where("sale_date < ?", to)
		}

		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}
		offset := c.QueryInt("offset", 0)

		var sales []models.Sale
		if err := dbq.Order("sale_date DESC, id DESC").Limit(limit).Offset(offset).Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satışlar getirilemedi")
		}

		resp := make([]SaleResponse, 0, len(sales))
		for _, s := range sales {
			resp = append(resp, SaleResponse{
				ID:            s.ID,
				DocNo:         s.DocNo,
				BranchID:      s.BranchID,
				Total:         s.Total.String(),
				VatTotal:      s.VatTotal.String(),
				CorrelationID: s.CorrelationID,
			})
		}
		return c.JSON(resp)
	}
}
