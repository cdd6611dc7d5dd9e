// Package purchasing: mal kabul akışı. Kod tahsisi, seri adetlerin
// oluşturulması, simple bakiye girişi ve tedarikçi cari artışı tek
// transaction'da gerçekleşir; biri başarısızsa hiçbiri kalıcı olmaz.
package purchasing

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

type ReceiptItemRequest struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	// Serials: seri modda, adet başına üretici seri numarası (opsiyonel).
	// Verilirse uzunluğu quantity'ye eşit olmalı.
	Serials   []string `json:"serials"`
	ExpiresAt *string  `json:"expires_at"` // "2026-12-31"
	Remark    string   `json:"remark" validate:"max=255"`
}

type CreateReceiptRequest struct {
	Date       string               `json:"date"` // "2026-09-01"
	SupplierID uint                 `json:"supplier_id" validate:"required"`
	BranchID   *uint                `json:"branch_id"`
	Items      []ReceiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ReceiptResponse struct {
	ID            uint     `json:"id"`
	DocNo         string   `json:"doc_no"`
	BranchID      uint     `json:"branch_id"`
	SupplierID    uint     `json:"supplier_id"`
	Total         string   `json:"total"`
	ReceiptDate   string   `json:"receipt_date"`
	CorrelationID string   `json:"correlation_id"`
	UnitCodes     []string `json:"unit_codes,omitempty"` // bu girişle basılan barkodlar
}

// POST /api/purchase-receipts
func CreateReceiptHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateReceiptRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "supplier_id ve en az bir satır zorunlu")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}
		userID, userName, _, err := auth.UserInfo(c)
		if err != nil {
			return err
		}

		receiptDate := time.Now()
		if body.Date != "" {
			d, perr := time.Parse("2006-01-02", body.Date)
			if perr != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
			}
			receiptDate = d
		}
		period := sequence.Period(receiptDate)
		correlationID := uuid.NewString()

		var receipt models.PurchaseReceipt
		var unitCodes []string

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		err = func() error {
			var branch models.Branch
			if err := tx.First(&branch, "id = ?", branchID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Şube bulunamadı (ID: %d)", branchID))
			}

			var supplier models.Supplier
			if err := tx.First(&supplier, "id = ?", body.SupplierID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi bulunamadı")
			}

			receipt = models.PurchaseReceipt{
				BranchID:      branchID,
				SupplierID:    supplier.ID,
				Total:         decimal.Zero,
				CorrelationID: correlationID,
				ReceiptDate:   receiptDate,
				CreatedBy:     userID,
			}
			if _, err := sequence.GenerateDocNo(tx, "PR", branchID, branch.Code, period, func(sp *gorm.DB, docNo string) error {
				receipt.DocNo = docNo
				return sp.Create(&receipt).Error
			}); err != nil {
				return err
			}

			total := decimal.Zero
			for _, item := range body.Items {
				product, err := stock.ProductByID(tx, item.ProductID)
				if err != nil {
					return err
				}
				if item.Quantity.Sign() <= 0 {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Miktar pozitif olmalı: %s", product.Name))
				}
				if item.UnitCost.IsNegative() {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Birim maliyet negatif olamaz: %s", product.Name))
				}

				var expiresAt *time.Time
				if item.ExpiresAt != nil && *item.ExpiresAt != "" {
					d, perr := time.Parse("2006-01-02", *item.ExpiresAt)
					if perr != nil {
						return fiber.NewError(fiber.StatusBadRequest, "SKT formatı 'YYYY-MM-DD' olmalı")
					}
					expiresAt = &d
				}

				switch product.Mode {
				case models.ModeSerialized:
					if !item.Quantity.IsInteger() {
						return fiber.NewError(fiber.StatusBadRequest,
							fmt.Sprintf("Seri ürün miktarı tam sayı olmalı: %s", product.Name))
					}
					n := int(item.Quantity.IntPart())
					if len(item.Serials) > 0 && len(item.Serials) != n {
						return fiber.NewError(fiber.StatusBadRequest,
							fmt.Sprintf("Seri numarası adedi miktarla uyuşmuyor: %s", product.Name))
					}

					start, _, err := sequence.AllocateRange(tx, branchID, period, n)
					if err != nil {
						return err
					}
					for i := 0; i < n; i++ {
						code := sequence.FormatCode(branch.Code, period, start+int64(i))
						var serial *string
						if len(item.Serials) > 0 && item.Serials[i] != "" {
							s := item.Serials[i]
							serial = &s
						}
						if _, err := stock.ReceiveUnit(tx, stock.ReceiveUnitParams{
							Code:          code,
							SerialNo:      serial,
							BranchID:      branchID,
							CallerBranch:  branchID,
							ProductID:     product.ID,
							CostAtReceipt: item.UnitCost,
							ReceivedAt:    receiptDate,
							ExpiresAt:     expiresAt,
							Remark:        item.Remark,
						}); err != nil {
							return err
						}
						unitCodes = append(unitCodes, code)
					}

				case models.ModeSimple:
					ref := stock.MovementRef{Type: "purchase_receipt", ID: receipt.ID, Note: receipt.DocNo}
					if err := stock.ApplyReceipt(tx, branchID, product.ID, item.Quantity, item.UnitCost, ref); err != nil {
						return err
					}

				default:
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Bilinmeyen ürün modu: %s", product.Mode))
				}

				if err := tx.Create(&models.PurchaseReceiptItem{
					PurchaseReceiptID: receipt.ID,
					ProductID:         product.ID,
					Quantity:          item.Quantity,
					UnitCost:          item.UnitCost,
				}).Error; err != nil {
					return err
				}

				total = total.Add(item.Quantity.Mul(item.UnitCost))
			}

			if err := tx.Model(&receipt).Update("total", total).Error; err != nil {
				return err
			}
			receipt.Total = total

			// Tedarikçi carisi: sistem tedarikçisi değilse borç aynı
			// transaction'da artar. Giriş ile cari asla ayrışmaz.
			if !supplier.IsSystem && total.Sign() > 0 {
				if err := tx.Model(&models.Supplier{}).
					Where("id = ?", supplier.ID).
					Update("credit_balance", gorm.Expr("credit_balance + ?", total)).Error; err != nil {
					return err
				}
			}

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
			EntityType:    "purchase_receipt",
			EntityID:      receipt.ID,
			Action:        models.ActivityCreate,
			Description:   fmt.Sprintf("Mal girişi: %s, %d satır", receipt.DocNo, len(body.Items)),
			CorrelationID: correlationID,
			After:         receipt,
		})

		return c.Status(fiber.StatusCreated).JSON(ReceiptResponse{
			ID:            receipt.ID,
			DocNo:         receipt.DocNo,
			BranchID:      receipt.BranchID,
			SupplierID:    receipt.SupplierID,
			Total:         receipt.Total.String(),
			ReceiptDate:   receipt.ReceiptDate.Format("2006-01-02"),
			CorrelationID: receipt.CorrelationID,
			UnitCodes:     unitCodes,
		})
	}
}

// GET /api/purchase-receipts?from=2026-01-01&to=2026-02-01
func ListReceiptsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.PurchaseReceipt{}).
			Preload("Supplier").
			Where("branch_id = ?", branchID)

		if from := c.Query("from"); from != "" {
			dbq = dbq.Where("receipt_date >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			dbq = dbq.Where("receipt_date < ?", to)
		}

		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}
		offset := c.QueryInt("offset", 0)

		var receipts []models.PurchaseReceipt
		if err := dbq.Order("receipt_date DESC, id DESC").Limit(limit).Offset(offset).Find(&receipts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Girişler getirilemedi")
		}

		type row struct {
			ID           uint   `json:"id"`
			DocNo        string `json:"doc_no"`
			SupplierName string `json:"supplier_name"`
			Total        string `json:"total"`
			ReceiptDate  string `json:"receipt_date"`
		}
		resp := make([]row, 0, len(receipts))
		for _, r := range receipts {
			resp = append(resp, row{
				ID:           r.ID,
				DocNo:        r.DocNo,
				SupplierName: r.Supplier.Name,
				Total:        r.Total.String(),
				ReceiptDate:  r.ReceiptDate.Format("2006-01-02"),
			})
		}
		return c.JSON(resp)
	}
}

// GET /api/purchase-receipts/:id
func GetReceiptHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		var receipt models.PurchaseReceipt
		if err := database.DB.Preload("Supplier").Preload("Items.Product").
			First(&receipt, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Mal girişi bulunamadı")
		}
		if receipt.BranchID != branchID {
			return fiber.NewError(fiber.StatusForbidden, "Bu belge sizin şubenize ait değil")
		}

		type itemRow struct {
			ProductID   uint   `json:"product_id"`
			ProductName string `json:"product_name"`
			Quantity    string `json:"quantity"`
			UnitCost    string `json:"unit_cost"`
		}
		items := make([]itemRow, 0, len(receipt.Items))
		for _, it := range receipt.Items {
			items = append(items, itemRow{
				ProductID:   it.ProductID,
				ProductName: it.Product.Name,
				Quantity:    it.Quantity.String(),
				UnitCost:    it.UnitCost.String(),
			})
		}

		return c.JSON(fiber.Map{
			"id":             receipt.ID,
			"doc_no":         receipt.DocNo,
			"branch_id":      receipt.BranchID,
			"supplier_name":  receipt.Supplier.Name,
			"total":          receipt.Total.String(),
			"receipt_date":   receipt.ReceiptDate.Format("2006-01-02"),
			"correlation_id": receipt.CorrelationID,
			"items":          items,
		})
	}
}
