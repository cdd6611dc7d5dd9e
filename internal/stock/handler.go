package stock

import (
	"fmt"

	"perakende-backend/internal/activity"
	"perakende-backend/internal/auth"
	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type UnitResponse struct {
	ID            uint    `json:"id"`
	Code          string  `json:"code"`
	SerialNo      *string `json:"serial_no"`
	BranchID      uint    `json:"branch_id"`
	ProductID     uint    `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Status        string  `json:"status"`
	CostAtReceipt string  `json:"cost_at_receipt"`
	ReceivedAt    string  `json:"received_at"`
	SoldAt        *string `json:"sold_at"`
	ExpiresAt     *string `json:"expires_at"`
	Remark        string  `json:"remark"`
}

func toUnitResponse(u *models.SerializedUnit) UnitResponse {
	resp := UnitResponse{
		ID:            u.ID,
		Code:          u.Code,
		SerialNo:      u.SerialNo,
		BranchID:      u.BranchID,
		ProductID:     u.ProductID,
		ProductName:   u.Product.Name,
		Status:        string(u.Status),
		CostAtReceipt: u.CostAtReceipt.String(),
		ReceivedAt:    u.ReceivedAt.Format("2006-01-02 15:04:05"),
		Remark:        u.Remark,
	}
	if u.SoldAt != nil {
		s := u.SoldAt.Format("2006-01-02 15:04:05")
		resp.SoldAt = &s
	}
	if u.ExpiresAt != nil {
		s := u.ExpiresAt.Format("2006-01-02")
		resp.ExpiresAt = &s
	}
	return resp
}

// GET /api/units?status=in_stock&product_id=3&q=ABC&branch_id=1
func ListUnitsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.SerializedUnit{}).
			Preload("Product").
			Where("branch_id = ?", branchID)

		if st := c.Query("status"); st != "" {
			dbq = dbq.Where("status = ?", st)
		}
		if pidStr := c.Query("product_id"); pidStr != "" {
			var pid uint
			if _, err := fmt.Sscan(pidStr, &pid); err == nil && pid > 0 {
				dbq = dbq.Where("product_id = ?", pid)
			}
		}
		if q := c.Query("q"); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("code ILIKE ? OR serial_no ILIKE ?", like, like)
		}

		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}
		offset := c.QueryInt("offset", 0)

		var total int64
		dbq.Count(&total)

		var units []models.SerializedUnit
		if err := dbq.Order("received_at DESC").Limit(limit).Offset(offset).Find(&units).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler getirilemedi")
		}

		items := make([]UnitResponse, 0, len(units))
		for i := range units {
			items = append(items, toUnitResponse(&units[i]))
		}
		return c.JSON(fiber.Map{"total": total, "items": items})
	}
}

// GET /api/units/:code
func GetUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		unit, err := unitByCode(database.DB.Preload("Product"), branchID, c.Params("code"))
		if err != nil {
			return err
		}
		return c.JSON(toUnitResponse(unit))
	}
}

type UpdateSerialRequest struct {
	SerialNo *string `json:"serial_no"`
	BranchID *uint   `json:"branch_id"`
}

// PUT /api/units/:code/serial
func UpdateSerialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateSerialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		unit, err := UpdateSerial(tx, branchID, c.Params("code"), body.SerialNo)
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
				Description: fmt.Sprintf("Seri no güncellendi: %s", unit.Code),
				After:       unit,
			})
		}

		return c.JSON(toUnitResponse(unit))
	}
}

type UnitStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=claimed damaged used"`
	BranchID *uint  `json:"branch_id"`
}

// POST /api/units/:code/status: in_stock'tan claimed/damaged/used geçişi
func MarkUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UnitStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "status claimed/damaged/used olmalı")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		unit, err := MarkUnit(tx, branchID, c.Params("code"), models.UnitStatus(body.Status))
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
				Description: fmt.Sprintf("Ürün durumu: %s -> %s", unit.Code, body.Status),
				After:       unit,
			})
		}

		return c.JSON(toUnitResponse(unit))
	}
}

type CorrectUnitRequest struct {
	BranchID *uint `json:"branch_id"`
}

// POST /api/units/:code/correct: yönetici düzeltmesi, stoğa geri al
func CorrectUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CorrectUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		unit, err := CorrectToStock(tx, branchID, c.Params("code"))
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
				Description: fmt.Sprintf("Ürün stoğa geri alındı: %s", unit.Code),
				After:       unit,
			})
		}

		return c.JSON(toUnitResponse(unit))
	}
}

// DELETE /api/units/:code: sadece el değmemiş in_stock
func DeleteUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		code := c.Params("code")

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		if err := DeleteUnit(tx, branchID, code); err != nil {
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
				Action:      models.ActivityDelete,
				Description: fmt.Sprintf("Ürün silindi: %s", code),
			})
		}

		return c.JSON(fiber.Map{"deleted": code})
	}
}

type AdjustmentRequest struct {
	ProductID uint             `json:"product_id" validate:"required"`
	QtyDelta  decimal.Decimal  `json:"qty_delta"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	Note      string           `json:"note" validate:"max=255"`
	BranchID  *uint            `json:"branch_id"`
}

// POST /api/adjustments: simple ürün bakiye düzeltmesi
func CreateAdjustmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem başlatılamadı")
		}

		product, err := ProductByID(tx, body.ProductID)
		if err != nil {
			tx.Rollback()
			return err
		}
		if product.Mode != models.ModeSimple {
			tx.Rollback()
			return fiber.NewError(fiber.StatusBadRequest, "Bakiye düzeltmesi sadece simple mod ürünler için")
		}

		ref := MovementRef{Type: "adjustment", Note: body.Note}
		if err := ApplyAdjustment(tx, branchID, product, body.QtyDelta, body.UnitCost, ref); err != nil {
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
				EntityType:  "bulk_balance",
				EntityID:    product.ID,
				Action:      models.ActivityUpdate,
				Description: fmt.Sprintf("Stok düzeltmesi: %s %s %s", product.Name, body.QtyDelta.String(), product.Unit),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"product_id": product.ID,
			"qty_delta":  body.QtyDelta.String(),
		})
	}
}

type BalanceResponse struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	AvgCost     string `json:"avg_cost"`
	LastCost    string `json:"last_cost"`
}

// GET /api/balances?branch_id=1
func ListBalancesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		var balances []models.BulkBalance
		if err := database.DB.Preload("Product").
			Where("branch_id = ?", branchID).
			Order("product_id").
			Find(&balances).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bakiyeler getirilemedi")
		}

		resp := make([]BalanceResponse, 0, len(balances))
		for _, b := range balances {
			resp = append(resp, BalanceResponse{
				ProductID:   b.ProductID,
				ProductName: b.Product.Name,
				Unit:        b.Product.Unit,
				Quantity:    b.Quantity.String(),
				AvgCost:     b.AvgCost.String(),
				LastCost:    b.LastCost.String(),
			})
		}
		return c.JSON(resp)
	}
}

type MovementResponse struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	QtyDelta    string `json:"qty_delta"`
	Type        string `json:"type"`
	RefType     string `json:"ref_type"`
	RefID       uint   `json:"ref_id"`
	Note        string `json:"note"`
	CreatedAt   string `json:"created_at"`
}

// GET /api/movements?product_id=3&type=sale&from=2026-01-01&to=2026-02-01
func ListMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.StockMovement{}).
			Preload("Product").
			Where("branch_id = ?", branchID)

		if pidStr := c.Query("product_id"); pidStr != "" {
			var pid uint
			if _, err := fmt.Sscan(pidStr, &pid); err == nil && pid > 0 {
				dbq = dbq.Where("product_id = ?", pid)
			}
		}
		if mt := c.Query("type"); mt != "" {
			dbq = dbq.Where("type = ?", mt)
		}
		if from := c.Query("from"); from != "" {
			dbq = dbq.Where("created_at >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			dbq = dbq.Where("created_at < ?", to)
		}

		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 500 {
			limit = 100
		}
		offset := c.QueryInt("offset", 0)

		var total int64
		dbq.Count(&total)

		var movements []models.StockMovement
		if err := dbq.Order("created_at DESC").Limit(limit).Offset(offset).Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hareketler getirilemedi")
		}

		items := make([]MovementResponse, 0, len(movements))
		for _, m := range movements {
			items = append(items, MovementResponse{
				ID:          m.ID,
				ProductID:   m.ProductID,
				ProductName: m.Product.Name,
				QtyDelta:    m.QtyDelta.String(),
				Type:        string(m.Type),
				RefType:     m.RefType,
				RefID:       m.RefID,
				Note:        m.Note,
				CreatedAt:   m.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(fiber.Map{"total": total, "items": items})
	}
}
