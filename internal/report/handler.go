// Package report: stok değerleme ve hareket özetleri. Değerleme simple
// ürünlerde bakiye x ortalama maliyet, seri ürünlerde stoktaki adetlerin
// giriş maliyeti toplamıdır.
package report

import (
	"fmt"
	"time"

	"perakende-backend/internal/auth"
	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type ValuationRow struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Mode        string `json:"mode"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	AvgCost     string `json:"avg_cost"`
	TotalValue  string `json:"total_value"`
}

// valuationRows: şubenin iki defterini tek değerleme listesinde birleştirir.
func valuationRows(branchID uint) ([]ValuationRow, decimal.Decimal, error) {
	rows := make([]ValuationRow, 0, 64)
	grandTotal := decimal.Zero

	var balances []models.BulkBalance
	if err := database.DB.Preload("Product").
		Where("branch_id = ?", branchID).
		Find(&balances).Error; err != nil {
		return nil, decimal.Zero, err
	}
	for _, b := range balances {
		value := b.Quantity.Mul(b.AvgCost).Round(4)
		rows = append(rows, ValuationRow{
			ProductID:   b.ProductID,
			ProductName: b.Product.Name,
			Mode:        string(models.ModeSimple),
			Unit:        b.Product.Unit,
			Quantity:    b.Quantity.String(),
			AvgCost:     b.AvgCost.String(),
			TotalValue:  value.String(),
		})
		grandTotal = grandTotal.Add(value)
	}

	// Seri ürünler: stoktaki adetler ve giriş maliyetleri toplamı.
	type serializedAgg struct {
		ProductID uint
		Name      string
		Unit      string
		Qty       int64
		Total     decimal.Decimal
	}
	var aggs []serializedAgg
	err := database.DB.Model(&models.SerializedUnit{}).
		Select("serialized_units.product_id, products.name, products.unit, COUNT(*) as qty, SUM(serialized_units.cost_at_receipt) as total").
		Joins("JOIN products ON products.id = serialized_units.product_id").
		Where("serialized_units.branch_id = ? AND serialized_units.status = ?", branchID, models.UnitInStock).
		Group("serialized_units.product_id, products.name, products.unit").
		Scan(&aggs).Error
	if err != nil {
		return nil, decimal.Zero, err
	}
	for _, a := range aggs {
		qty := decimal.NewFromInt(a.Qty)
		avg := decimal.Zero
		if a.Qty > 0 {
			avg = a.Total.Div(qty).Round(4)
		}
		rows = append(rows, ValuationRow{
			ProductID:   a.ProductID,
			ProductName: a.Name,
			Mode:        string(models.ModeSerialized),
			Unit:        a.Unit,
			Quantity:    qty.String(),
			AvgCost:     avg.String(),
			TotalValue:  a.Total.String(),
		})
		grandTotal = grandTotal.Add(a.Total)
	}

	return rows, grandTotal, nil
}

// GET /api/reports/valuation
func ValuationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		rows, total, err := valuationRows(branchID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Değerleme hesaplanamadı")
		}

		return c.JSON(fiber.Map{
			"branch_id":   branchID,
			"grand_total": total.String(),
			"rows":        rows,
		})
	}
}

// GET /api/reports/valuation/export: XLSX indirir
func ValuationExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", branchID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		rows, total, err := valuationRows(branchID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Değerleme hesaplanamadı")
		}

		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)

		headers := []string{"Ürün", "Mod", "Birim", "Miktar", "Ort. Maliyet", "Toplam Değer"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		for i, r := range rows {
			rowNum := i + 2
			values := []interface{}{r.ProductName, r.Mode, r.Unit, r.Quantity, r.AvgCost, r.TotalValue}
			for j, v := range values {
				cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
				f.SetCellValue(sheet, cell, v)
			}
		}

		totalRow := len(rows) + 3
		cell, _ := excelize.CoordinatesToCellName(1, totalRow)
		f.SetCellValue(sheet, cell, "GENEL TOPLAM")
		cell, _ = excelize.CoordinatesToCellName(6, totalRow)
		f.SetCellValue(sheet, cell, total.String())

		filename := fmt.Sprintf("degerleme_%s_%s.xlsx", branch.Name, time.Now().Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}
		return c.Send(buf.Bytes())
	}
}

type MovementSummaryRow struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Type        string `json:"type"`
	Quantity    string `json:"quantity"`
}

// GET /api/reports/movements?from=2026-01-01&to=2026-02-01: tip bazında özet
func MovementSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.StockMovement{}).
			Select("stock_movements.product_id, products.name, stock_movements.type, SUM(stock_movements.qty_delta) as qty").
			Joins("JOIN products ON products.id = stock_movements.product_id").
			Where("stock_movements.branch_id = ?", branchID).
			Group("stock_movements.product_id, products.name, stock_movements.type")

		if from := c.Query("from"); from != "" {
			dbq = dbq.Where("stock_movements.created_at >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			dbq = dbq.Where("stock_movements.created_at < ?", to)
		}

		type agg struct {
			ProductID uint
			Name      string
			Type      string
			Qty       decimal.Decimal
		}
		var aggs []agg
		if err := dbq.Scan(&aggs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hareket özeti hesaplanamadı")
		}

		rows := make([]MovementSummaryRow, 0, len(aggs))
		for _, a := range aggs {
			rows = append(rows, MovementSummaryRow{
				ProductID:   a.ProductID,
				ProductName: a.Name,
				Type:        a.Type,
				Quantity:    a.Qty.String(),
			})
		}
		return c.JSON(fiber.Map{"branch_id": branchID, "rows": rows})
	}
}
