package stock

import (
	"errors"

	"perakende-backend/internal/apperr"
	"perakende-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementRef: hareketi doğuran belge. Her bakiye değişikliğiyle aynı
// transaction'da bir StockMovement satırına yazılır.
type MovementRef struct {
	Type string // "purchase_receipt", "sale", "adjustment"
	ID   uint
	Note string
}

// NextAverageCost: hareketli ağırlıklı ortalama maliyet formülü.
// Önceki miktar sıfır/negatifse veya ortalama hiç oluşmamışsa yeni maliyet
// doğrudan ortalama olur. Tamamen decimal, float yok.
func NextAverageCost(oldQty, oldAvg, qty, unitCost decimal.Decimal) decimal.Decimal {
	if oldQty.Sign() <= 0 || oldAvg.Sign() <= 0 {
		return unitCost
	}
	newQty := oldQty.Add(qty)
	return oldQty.Mul(oldAvg).Add(qty.Mul(unitCost)).Div(newQty).Round(4)
}

// LineCalc: satış satırı fiyat hesabı sonucu.
type LineCalc struct {
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	VatAmount decimal.Decimal
}

// CalcLine: unitPrice = basePrice - discount, lineTotal = unitPrice * qty,
// vatAmount = lineTotal * vatRate / 100.
func CalcLine(basePrice, discount, qty, vatRate decimal.Decimal) LineCalc {
	unitPrice := basePrice.Sub(discount)
	lineTotal := unitPrice.Mul(qty)
	vatAmount := lineTotal.Mul(vatRate).Div(decimal.NewFromInt(100)).Round(4)
	return LineCalc{UnitPrice: unitPrice, LineTotal: lineTotal, VatAmount: vatAmount}
}

// lockBalance: (şube, ürün) bakiye satırını FOR UPDATE ile kilitleyip döner;
// yoksa önce oluşturur. Aynı satıra yazan eşzamanlı işlemler bu kilit
// üzerinden sıralanır.
func lockBalance(tx *gorm.DB, branchID, productID uint) (*models.BulkBalance, error) {
	err := tx.Exec(`
		INSERT INTO bulk_balances (branch_id, product_id, quantity, avg_cost, last_cost, created_at, updated_at)
		VALUES (?, ?, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (branch_id, product_id) DO NOTHING
	`, branchID, productID).Error
	if err != nil {
		return nil, err
	}

	var bal models.BulkBalance
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&bal).Error
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

func appendMovement(tx *gorm.DB, branchID, productID uint, delta decimal.Decimal,
	mType models.MovementType, ref MovementRef) error {
	return tx.Create(&models.StockMovement{
		BranchID:  branchID,
		ProductID: productID,
		QtyDelta:  delta,
		Type:      mType,
		RefType:   ref.Type,
		RefID:     ref.ID,
		Note:      ref.Note,
	}).Error
}

// ApplyReceipt: mal girişi. Bakiyeyi artırır, ortalama maliyeti günceller,
// hareketi yazar. Hepsi çağıranın tx'i içinde.
func ApplyReceipt(tx *gorm.DB, branchID, productID uint, qty, unitCost decimal.Decimal, ref MovementRef) error {
	if qty.Sign() <= 0 {
		return apperr.Validation("InvalidQuantity", "Giriş miktarı pozitif olmalı")
	}
	if unitCost.IsNegative() {
		return apperr.Validation("InvalidCost", "Birim maliyet negatif olamaz")
	}

	bal, err := lockBalance(tx, branchID, productID)
	if err != nil {
		return err
	}

	newQty := bal.Quantity.Add(qty)
	newAvg := NextAverageCost(bal.Quantity, bal.AvgCost, qty, unitCost)

	err = tx.Model(bal).Updates(map[string]interface{}{
		"quantity":  newQty,
		"avg_cost":  newAvg,
		"last_cost": unitCost,
	}).Error
	if err != nil {
		return err
	}

	return appendMovement(tx, branchID, productID, qty, models.MovementReceive, ref)
}

// ApplySale: satış düşümü. Ortalama maliyete dokunmaz; maliyet tabanı sadece
// giriş/düzeltme ile değişir. Stok yetmiyorsa ve ürün eksi stoğa izin
// vermiyorsa InsufficientStock.
func ApplySale(tx *gorm.DB, branchID uint, product *models.Product,
	qty, basePrice, discount decimal.Decimal, ref MovementRef) (*LineCalc, error) {

	if qty.Sign() <= 0 {
		return nil, apperr.Validation("InvalidQuantity", "Satış miktarı pozitif olmalı")
	}
	if basePrice.Sub(discount).IsNegative() {
		return nil, apperr.Validation("InvalidDiscount", "İndirim birim fiyatı aşamaz")
	}

	bal, err := lockBalance(tx, branchID, product.ID)
	if err != nil {
		return nil, err
	}

	if bal.Quantity.LessThan(qty) && !product.AllowNegative {
		return nil, apperr.Insufficient("InsufficientStock",
			"Stok yetersiz", product.Name, "eldeki: "+bal.Quantity.String())
	}

	if err := tx.Model(bal).Update("quantity", bal.Quantity.Sub(qty)).Error; err != nil {
		return nil, err
	}

	if err := appendMovement(tx, branchID, product.ID, qty.Neg(), models.MovementSale, ref); err != nil {
		return nil, err
	}

	calc := CalcLine(basePrice, discount, qty, product.VatRate)
	return &calc, nil
}

// ApplyAdjustment: elle düzeltme. Maliyetli pozitif delta ortalamayı aynen
// giriş gibi günceller; negatif delta veya maliyetsiz pozitif delta
// ortalamaya dokunmaz.
func ApplyAdjustment(tx *gorm.DB, branchID uint, product *models.Product,
	qtyDelta decimal.Decimal, unitCost *decimal.Decimal, ref MovementRef) error {

	if qtyDelta.IsZero() {
		return apperr.Validation("InvalidQuantity", "Düzeltme miktarı sıfır olamaz")
	}
	if unitCost != nil && unitCost.IsNegative() {
		return apperr.Validation("InvalidCost", "Birim maliyet negatif olamaz")
	}

	bal, err := lockBalance(tx, branchID, product.ID)
	if err != nil {
		return err
	}

	newQty := bal.Quantity.Add(qtyDelta)
	if newQty.IsNegative() && !product.AllowNegative {
		return apperr.Insufficient("InsufficientStock",
			"Düzeltme stoğu eksiye düşürüyor", product.Name, "eldeki: "+bal.Quantity.String())
	}

	updates := map[string]interface{}{"quantity": newQty}
	if qtyDelta.Sign() > 0 && unitCost != nil {
		updates["avg_cost"] = NextAverageCost(bal.Quantity, bal.AvgCost, qtyDelta, *unitCost)
		updates["last_cost"] = *unitCost
	}

	if err := tx.Model(bal).Updates(updates).Error; err != nil {
		return err
	}

	return appendMovement(tx, branchID, product.ID, qtyDelta, models.MovementAdjust, ref)
}

// ProductByID: tx içinde ürünü yükler. Simple/serialized mod ayrımı çağıran
// tarafta yapılır.
func ProductByID(tx *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	err := tx.First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("ProductNotFound", "Ürün bulunamadı")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
