package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BulkBalance: simple mod ürünler için (şube, ürün) bazında toplam stok.
// İlk harekette tembel oluşturulur, asla silinmez (miktar sıfırda kalabilir).
// Quantity sadece ürün AllowNegative ise eksiye düşebilir.
type BulkBalance struct {
	ID        uint `gorm:"primaryKey"`
	BranchID  uint `gorm:"not null;uniqueIndex:idx_bulk_balance_branch_product,priority:1"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_bulk_balance_branch_product,priority:2"`
	Product   Product

	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	// AvgCost: hareketli ağırlıklı ortalama maliyet. Sadece mal girişi ve
	// maliyetli pozitif düzeltme ile değişir.
	AvgCost  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	LastCost decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
