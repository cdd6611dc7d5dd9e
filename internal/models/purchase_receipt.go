package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseReceipt: mal giriş belgesi. Satırları seri modda SerializedUnit'lere,
// simple modda BulkBalance hareketine dönüşür.
type PurchaseReceipt struct {
	ID         uint `gorm:"primaryKey"`
	BranchID   uint `gorm:"index;not null"`
	Branch     Branch
	SupplierID uint `gorm:"index;not null"`
	Supplier   Supplier

	DocNo string          `gorm:"size:30;not null;uniqueIndex"`
	Total decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	// CorrelationID: aynı girişin tüm yan yazımlarını (unit, hareket, cari)
	// loglarda eşlemek için.
	CorrelationID string `gorm:"size:36;index"`

	ReceiptDate time.Time `gorm:"not null"`
	CreatedBy   uint      `gorm:"not null"`

	Items []PurchaseReceiptItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PurchaseReceiptItem struct {
	ID                uint `gorm:"primaryKey"`
	PurchaseReceiptID uint `gorm:"index;not null"`
	ProductID         uint `gorm:"index;not null"`
	Product           Product

	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	UnitCost decimal.Decimal `gorm:"type:decimal(20,4);not null"`

	CreatedAt time.Time
}
