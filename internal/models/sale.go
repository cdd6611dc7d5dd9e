package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Sale struct {
	ID       uint `gorm:"primaryKey"`
	BranchID uint `gorm:"index;not null"`
	Branch   Branch

	DocNo    string          `gorm:"size:30;not null;uniqueIndex"`
	Total    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	VatTotal decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	CorrelationID string `gorm:"size:36;index"`

	SaleDate  time.Time `gorm:"not null"`
	CreatedBy uint      `gorm:"not null"`

	Items []SaleItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

type SaleItem struct {
	ID        uint `gorm:"primaryKey"`
	SaleID    uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product

	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	VatAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	// UnitCode: seri modda satılan adedin barkodu. Simple satırlarda boş.
	// SerializedUnit silme korumasında referans olarak kullanılır.
	UnitCode *string `gorm:"size:30;index"`

	CreatedAt time.Time
}
