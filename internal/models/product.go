package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductMode string

const (
	// ModeSerialized: her fiziksel adet tek tek barkodla izlenir (SerializedUnit).
	ModeSerialized ProductMode = "serialized"
	// ModeSimple: stok toplam miktar olarak izlenir (BulkBalance).
	ModeSimple ProductMode = "simple"
)

type Product struct {
	ID         uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"index;not null"`
	Category   Category
	SupplierID *uint `gorm:"index"`
	Supplier   *Supplier

	Name string      `gorm:"size:150;not null"`
	Mode ProductMode `gorm:"size:20;not null;default:simple"`
	Unit string      `gorm:"size:20;not null"` // adet, kg, koli vs.

	SalePrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	VatRate   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"` // yüzde

	// AllowNegative: true ise satış stoktan fazla olabilir, bakiye eksiye düşer
	// (ön sipariş modu).
	AllowNegative bool `gorm:"not null;default:false"`

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
