package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Supplier struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:150;not null"`
	TaxNo string `gorm:"size:50"`
	Phone string `gorm:"size:50"`

	// IsSystem: iç/sistem tedarikçisi. Bu tedarikçilerden gelen mal girişleri
	// cari bakiyeye (CreditBalance) yazılmaz.
	IsSystem bool `gorm:"not null;default:false"`

	// CreditBalance: tedarikçiye olan borç. Mal girişiyle aynı transaction
	// içinde artırılır.
	CreditBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
