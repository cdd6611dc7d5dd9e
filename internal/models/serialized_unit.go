package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UnitStatus string

const (
	UnitInStock  UnitStatus = "in_stock"
	UnitSold     UnitStatus = "sold"
	UnitReturned UnitStatus = "returned"
	UnitClaimed  UnitStatus = "claimed"
	UnitDamaged  UnitStatus = "damaged"
	UnitLost     UnitStatus = "lost"
	UnitUsed     UnitStatus = "used"
	// UnitMissingPending: sayımda bulunamadı, incelemede. Düzeltme ile
	// tekrar stoğa alınabilir.
	UnitMissingPending UnitStatus = "missing_pending_review"
)

// SerializedUnit: tek tek izlenen fiziksel ürün adedi. Barkod (Code) sistem
// genelinde tekildir, şube bazında değil. Oluşturulduktan sonra sadece
// tanımlı durum geçişleriyle güncellenir; bir geçiş yaşadıysa asla silinmez.
type SerializedUnit struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:30;not null;uniqueIndex"`

	// SerialNo: üretici seri numarası, opsiyonel. Dolu olduğunda tekil.
	SerialNo *string `gorm:"size:100;uniqueIndex"`

	BranchID  uint `gorm:"index;not null"`
	Branch    Branch
	ProductID uint `gorm:"index;not null"`
	Product   Product

	Status        UnitStatus      `gorm:"size:30;not null;index;default:in_stock"`
	CostAtReceipt decimal.Decimal `gorm:"type:decimal(20,4);not null"`

	ReceivedAt time.Time `gorm:"not null"`
	SoldAt     *time.Time
	ExpiresAt  *time.Time
	Remark     string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
