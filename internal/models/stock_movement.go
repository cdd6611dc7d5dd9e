package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementReceive MovementType = "receive"
	MovementSale    MovementType = "sale"
	MovementAdjust  MovementType = "adjust"
)

// StockMovement: her BulkBalance değişikliği için append-only iz kaydı.
// Bakiye güncellemesiyle aynı transaction içinde yazılır; asla güncellenmez
// veya silinmez.
type StockMovement struct {
	ID        uint `gorm:"primaryKey"`
	BranchID  uint `gorm:"index:idx_stock_movements_branch_product,priority:1;not null"`
	ProductID uint `gorm:"index:idx_stock_movements_branch_product,priority:2;not null"`
	Product   Product

	QtyDelta decimal.Decimal `gorm:"type:decimal(20,4);not null"` // işaretli
	Type     MovementType    `gorm:"size:20;not null;index"`

	// Hareketi doğuran belge: "purchase_receipt", "sale", "adjustment"
	RefType string `gorm:"size:30"`
	RefID   uint   `gorm:"index"`
	Note    string `gorm:"size:255"`

	CreatedAt time.Time `gorm:"index"`
}
