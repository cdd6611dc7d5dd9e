package models

import "time"

type ActivityAction string

const (
	ActivityCreate ActivityAction = "create"
	ActivityUpdate ActivityAction = "update"
	ActivityDelete ActivityAction = "delete"
)

// ActivityLog: CRUD ve iş akışı mutasyonlarının izleme kaydı. Yazımı
// fire-and-forget'tir, asıl işlemi asla bloklamaz.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	BranchID *uint `json:"branch_id"`

	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // denormalize

	// ör: "product", "supplier", "purchase_receipt", "sale", "count_session"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      ActivityAction `gorm:"size:20" json:"action"`
	Description string         `gorm:"size:255" json:"description"`

	// Yan yazımları eşlemek için (mal girişi / satış korelasyonu)
	CorrelationID string `gorm:"size:36;index" json:"correlation_id"`

	// Önceki ve sonraki hal (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
