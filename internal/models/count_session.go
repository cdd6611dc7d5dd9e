package models

import "time"

type CountSessionStatus string

const (
	CountDraft     CountSessionStatus = "draft"
	CountConfirmed CountSessionStatus = "confirmed"
	CountCancelled CountSessionStatus = "cancelled"
)

type CountSessionMode string

const (
	// CountModeReady: sadece stoktaki seri ürünler sayılır. Şimdilik tek mod.
	CountModeReady CountSessionMode = "ready"
)

// CountSession: bir şube için fiziksel sayım kampanyası. Başlarken o an
// stokta olan seri ürünler CountSnapshotItem olarak dondurulur; oturum
// boyunca beklenen küme bir daha canlı sorgulanmaz. Kayıt asla silinmez.
type CountSession struct {
	ID       uint `gorm:"primaryKey"`
	BranchID uint `gorm:"index;not null"`
	Branch   Branch
	UserID   uint `gorm:"not null"`

	Mode   CountSessionMode   `gorm:"size:20;not null;default:ready"`
	Status CountSessionStatus `gorm:"size:20;not null;index;default:draft"`

	ExpectedCount int `gorm:"not null;default:0"`
	ScannedCount  int `gorm:"not null;default:0"`

	StartedAt   time.Time `gorm:"not null"`
	ConfirmedAt *time.Time
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Closed: oturum kapalı mı? Status enum'una tek başına güvenilmez; şema
// sürümleri arasında enum kayarsa confirmed_at damgası ikinci emniyet.
func (s *CountSession) Closed() bool {
	return s.ConfirmedAt != nil || s.Status != CountDraft
}

// CountSnapshotItem: oturum başında dondurulan beklenen adet. Sadece Scanned
// alanı bir kez false -> true geçer, gerisi değişmez.
type CountSnapshotItem struct {
	ID        uint `gorm:"primaryKey"`
	SessionID uint `gorm:"index:idx_count_snapshot_session_code,priority:1;not null"`
	UnitID    uint `gorm:"index;not null"`

	// Dondurma anındaki değerler (unit sonradan değişse bile sayım kaydı sabit kalır)
	Code        string  `gorm:"size:30;not null;index:idx_count_snapshot_session_code,priority:2"`
	SerialNo    *string `gorm:"size:100;index"`
	ProductName string  `gorm:"size:150"`

	Scanned   bool `gorm:"not null;default:false"`
	ScannedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CountScanLog: kabul edilen her okutmanın append-only izi (kim, ne zaman, hangi adet).
type CountScanLog struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      uint   `gorm:"index;not null"`
	SnapshotItemID uint   `gorm:"index;not null"`
	UserID         uint   `gorm:"not null"`
	Code           string `gorm:"size:30;not null"`
	CreatedAt      time.Time
}
