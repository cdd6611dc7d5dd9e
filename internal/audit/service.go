// Package audit: fiziksel sayım oturumları. Oturum başında stoktaki seri
// ürünler dondurulur (snapshot); okutmalar sadece bu beklenen küme içinde
// aranır. Kapanışta okunmayanlar kayıp/incelemede durumuna geçirilir.
package audit

import (
	"errors"
	"time"

	"perakende-backend/internal/apperr"
	"perakende-backend/internal/models"

	"gorm.io/gorm"
)

// Kapanışta okunmamış ürünlere uygulanacak strateji.
const (
	StrategyMarkLost    = "mark-lost"
	StrategyMarkPending = "mark-pending" // varsayılan
)

// StartSession: şube için taslak oturum açar ve o an in_stock olan seri
// ürünleri snapshot'a dondurur. Şube başına aynı anda tek taslak oturum;
// servis kontrolünün yanında asıl garanti kısmi unique index
// (idx_count_sessions_one_draft).
func StartSession(db *gorm.DB, branchID, userID uint) (*models.CountSession, error) {
	var session *models.CountSession

	err := db.Transaction(func(tx *gorm.DB) error {
		var openCount int64
		tx.Model(&models.CountSession{}).
			Where("branch_id = ? AND status = ?", branchID, models.CountDraft).
			Count(&openCount)
		if openCount > 0 {
			return apperr.Conflict("SessionAlreadyOpen",
				"Bu şube için açık bir sayım oturumu zaten var")
		}

		var units []models.SerializedUnit
		if err := tx.Preload("Product").
			Where("branch_id = ? AND status = ?", branchID, models.UnitInStock).
			Find(&units).Error; err != nil {
			return err
		}

		s := models.CountSession{
			BranchID:      branchID,
			UserID:        userID,
			Mode:          models.CountModeReady,
			Status:        models.CountDraft,
			ExpectedCount: len(units),
			StartedAt:     time.Now(),
		}
		if err := tx.Create(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("SessionAlreadyOpen",
					"Bu şube için açık bir sayım oturumu zaten var")
			}
			return err
		}

		if len(units) > 0 {
			items := make([]models.CountSnapshotItem, 0, len(units))
			for _, u := range units {
				items = append(items, models.CountSnapshotItem{
					SessionID:   s.ID,
					UnitID:      u.ID,
					Code:        u.Code,
					SerialNo:    u.SerialNo,
					ProductName: u.Product.Name,
				})
			}
			if err := tx.CreateInBatches(items, 500).Error; err != nil {
				return err
			}
		}

		session = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// sessionScoped: oturumu yükler ve şube kapsamını doğrular. Yanlış şube
// NotFound değil Authorization döner.
func sessionScoped(tx *gorm.DB, sessionID, branchID uint) (*models.CountSession, error) {
	var s models.CountSession
	err := tx.First(&s, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("SessionNotFound", "Sayım oturumu bulunamadı")
	}
	if err != nil {
		return nil, err
	}
	if s.BranchID != branchID {
		return nil, apperr.Authorization("BranchMismatch", "Sayım oturumu sizin şubenize ait değil")
	}
	return &s, nil
}

// Scan: code veya serial ile beklenen kümede arar; bulursa scanned bayrağını
// koşullu güncellemeyle çevirir. İki eşzamanlı okutmadan sadece biri kazanır,
// diğeri DuplicateScan alır; mekanizma etkilenen satır sayısı kontrolü.
func Scan(db *gorm.DB, sessionID, branchID, userID uint, code, serial string) (*models.CountSnapshotItem, error) {
	if code == "" && serial == "" {
		return nil, apperr.Validation("EmptyScan", "Barkod veya seri numarası gerekli")
	}

	var item *models.CountSnapshotItem

	err := db.Transaction(func(tx *gorm.DB) error {
		session, err := sessionScoped(tx, sessionID, branchID)
		if err != nil {
			return err
		}
		if session.Closed() {
			return apperr.Conflict("SessionClosed", "Sayım oturumu kapalı, okutma kabul edilmez")
		}

		// Arama oturumun kendi snapshot'ı içinde yapılır, canlı stokta değil.
		// Oturum başladıktan sonra gelen ürünler bilerek kapsam dışıdır.
		var snap models.CountSnapshotItem
		q := tx.Where("session_id = ?", sessionID)
		if code != "" {
			q = q.Where("code = ?", code)
		} else {
			q = q.Where("serial_no = ?", serial)
		}
		err = q.First(&snap).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail := code
			if detail == "" {
				detail = serial
			}
			return apperr.Conflict("NotInExpectedSet",
				"Bu ürün sayım başlangıcında beklenen kümede yok", detail)
		}
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.CountSnapshotItem{}).
			Where("id = ? AND scanned = false", snap.ID).
			Updates(map[string]interface{}{
				"scanned":    true,
				"scanned_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("DuplicateScan", "Bu ürün zaten okutulmuş", snap.Code)
		}

		if err := tx.Create(&models.CountScanLog{
			SessionID:      sessionID,
			SnapshotItemID: snap.ID,
			UserID:         userID,
			Code:           snap.Code,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.CountSession{}).
			Where("id = ?", sessionID).
			UpdateColumn("scanned_count", gorm.Expr("scanned_count + 1")).Error; err != nil {
			return err
		}

		snap.Scanned = true
		snap.ScannedAt = &now
		item = &snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Confirm: taslak oturumu kapatır. Okunmamış her snapshot kaydının altındaki
// ürün stratejiye göre lost ya da missing_pending_review durumuna geçer.
// Toplu geçiş ve oturum kapanışı tek transaction'dadır; yarıda kalan
// onaylama olamaz.
func Confirm(db *gorm.DB, sessionID, branchID uint, strategy string) (*models.CountSession, error) {
	var target models.UnitStatus
	switch strategy {
	case StrategyMarkLost:
		target = models.UnitLost
	case StrategyMarkPending, "":
		target = models.UnitMissingPending
	default:
		return nil, apperr.Validation("InvalidStrategy",
			"Strateji mark-lost veya mark-pending olmalı", strategy)
	}

	var session *models.CountSession

	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := sessionScoped(tx, sessionID, branchID)
		if err != nil {
			return err
		}
		if s.Closed() {
			return apperr.Conflict("SessionClosed", "Sayım oturumu zaten kapalı")
		}

		// Okunmayanların altındaki ürünler; sadece hâlâ in_stock olanlar geçer.
		// Oturum sırasında satılan ürünün durumu ezilmez.
		err = tx.Model(&models.SerializedUnit{}).
			Where("id IN (?) AND status = ?",
				tx.Model(&models.CountSnapshotItem{}).
					Select("unit_id").
					Where("session_id = ? AND scanned = false", sessionID),
				models.UnitInStock).
			Update("status", target).Error
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.CountSession{}).
			Where("id = ? AND status = ?", sessionID, models.CountDraft).
			Updates(map[string]interface{}{
				"status":       models.CountConfirmed,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("SessionClosed", "Sayım oturumu bu arada kapatıldı")
		}

		s.Status = models.CountConfirmed
		s.ConfirmedAt = &now
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel: taslak oturumu hiçbir ürün durumuna dokunmadan kapatır.
func Cancel(db *gorm.DB, sessionID, branchID uint) (*models.CountSession, error) {
	var session *models.CountSession

	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := sessionScoped(tx, sessionID, branchID)
		if err != nil {
			return err
		}
		if s.Closed() {
			return apperr.Conflict("SessionClosed", "Sayım oturumu zaten kapalı")
		}

		now := time.Now()
		res := tx.Model(&models.CountSession{}).
			Where("id = ? AND status = ?", sessionID, models.CountDraft).
			Updates(map[string]interface{}{
				"status":       models.CountCancelled,
				"cancelled_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("SessionClosed", "Sayım oturumu bu arada kapatıldı")
		}

		s.Status = models.CountCancelled
		s.CancelledAt = &now
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

type OverviewResult struct {
	Session       *models.CountSession
	ExpectedCount int
	ScannedCount  int
	MissingCount  int
}

func Overview(db *gorm.DB, sessionID, branchID uint) (*OverviewResult, error) {
	s, err := sessionScoped(db, sessionID, branchID)
	if err != nil {
		return nil, err
	}
	return &OverviewResult{
		Session:       s,
		ExpectedCount: s.ExpectedCount,
		ScannedCount:  s.ScannedCount,
		MissingCount:  s.ExpectedCount - s.ScannedCount,
	}, nil
}

type ListItemsFilter struct {
	Scanned *bool
	Query   string // code/serial/ürün adı içinde arama
	Limit   int
	Offset  int
}

func ListItems(db *gorm.DB, sessionID, branchID uint, f ListItemsFilter) ([]models.CountSnapshotItem, int64, error) {
	if _, err := sessionScoped(db, sessionID, branchID); err != nil {
		return nil, 0, err
	}

	dbq := db.Model(&models.CountSnapshotItem{}).Where("session_id = ?", sessionID)
	if f.Scanned != nil {
		dbq = dbq.Where("scanned = ?", *f.Scanned)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		dbq = dbq.Where("code ILIKE ? OR serial_no ILIKE ? OR product_name ILIKE ?", like, like, like)
	}

	var total int64
	dbq.Count(&total)

	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 100
	}

	var items []models.CountSnapshotItem
	err := dbq.Order("id").Limit(f.Limit).Offset(f.Offset).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
