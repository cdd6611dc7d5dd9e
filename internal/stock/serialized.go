// Package stock: envanter durumunun iki defteri. serialized.go tek tek
// izlenen adetlerin durum makinesini, bulk.go toplam bakiyeleri yönetir.
// Buradaki fonksiyonlar çağıranın transaction'ı (tx) içinde çalışır; hata
// dönerse çağıran rollback yapar, kısmi etki kalmaz.
package stock

import (
	"errors"
	"time"

	"perakende-backend/internal/apperr"
	"perakende-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReceiveUnitParams struct {
	Code          string
	SerialNo      *string
	BranchID      uint // belgenin şubesi
	CallerBranch  uint // işlemi yapanın yetkili şubesi
	ProductID     uint
	CostAtReceipt decimal.Decimal
	ReceivedAt    time.Time
	ExpiresAt     *time.Time
	Remark        string
}

// ReceiveUnit: bir adedi stoğa alır (in_stock). Barkod sistem genelinde
// tekildir; ön kontrol sadece hızlı yol, asıl garanti unique index.
func ReceiveUnit(tx *gorm.DB, p ReceiveUnitParams) (*models.SerializedUnit, error) {
	if p.BranchID != p.CallerBranch {
		return nil, apperr.Authorization("CrossBranchMismatch",
			"Belgenin şubesi ile yetkili şube uyuşmuyor")
	}
	if p.Code == "" {
		return nil, apperr.Validation("InvalidCode", "Barkod boş olamaz")
	}
	if p.CostAtReceipt.IsNegative() {
		return nil, apperr.Validation("InvalidCost", "Maliyet negatif olamaz")
	}

	var count int64
	tx.Model(&models.SerializedUnit{}).Where("code = ?", p.Code).Count(&count)
	if count > 0 {
		return nil, apperr.Conflict("DuplicateCode", "Barkod zaten kayıtlı", p.Code)
	}
	if p.SerialNo != nil && *p.SerialNo != "" {
		tx.Model(&models.SerializedUnit{}).Where("serial_no = ?", *p.SerialNo).Count(&count)
		if count > 0 {
			return nil, apperr.Conflict("DuplicateSerial", "Seri numarası zaten kayıtlı", *p.SerialNo)
		}
	}

	unit := models.SerializedUnit{
		Code:          p.Code,
		SerialNo:      p.SerialNo,
		BranchID:      p.BranchID,
		ProductID:     p.ProductID,
		Status:        models.UnitInStock,
		CostAtReceipt: p.CostAtReceipt,
		ReceivedAt:    p.ReceivedAt,
		ExpiresAt:     p.ExpiresAt,
		Remark:        p.Remark,
	}
	if err := tx.Create(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("DuplicateCode", "Barkod zaten kayıtlı", p.Code)
		}
		return nil, err
	}
	return &unit, nil
}

// SellUnits: bir barkod kümesini in_stock -> sold geçirir. Ya hepsi ya hiçbiri:
// etkilenen satır sayısı istenen adede eşit değilse hata döner ve çağıran
// rollback yapar. Hangi kodların uygun olmadığı hataya eklenir.
func SellUnits(tx *gorm.DB, branchID uint, codes []string, soldAt time.Time) error {
	if len(codes) == 0 {
		return apperr.Validation("EmptyCodes", "En az bir barkod gerekli")
	}
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			return apperr.Validation("DuplicateInput", "Aynı barkod birden fazla kez gönderildi", code)
		}
		seen[code] = true
	}

	res := tx.Model(&models.SerializedUnit{}).
		Where("code IN ? AND branch_id = ? AND status = ?", codes, branchID, models.UnitInStock).
		Updates(map[string]interface{}{
			"status":  models.UnitSold,
			"sold_at": soldAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(codes)) {
		return apperr.Conflict("UnitsUnavailable",
			"Bazı ürünler satışa uygun değil", unavailableCodes(tx, branchID, codes)...)
	}
	return nil
}

// unavailableCodes: satılamayan kodları hata detayı için toplar. Bu sorgu
// rollback edilecek tx içinde koşar, sadece raporlama amaçlı.
func unavailableCodes(tx *gorm.DB, branchID uint, codes []string) []string {
	var available []string
	tx.Model(&models.SerializedUnit{}).
		Where("code IN ? AND branch_id = ? AND status = ?", codes, branchID, models.UnitSold).
		Pluck("code", &available) // az önce güncellenenler
	ok := make(map[string]bool, len(available))
	for _, c := range available {
		ok[c] = true
	}
	var bad []string
	for _, c := range codes {
		if !ok[c] {
			bad = append(bad, c)
		}
	}
	return bad
}

// ReturnUnit: sold -> returned. Aynı iadenin iki kez işlenmesine karşı
// koşullu güncelleme; kazanan tek olur.
func ReturnUnit(tx *gorm.DB, branchID uint, code string) (*models.SerializedUnit, error) {
	unit, err := unitByCode(tx, branchID, code)
	if err != nil {
		return nil, err
	}
	if unit.Status == models.UnitReturned {
		return nil, apperr.Conflict("AlreadyReturned", "Bu ürün zaten iade edilmiş", code)
	}
	if unit.Status != models.UnitSold {
		return nil, apperr.Conflict("UnitNotSold", "Sadece satılmış ürün iade edilebilir", code)
	}

	res := tx.Model(&models.SerializedUnit{}).
		Where("id = ? AND status = ?", unit.ID, models.UnitSold).
		Update("status", models.UnitReturned)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, apperr.Conflict("AlreadyReturned", "Bu ürün zaten iade edilmiş", code)
	}
	unit.Status = models.UnitReturned
	return unit, nil
}

// CorrectToStock: yönetici düzeltmesi. Sadece returned veya
// missing_pending_review durumundan stoğa dönüş; otomatik bir akış değildir.
func CorrectToStock(tx *gorm.DB, branchID uint, code string) (*models.SerializedUnit, error) {
	unit, err := unitByCode(tx, branchID, code)
	if err != nil {
		return nil, err
	}
	if unit.Status != models.UnitReturned && unit.Status != models.UnitMissingPending {
		return nil, apperr.Conflict("InvalidTransition",
			"Bu durumdan stoğa dönüş yapılamaz", code, string(unit.Status))
	}

	res := tx.Model(&models.SerializedUnit{}).
		Where("id = ? AND status = ?", unit.ID, unit.Status).
		Updates(map[string]interface{}{
			"status":  models.UnitInStock,
			"sold_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, apperr.Conflict("InvalidTransition", "Ürün durumu bu arada değişti", code)
	}
	unit.Status = models.UnitInStock
	unit.SoldAt = nil
	return unit, nil
}

// MarkUnit: in_stock'tan claimed/damaged/used geçişleri.
func MarkUnit(tx *gorm.DB, branchID uint, code string, target models.UnitStatus) (*models.SerializedUnit, error) {
	switch target {
	case models.UnitClaimed, models.UnitDamaged, models.UnitUsed:
	default:
		return nil, apperr.Validation("InvalidStatus", "Geçersiz hedef durum", string(target))
	}

	unit, err := unitByCode(tx, branchID, code)
	if err != nil {
		return nil, err
	}
	res := tx.Model(&models.SerializedUnit{}).
		Where("id = ? AND status = ?", unit.ID, models.UnitInStock).
		Update("status", target)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, apperr.Conflict("InvalidTransition",
			"Ürün stokta değil, durum değiştirilemez", code, string(unit.Status))
	}
	unit.Status = target
	return unit, nil
}

// DeleteUnit: sadece hiç el değmemiş in_stock adetler silinebilir. Satış
// satırı veya sayım kaydı referans veriyorsa ya da durum geçişi yaşamışsa
// silinemez. in_stock olmak yeterli değil: missing_pending_review'dan
// düzeltmeyle stoğa dönen adet de geçmiş taşır.
func DeleteUnit(tx *gorm.DB, branchID uint, code string) error {
	unit, err := unitByCode(tx, branchID, code)
	if err != nil {
		return err
	}
	if unit.Status != models.UnitInStock {
		return apperr.Conflict("UnitInUse", "Ürün durum geçişi yaşamış, silinemez", code)
	}

	var refCount int64
	tx.Model(&models.SaleItem{}).Where("unit_code = ?", code).Count(&refCount)
	if refCount > 0 {
		return apperr.Conflict("UnitInUse", "Ürüne satış kaydı referans veriyor", code)
	}

	// Sayım izleri snapshot üzerinden yürür; scan log'lar snapshot'a bağlı
	// olduğundan bu kontrol ikisini de kapsar.
	tx.Model(&models.CountSnapshotItem{}).Where("unit_id = ?", unit.ID).Count(&refCount)
	if refCount > 0 {
		return apperr.Conflict("UnitInUse", "Ürüne sayım kaydı referans veriyor", code)
	}

	res := tx.Where("id = ? AND status = ?", unit.ID, models.UnitInStock).
		Delete(&models.SerializedUnit{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.Conflict("UnitInUse", "Ürün durumu bu arada değişti", code)
	}
	return nil
}

// UpdateSerial: seri numarası dolu olduğunda tekildir.
func UpdateSerial(tx *gorm.DB, branchID uint, code string, newSerial *string) (*models.SerializedUnit, error) {
	unit, err := unitByCode(tx, branchID, code)
	if err != nil {
		return nil, err
	}

	if newSerial != nil && *newSerial != "" {
		var count int64
		tx.Model(&models.SerializedUnit{}).
			Where("serial_no = ? AND id != ?", *newSerial, unit.ID).
			Count(&count)
		if count > 0 {
			return nil, apperr.Conflict("DuplicateSerial",
				"Seri numarası başka bir üründe kayıtlı", *newSerial)
		}
	}

	if err := tx.Model(unit).Update("serial_no", newSerial).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("DuplicateSerial",
				"Seri numarası başka bir üründe kayıtlı", *newSerial)
		}
		return nil, err
	}
	unit.SerialNo = newSerial
	return unit, nil
}

// unitByCode: şube kapsamı burada uygulanır. Kod başka şubede varsa NotFound
// değil Authorization döner ki istemci şubeler arası varlık yoklayamasın.
func unitByCode(tx *gorm.DB, branchID uint, code string) (*models.SerializedUnit, error) {
	var unit models.SerializedUnit
	err := tx.Where("code = ?", code).First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("UnitNotFound", "Ürün bulunamadı", code)
	}
	if err != nil {
		return nil, err
	}
	if unit.BranchID != branchID {
		return nil, apperr.Authorization("BranchMismatch", "Ürün sizin şubenize ait değil")
	}
	return &unit, nil
}
