// Package sequence: (şube, dönem) başına çakışmasız, sıralı numara tahsisi.
// Barkodlar ve belge numaraları buradan çıkar.
package sequence

import (
	"errors"
	"fmt"
	"time"

	"perakende-backend/internal/apperr"

	"gorm.io/gorm"
)

// Period: "YYMM" dönem anahtarı. Kod formatının toplam uzunluğu basılı
// etiketlere bağlı, değiştirme.
func Period(t time.Time) string {
	return t.Format("0601")
}

// FormatCode: {3 haneli şube}{dönem}{5 haneli sıra numarası}.
// Basılı etiketler bu formata bayt bayt güveniyor.
func FormatCode(branchCode int, period string, n int64) string {
	return fmt.Sprintf("%03d%s%05d", branchCode, period, n)
}

// AllocateRange: sayacı tek atomik upsert ile count kadar artırır ve
// [start, end] kapalı aralığını döner. Okuma ve artırma aynı SQL cümlesinde
// olduğu için eşzamanlı çağrılar asla örtüşen aralık alamaz.
//
// tx içinde çağrılmalıdır; hata dönerse çağıran tüm tahsisi (formatlamayı
// değil, işlemin tamamını) yeniden denemelidir.
func AllocateRange(tx *gorm.DB, branchID uint, period string, count int) (start, end int64, err error) {
	if count < 1 {
		return 0, 0, apperr.Validation("InvalidCount", "Tahsis adedi en az 1 olmalı")
	}

	var last int64
	res := tx.Raw(`
		INSERT INTO sequence_counters (branch_id, period, last_number, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON CONFLICT (branch_id, period)
		DO UPDATE SET last_number = sequence_counters.last_number + ?, updated_at = NOW()
		RETURNING last_number
	`, branchID, period, count, count).Scan(&last)
	if res.Error != nil {
		return 0, 0, apperr.Transient("AllocationConflict",
			"Numara tahsisi tamamlanamadı, işlemi tekrar deneyin")
	}

	return last - int64(count) + 1, last, nil
}

// docNoMaxAttempts: benzersizlik ihlalinde üret-tekrar-dene üst sınırı.
// Sayaç tablosu kullanmayan eski belge tipleri için geçerli.
const docNoMaxAttempts = 5

// GenerateDocNo: benzersiz belge numarası üretir. Numara gövdesi barkodlarla
// aynı şube kodunu taşır (prefix + FormatCode). insert fonksiyonu üretilen
// numarayla kaydı sp üzerinden yazmayı dener; duplicate key hatasında yeni
// numarayla en fazla docNoMaxAttempts kez tekrar denenir, sonra
// CodeGenerationExhausted.
//
// Her deneme savepoint içinde koşar: Postgres 23505 sonrası transaction'ı
// abort eder, savepoint'e dönülmezse sonraki deneme 25P02 ile düşer. Bu
// yüzden insert üretilen sp handle'ını kullanmak ZORUNDADIR, çağıranın
// tx'ini değil.
func GenerateDocNo(tx *gorm.DB, prefix string, branchID uint, branchCode int, period string,
	insert func(sp *gorm.DB, docNo string) error) (string, error) {

	for attempt := 0; attempt < docNoMaxAttempts; attempt++ {
		var docNo string
		err := tx.Transaction(func(sp *gorm.DB) error {
			start, _, aerr := AllocateRange(sp, branchID, period, 1)
			if aerr != nil {
				return aerr
			}
			docNo = fmt.Sprintf("%s%s", prefix, FormatCode(branchCode, period, start))
			return insert(sp, docNo)
		})
		if err == nil {
			return docNo, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		// duplicate: eski numaralandırmadan kalan kayıtla çakıştı, yeni numara dene
	}

	return "", apperr.Conflict("CodeGenerationExhausted",
		"Benzersiz belge numarası üretilemedi", prefix)
}
