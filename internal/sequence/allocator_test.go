package sequence_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"perakende-backend/internal/models"
	"perakende-backend/internal/sequence"
	"perakende-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPeriod(t *testing.T) {
	ts := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2603", sequence.Period(ts))

	ts = time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2512", sequence.Period(ts))
}

func TestFormatCode(t *testing.T) {
	// Basılı etiketler bu formata bayt bayt güveniyor: 3+4+5 = 12 karakter.
	assert.Equal(t, "001260300042", sequence.FormatCode(1, "2603", 42))
	assert.Equal(t, "123260300001", sequence.FormatCode(123, "2603", 1))
	assert.Equal(t, "999251299999", sequence.FormatCode(999, "2512", 99999))
	assert.Len(t, sequence.FormatCode(7, "2601", 5), 12)
}

func TestAllocateRange_Sequential(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	start, end, err := sequence.AllocateRange(db, f.Branch.ID, "2603", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), start)
	assert.Equal(t, int64(5), end)

	start, end, err = sequence.AllocateRange(db, f.Branch.ID, "2603", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), start)
	assert.Equal(t, int64(8), end)

	// Farklı dönem kendi sayacından başlar.
	start, _, err = sequence.AllocateRange(db, f.Branch.ID, "2604", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), start)
}

func TestAllocateRange_InvalidCount(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	_, _, err := sequence.AllocateRange(db, f.Branch.ID, "2603", 0)
	assert.Error(t, err)
}

func TestGenerateDocNo(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	docNo, err := sequence.GenerateDocNo(db, "PR", f.Branch.ID, f.Branch.Code, "2603",
		func(sp *gorm.DB, docNo string) error {
			return sp.Create(&models.PurchaseReceipt{
				BranchID:    f.Branch.ID,
				SupplierID:  f.Supplier.ID,
				DocNo:       docNo,
				ReceiptDate: time.Now(),
				CreatedBy:   1,
			}).Error
		})
	require.NoError(t, err)
	assert.Equal(t, "PR001260300001", docNo)
}

// Belge numarası barkodlarla aynı basılı şube kodunu taşır, veritabanı
// id'sini değil.
func TestGenerateDocNo_UsesBranchCode(t *testing.T) {
	db := testutil.DB(t)
	testutil.Seed(t, db)

	branch := models.Branch{Code: 42, Name: "Kadıköy"}
	require.NoError(t, db.Create(&branch).Error)
	require.NotEqual(t, int(branch.ID), branch.Code)

	docNo, err := sequence.GenerateDocNo(db, "SL", branch.ID, branch.Code, "2603",
		func(sp *gorm.DB, docNo string) error {
			return sp.Create(&models.Sale{
				BranchID:  branch.ID,
				DocNo:     docNo,
				SaleDate:  time.Now(),
				CreatedBy: 1,
			}).Error
		})
	require.NoError(t, err)
	assert.Equal(t, "SL042260300001", docNo)
}

// Çakışma, çağıranın açık transaction'ı içinde yaşanır: savepoint sayesinde
// üretici bir sonraki numarayla devam eder ve transaction kullanılabilir kalır.
func TestGenerateDocNo_RetryInsideTransaction(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	// Eski numaralandırmadan kalan kayıt ilk denemeyle çakışacak
	require.NoError(t, db.Create(&models.PurchaseReceipt{
		BranchID:    f.Branch.ID,
		SupplierID:  f.Supplier.ID,
		DocNo:       "PR001260300001",
		ReceiptDate: time.Now(),
		CreatedBy:   1,
	}).Error)

	tx := db.Begin()
	require.NoError(t, tx.Error)

	docNo, err := sequence.GenerateDocNo(tx, "PR", f.Branch.ID, f.Branch.Code, "2603",
		func(sp *gorm.DB, docNo string) error {
			return sp.Create(&models.PurchaseReceipt{
				BranchID:    f.Branch.ID,
				SupplierID:  f.Supplier.ID,
				DocNo:       docNo,
				ReceiptDate: time.Now(),
				CreatedBy:   1,
			}).Error
		})
	require.NoError(t, err)
	assert.Equal(t, "PR001260300002", docNo)

	// 23505 sonrası transaction abort olmadı, sonraki cümleler çalışıyor
	_, _, err = sequence.AllocateRange(tx, f.Branch.ID, "2603", 1)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	var count int64
	db.Model(&models.PurchaseReceipt{}).Where("doc_no = ?", docNo).Count(&count)
	assert.Equal(t, int64(1), count)
}

// Eşzamanlı tahsisler hiç örtüşmeden tam olarak 1..N kümesini vermeli.
func TestAllocateRange_ConcurrentNoOverlap(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	const workers = 20
	results := make([][2]int64, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start, end, err := sequence.AllocateRange(db, f.Branch.ID, "2603", 1)
			if err != nil {
				t.Errorf("tahsis hatası: %v", err)
				return
			}
			results[i] = [2]int64{start, end}
		}(i)
	}
	wg.Wait()

	var got []int64
	for _, r := range results {
		assert.Equal(t, r[0], r[1])
		got = append(got, r[0])
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	for i := 0; i < workers; i++ {
		assert.Equal(t, int64(i+1), got[i], "eksik veya mükerrer numara")
	}
}
