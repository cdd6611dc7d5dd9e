package audit_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"perakende-backend/internal/apperr"
	"perakende-backend/internal/audit"
	"perakende-backend/internal/models"
	"perakende-backend/internal/stock"
	"perakende-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUnits(t *testing.T, db *gorm.DB, f testutil.Fixtures, n int) []string {
	t.Helper()
	codes := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		code := fmt.Sprintf("U%03d", i)
		err := db.Transaction(func(tx *gorm.DB) error {
			_, rerr := stock.ReceiveUnit(tx, stock.ReceiveUnitParams{
				Code:          code,
				BranchID:      f.Branch.ID,
				CallerBranch:  f.Branch.ID,
				ProductID:     f.Serialized.ID,
				CostAtReceipt: decimal.NewFromInt(100),
				ReceivedAt:    time.Now(),
			})
			return rerr
		})
		require.NoError(t, err)
		codes = append(codes, code)
	}
	return codes
}

func TestStartSession_FreezesSnapshot(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 5)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, session.ExpectedCount)
	assert.Equal(t, models.CountDraft, session.Status)

	var items int64
	db.Model(&models.CountSnapshotItem{}).Where("session_id = ?", session.ID).Count(&items)
	assert.Equal(t, int64(5), items)
}

func TestStartSession_OneDraftPerBranch(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 2)

	_, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	_, err = audit.StartSession(db, f.Branch.ID, 1)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "SessionAlreadyOpen", e.Code)
}

// Oturum başladıktan sonra stoğa giren ürün beklenen kümede değildir.
func TestScan_SnapshotIsolation(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 3)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	// Oturum açıldıktan sonra gelen yeni ürün
	err = db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReceiveUnit(tx, stock.ReceiveUnitParams{
			Code:          "LATE1",
			BranchID:      f.Branch.ID,
			CallerBranch:  f.Branch.ID,
			ProductID:     f.Serialized.ID,
			CostAtReceipt: decimal.NewFromInt(100),
			ReceivedAt:    time.Now(),
		})
		return rerr
	})
	require.NoError(t, err)

	_, err = audit.Scan(db, session.ID, f.Branch.ID, 1, "LATE1", "")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "NotInExpectedSet", e.Code)

	// Kümede olan okutulur
	item, err := audit.Scan(db, session.ID, f.Branch.ID, 1, "U001", "")
	require.NoError(t, err)
	assert.True(t, item.Scanned)
}

// İki eşzamanlı okutmadan tam olarak biri kazanır; scanned_count 1 artar.
func TestScan_DuplicateRace(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 1)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = audit.Scan(db, session.ID, f.Branch.ID, 1, "U001", "")
		}(i)
	}
	wg.Wait()

	var okCount, dupCount int
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		e, ok := apperr.As(err)
		require.True(t, ok, "beklenmeyen hata: %v", err)
		assert.Equal(t, "DuplicateScan", e.Code)
		dupCount++
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, dupCount)

	var s models.CountSession
	require.NoError(t, db.First(&s, "id = ?", session.ID).Error)
	assert.Equal(t, 1, s.ScannedCount)

	var logs int64
	db.Model(&models.CountScanLog{}).Where("session_id = ?", session.ID).Count(&logs)
	assert.Equal(t, int64(1), logs)
}

func TestConfirm_MarksUnscanned(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	codes := seedUnits(t, db, f, 10)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	for _, code := range codes[:7] {
		_, err := audit.Scan(db, session.ID, f.Branch.ID, 1, code, "")
		require.NoError(t, err)
	}

	confirmed, err := audit.Confirm(db, session.ID, f.Branch.ID, audit.StrategyMarkPending)
	require.NoError(t, err)
	assert.Equal(t, models.CountConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	var pending int64
	db.Model(&models.SerializedUnit{}).
		Where("branch_id = ? AND status = ?", f.Branch.ID, models.UnitMissingPending).
		Count(&pending)
	assert.Equal(t, int64(3), pending)

	var inStock int64
	db.Model(&models.SerializedUnit{}).
		Where("branch_id = ? AND status = ?", f.Branch.ID, models.UnitInStock).
		Count(&inStock)
	assert.Equal(t, int64(7), inStock)

	// Kapalı oturuma okutma kabul edilmez
	_, err = audit.Scan(db, session.ID, f.Branch.ID, 1, codes[7], "")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "SessionClosed", e.Code)
}

// Oturum sırasında satılan ürünün durumu onaylamada ezilmez.
func TestConfirm_DoesNotClobberSoldUnits(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 2)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"U001"}, time.Now())
	}))

	_, err = audit.Confirm(db, session.ID, f.Branch.ID, audit.StrategyMarkLost)
	require.NoError(t, err)

	var sold models.SerializedUnit
	require.NoError(t, db.First(&sold, "code = ?", "U001").Error)
	assert.Equal(t, models.UnitSold, sold.Status)

	var lost models.SerializedUnit
	require.NoError(t, db.First(&lost, "code = ?", "U002").Error)
	assert.Equal(t, models.UnitLost, lost.Status)
}

// İptal hiçbir ürün durumuna dokunmaz.
func TestCancel_LeavesUnitsUntouched(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 4)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	_, err = audit.Scan(db, session.ID, f.Branch.ID, 1, "U001", "")
	require.NoError(t, err)

	cancelled, err := audit.Cancel(db, session.ID, f.Branch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CountCancelled, cancelled.Status)

	var inStock int64
	db.Model(&models.SerializedUnit{}).
		Where("branch_id = ? AND status = ?", f.Branch.ID, models.UnitInStock).
		Count(&inStock)
	assert.Equal(t, int64(4), inStock)

	// İptal sonrası yeni oturum açılabilir
	_, err = audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)
}

func TestSessionBranchScope(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	seedUnits(t, db, f, 1)

	session, err := audit.StartSession(db, f.Branch.ID, 1)
	require.NoError(t, err)

	other := models.Branch{Code: 2, Name: "Diğer"}
	require.NoError(t, db.Create(&other).Error)

	_, err = audit.Scan(db, session.ID, other.ID, 1, "U001", "")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuthorization, e.Kind)
}
