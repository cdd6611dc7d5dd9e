package stock_test

import (
	"testing"
	"time"

	"perakende-backend/internal/apperr"
	"perakende-backend/internal/models"
	"perakende-backend/internal/stock"
	"perakende-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func receiveUnit(t *testing.T, db *gorm.DB, f testutil.Fixtures, code string) *models.SerializedUnit {
	t.Helper()
	var unit *models.SerializedUnit
	err := db.Transaction(func(tx *gorm.DB) error {
		var rerr error
		unit, rerr = stock.ReceiveUnit(tx, stock.ReceiveUnitParams{
			Code:          code,
			BranchID:      f.Branch.ID,
			CallerBranch:  f.Branch.ID,
			ProductID:     f.Serialized.ID,
			CostAtReceipt: d("100"),
			ReceivedAt:    time.Now(),
		})
		return rerr
	})
	require.NoError(t, err)
	return unit
}

func TestReceiveUnit_DuplicateCode(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	receiveUnit(t, db, f, "001260300001")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReceiveUnit(tx, stock.ReceiveUnitParams{
			Code:          "001260300001",
			BranchID:      f.Branch.ID,
			CallerBranch:  f.Branch.ID,
			ProductID:     f.Serialized.ID,
			CostAtReceipt: d("100"),
			ReceivedAt:    time.Now(),
		})
		return rerr
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "DuplicateCode", e.Code)
}

func TestReceiveUnit_CrossBranchMismatch(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReceiveUnit(tx, stock.ReceiveUnitParams{
			Code:          "001260300001",
			BranchID:      f.Branch.ID,
			CallerBranch:  f.Branch.ID + 1,
			ProductID:     f.Serialized.ID,
			CostAtReceipt: d("100"),
			ReceivedAt:    time.Now(),
		})
		return rerr
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuthorization, e.Kind)
}

// Ya hepsi ya hiçbiri: 5 koddan biri satılmışsa hiçbiri satılmaz.
func TestSellUnits_AllOrNothing(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	codes := []string{"A1", "A2", "A3", "A4", "A5"}
	for _, code := range codes {
		receiveUnit(t, db, f, code)
	}

	// A3 önceden satılmış olsun
	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"A3"}, time.Now())
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, codes, time.Now())
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "UnitsUnavailable", e.Code)
	assert.Contains(t, e.Details, "A3")

	// Rollback sonrası diğer dördü hâlâ in_stock
	var inStock int64
	db.Model(&models.SerializedUnit{}).
		Where("code IN ? AND status = ?", []string{"A1", "A2", "A4", "A5"}, models.UnitInStock).
		Count(&inStock)
	assert.Equal(t, int64(4), inStock)
}

func TestSellUnits_DuplicateInput(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	receiveUnit(t, db, f, "B1")

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"B1", "B1"}, time.Now())
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "DuplicateInput", e.Code)
}

func TestReturnUnit_Idempotency(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	receiveUnit(t, db, f, "C1")

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"C1"}, time.Now())
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReturnUnit(tx, f.Branch.ID, "C1")
		return rerr
	})
	require.NoError(t, err)

	// İkinci iade AlreadyReturned; durum returned'da kalır
	err = db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReturnUnit(tx, f.Branch.ID, "C1")
		return rerr
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "AlreadyReturned", e.Code)

	var unit models.SerializedUnit
	require.NoError(t, db.First(&unit, "code = ?", "C1").Error)
	assert.Equal(t, models.UnitReturned, unit.Status)
}

func TestReturnUnit_OnlySold(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	receiveUnit(t, db, f, "D1")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReturnUnit(tx, f.Branch.ID, "D1")
		return rerr
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "UnitNotSold", e.Code)
}

func TestCorrectToStock(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	receiveUnit(t, db, f, "E1")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"E1"}, time.Now())
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReturnUnit(tx, f.Branch.ID, "E1")
		return rerr
	}))

	err := db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.CorrectToStock(tx, f.Branch.ID, "E1")
		return rerr
	})
	require.NoError(t, err)

	var unit models.SerializedUnit
	require.NoError(t, db.First(&unit, "code = ?", "E1").Error)
	assert.Equal(t, models.UnitInStock, unit.Status)
	assert.Nil(t, unit.SoldAt)

	// sold durumundan düzeltme yapılamaz
	receiveUnit(t, db, f, "E2")
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"E2"}, time.Now())
	}))
	err = db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.CorrectToStock(tx, f.Branch.ID, "E2")
		return rerr
	})
	require.Error(t, err)
}

func TestDeleteUnit_Guards(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	// El değmemiş in_stock silinir
	receiveUnit(t, db, f, "F1")
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.DeleteUnit(tx, f.Branch.ID, "F1")
	}))

	// Satılmış silinemez
	receiveUnit(t, db, f, "F2")
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.SellUnits(tx, f.Branch.ID, []string{"F2"}, time.Now())
	}))
	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.DeleteUnit(tx, f.Branch.ID, "F2")
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "UnitInUse", e.Code)

	// Satış satırı referans veriyorsa in_stock bile olsa silinemez
	receiveUnit(t, db, f, "F3")
	code := "F3"
	sale := models.Sale{BranchID: f.Branch.ID, DocNo: "SL-TEST-1", SaleDate: time.Now()}
	require.NoError(t, db.Create(&sale).Error)
	require.NoError(t, db.Create(&models.SaleItem{
		SaleID:    sale.ID,
		ProductID: f.Serialized.ID,
		Quantity:  d("1"),
		UnitCode:  &code,
	}).Error)
	err = db.Transaction(func(tx *gorm.DB) error {
		return stock.DeleteUnit(tx, f.Branch.ID, "F3")
	})
	require.Error(t, err)
}

// Sayımda kayıp çıkıp düzeltmeyle stoğa dönen adet in_stock olsa da geçmiş
// taşır; snapshot referansı silmeyi engellemeli.
func TestDeleteUnit_CountHistoryGuard(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	unit := receiveUnit(t, db, f, "H1")

	now := time.Now()
	confirmedAt := now
	session := models.CountSession{
		BranchID:      f.Branch.ID,
		UserID:        1,
		Mode:          models.CountModeReady,
		Status:        models.CountConfirmed,
		ExpectedCount: 1,
		ScannedCount:  0,
		StartedAt:     now,
		ConfirmedAt:   &confirmedAt,
	}
	require.NoError(t, db.Create(&session).Error)
	require.NoError(t, db.Create(&models.CountSnapshotItem{
		SessionID:   session.ID,
		UnitID:      unit.ID,
		Code:        unit.Code,
		ProductName: f.Serialized.Name,
	}).Error)

	// Sayımda okunamadı -> kayıp -> yönetici düzeltmesiyle stoğa döndü
	require.NoError(t, db.Model(&models.SerializedUnit{}).
		Where("id = ?", unit.ID).
		Update("status", models.UnitMissingPending).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.CorrectToStock(tx, f.Branch.ID, "H1")
		return rerr
	}))

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.DeleteUnit(tx, f.Branch.ID, "H1")
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "UnitInUse", e.Code)

	var count int64
	db.Model(&models.SerializedUnit{}).Where("code = ?", "H1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUnitBranchScope(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)
	receiveUnit(t, db, f, "G1")

	other := models.Branch{Code: 2, Name: "Diğer"}
	require.NoError(t, db.Create(&other).Error)

	// Başka şubenin kodu NotFound değil Authorization
	err := db.Transaction(func(tx *gorm.DB) error {
		_, rerr := stock.ReturnUnit(tx, other.ID, "G1")
		return rerr
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuthorization, e.Kind)
	assert.Equal(t, "BranchMismatch", e.Code)
}
