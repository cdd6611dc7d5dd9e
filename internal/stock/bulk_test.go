package stock_test

import (
	"testing"

	"perakende-backend/internal/apperr"
	"perakende-backend/internal/models"
	"perakende-backend/internal/stock"
	"perakende-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNextAverageCost(t *testing.T) {
	// 10 adet @100 + 10 adet @200 -> ortalama 150
	avg := stock.NextAverageCost(d("10"), d("100"), d("10"), d("200"))
	assert.True(t, avg.Equal(d("150")), "got %s", avg)

	// Önceki miktar sıfır: yeni maliyet doğrudan ortalama
	avg = stock.NextAverageCost(d("0"), d("0"), d("5"), d("80"))
	assert.True(t, avg.Equal(d("80")))

	// Negatif bakiyeden girişte de geçmiş ortalama dikkate alınmaz
	avg = stock.NextAverageCost(d("-3"), d("50"), d("10"), d("60"))
	assert.True(t, avg.Equal(d("60")))

	// Dört adımlı zincir, float sapması yok
	avg = stock.NextAverageCost(d("0"), d("0"), d("3"), d("10"))  // 10
	avg = stock.NextAverageCost(d("3"), avg, d("3"), d("20"))     // 15
	avg = stock.NextAverageCost(d("6"), avg, d("6"), d("30"))     // 22.5
	avg = stock.NextAverageCost(d("12"), avg, d("4"), d("12.75")) // (12*22.5+4*12.75)/16 = 20.0625
	assert.True(t, avg.Equal(d("20.0625")), "got %s", avg)
}

func TestCalcLine(t *testing.T) {
	calc := stock.CalcLine(d("100"), d("10"), d("2"), d("20"))
	assert.True(t, calc.UnitPrice.Equal(d("90")))
	assert.True(t, calc.LineTotal.Equal(d("180")))
	assert.True(t, calc.VatAmount.Equal(d("36")))

	// KDV yuvarlama 4 hane
	calc = stock.CalcLine(d("9.99"), d("0"), d("3"), d("18"))
	assert.True(t, calc.LineTotal.Equal(d("29.97")))
	assert.True(t, calc.VatAmount.Equal(d("5.3946")), "got %s", calc.VatAmount)
}

func TestApplyReceipt_UpdatesBalanceAndMovement(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyReceipt(tx, f.Branch.ID, f.Simple.ID, d("10"), d("100"),
			stock.MovementRef{Type: "purchase_receipt", ID: 1})
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyReceipt(tx, f.Branch.ID, f.Simple.ID, d("10"), d("200"),
			stock.MovementRef{Type: "purchase_receipt", ID: 2})
	})
	require.NoError(t, err)

	var bal models.BulkBalance
	require.NoError(t, db.Where("branch_id = ? AND product_id = ?", f.Branch.ID, f.Simple.ID).First(&bal).Error)
	assert.True(t, bal.Quantity.Equal(d("20")))
	assert.True(t, bal.AvgCost.Equal(d("150")), "got %s", bal.AvgCost)
	assert.True(t, bal.LastCost.Equal(d("200")))

	var movements int64
	db.Model(&models.StockMovement{}).
		Where("branch_id = ? AND product_id = ?", f.Branch.ID, f.Simple.ID).
		Count(&movements)
	assert.Equal(t, int64(2), movements)
}

func TestApplySale_InsufficientStock(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyReceipt(tx, f.Branch.ID, f.Simple.ID, d("5"), d("10"),
			stock.MovementRef{Type: "purchase_receipt", ID: 1})
	})
	require.NoError(t, err)

	// 5 eldeyken 8 satmak reddedilir, bakiye değişmez
	err = db.Transaction(func(tx *gorm.DB) error {
		_, serr := stock.ApplySale(tx, f.Branch.ID, &f.Simple, d("8"), d("20"), d("0"),
			stock.MovementRef{Type: "sale", ID: 1})
		return serr
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "InsufficientStock", e.Code)

	var bal models.BulkBalance
	require.NoError(t, db.Where("branch_id = ? AND product_id = ?", f.Branch.ID, f.Simple.ID).First(&bal).Error)
	assert.True(t, bal.Quantity.Equal(d("5")))
}

func TestApplySale_AllowNegative(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	require.NoError(t, db.Model(&f.Simple).Update("allow_negative", true).Error)
	f.Simple.AllowNegative = true

	err := db.Transaction(func(tx *gorm.DB) error {
		_, serr := stock.ApplySale(tx, f.Branch.ID, &f.Simple, d("3"), d("20"), d("0"),
			stock.MovementRef{Type: "sale", ID: 1})
		return serr
	})
	require.NoError(t, err)

	var bal models.BulkBalance
	require.NoError(t, db.Where("branch_id = ? AND product_id = ?", f.Branch.ID, f.Simple.ID).First(&bal).Error)
	assert.True(t, bal.Quantity.Equal(d("-3")), "got %s", bal.Quantity)
}

// Satış ortalama maliyete dokunmaz.
func TestApplySale_AvgCostUntouched(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyReceipt(tx, f.Branch.ID, f.Simple.ID, d("10"), d("100"),
			stock.MovementRef{Type: "purchase_receipt", ID: 1})
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, serr := stock.ApplySale(tx, f.Branch.ID, &f.Simple, d("4"), d("150"), d("0"),
			stock.MovementRef{Type: "sale", ID: 1})
		return serr
	})
	require.NoError(t, err)

	var bal models.BulkBalance
	require.NoError(t, db.Where("branch_id = ? AND product_id = ?", f.Branch.ID, f.Simple.ID).First(&bal).Error)
	assert.True(t, bal.Quantity.Equal(d("6")))
	assert.True(t, bal.AvgCost.Equal(d("100")))
}

func TestApplyAdjustment(t *testing.T) {
	db := testutil.DB(t)
	f := testutil.Seed(t, db)

	// Maliyetli pozitif düzeltme ortalamayı giriş gibi günceller
	cost := d("50")
	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyAdjustment(tx, f.Branch.ID, &f.Simple, d("10"), &cost,
			stock.MovementRef{Type: "adjustment", ID: 1})
	})
	require.NoError(t, err)

	// Maliyetsiz negatif düzeltme ortalamaya dokunmaz
	err = db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyAdjustment(tx, f.Branch.ID, &f.Simple, d("-4"), nil,
			stock.MovementRef{Type: "adjustment", ID: 2})
	})
	require.NoError(t, err)

	var bal models.BulkBalance
	require.NoError(t, db.Where("branch_id = ? AND product_id = ?", f.Branch.ID, f.Simple.ID).First(&bal).Error)
	assert.True(t, bal.Quantity.Equal(d("6")))
	assert.True(t, bal.AvgCost.Equal(d("50")))

	// Sıfır delta reddedilir
	err = db.Transaction(func(tx *gorm.DB) error {
		return stock.ApplyAdjustment(tx, f.Branch.ID, &f.Simple, d("0"), nil,
			stock.MovementRef{Type: "adjustment", ID: 3})
	})
	require.Error(t, err)
}
