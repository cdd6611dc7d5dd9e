// Package testutil: entegrasyon testleri için paylaşılan veritabanı kurulumu.
// TEST_DATABASE_DSN tanımlı değilse test atlanır; saf fonksiyon testleri
// bundan etkilenmez.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"perakende-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var allModels = []interface{}{
	&models.Branch{},
	&models.User{},
	&models.Category{},
	&models.Supplier{},
	&models.Product{},
	&models.SerializedUnit{},
	&models.BulkBalance{},
	&models.StockMovement{},
	&models.SequenceCounter{},
	&models.PurchaseReceipt{},
	&models.PurchaseReceiptItem{},
	&models.Sale{},
	&models.SaleItem{},
	&models.CountSession{},
	&models.CountSnapshotItem{},
	&models.CountScanLog{},
	&models.ActivityLog{},
}

// DB: test veritabanına bağlanır, şemayı kurar ve tabloları temizler.
// Her test temiz tablolarla başlar; testler paralel koşmamalıdır.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_DSN"))
	if dsn == "" {
		t.Skip("set TEST_DATABASE_DSN to run integration tests (requires postgres)")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("test veritabanına bağlanılamadı: %v", err)
	}

	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("AutoMigrate hatası: %v", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_count_sessions_one_draft
		ON count_sessions (branch_id) WHERE status = 'draft'
	`).Error; err != nil {
		t.Fatalf("sayım index'i oluşturulamadı: %v", err)
	}

	truncate(t, db)
	return db
}

func truncate(t *testing.T, db *gorm.DB) {
	t.Helper()
	tables := []string{
		"count_scan_logs", "count_snapshot_items", "count_sessions",
		"sale_items", "sales",
		"purchase_receipt_items", "purchase_receipts",
		"stock_movements", "bulk_balances", "serialized_units",
		"sequence_counters", "activity_logs",
		"products", "suppliers", "categories", "users", "branches",
	}
	stmt := fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("tablolar temizlenemedi: %v", err)
	}
}

// Fixtures: testlerin çoğunun ihtiyacı olan asgari kayıt kümesi.
type Fixtures struct {
	Branch     models.Branch
	Category   models.Category
	Supplier   models.Supplier
	Serialized models.Product // mode=serialized
	Simple     models.Product // mode=simple
}

func Seed(t *testing.T, db *gorm.DB) Fixtures {
	t.Helper()

	f := Fixtures{
		Branch:   models.Branch{Code: 1, Name: "Merkez"},
		Category: models.Category{Name: "Elektronik"},
		Supplier: models.Supplier{Name: "Test Tedarikçi"},
	}
	if err := db.Create(&f.Branch).Error; err != nil {
		t.Fatalf("şube oluşturulamadı: %v", err)
	}
	if err := db.Create(&f.Category).Error; err != nil {
		t.Fatalf("kategori oluşturulamadı: %v", err)
	}
	if err := db.Create(&f.Supplier).Error; err != nil {
		t.Fatalf("tedarikçi oluşturulamadı: %v", err)
	}

	f.Serialized = models.Product{
		CategoryID: f.Category.ID,
		Name:       "Telefon",
		Mode:       models.ModeSerialized,
		Unit:       "adet",
		Active:     true,
	}
	f.Simple = models.Product{
		CategoryID: f.Category.ID,
		Name:       "Kablo",
		Mode:       models.ModeSimple,
		Unit:       "metre",
		Active:     true,
	}
	if err := db.Create(&f.Serialized).Error; err != nil {
		t.Fatalf("ürün oluşturulamadı: %v", err)
	}
	if err := db.Create(&f.Simple).Error; err != nil {
		t.Fatalf("ürün oluşturulamadı: %v", err)
	}
	return f
}
