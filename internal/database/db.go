package database

import (
	"perakende-backend/internal/config"
	"perakende-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true, // duplicate key -> gorm.ErrDuplicatedKey
	})
	if err != nil {
		logrus.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	err = DB.AutoMigrate(
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
	)
	if err != nil {
		logrus.Fatalf("AutoMigrate hatası: %v", err)
	}

	// Şube başına aynı anda tek taslak sayım oturumu. Servis katmanı da
	// kontrol ediyor ama asıl garanti bu kısmi unique index.
	if err := DB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_count_sessions_one_draft
		ON count_sessions (branch_id) WHERE status = 'draft'
	`).Error; err != nil {
		logrus.Fatalf("Sayım oturumu index'i oluşturulamadı: %v", err)
	}

	logrus.Info("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}
