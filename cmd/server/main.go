package main

import (
	"strings"

	"perakende-backend/internal/activity"
	"perakende-backend/internal/admin"
	"perakende-backend/internal/apperr"
	"perakende-backend/internal/audit"
	"perakende-backend/internal/auth"
	"perakende-backend/internal/catalog"
	"perakende-backend/internal/config"
	"perakende-backend/internal/database"
	"perakende-backend/internal/models"
	"perakende-backend/internal/purchasing"
	"perakende-backend/internal/report"
	"perakende-backend/internal/sales"
	"perakende-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// İş kuralı hataları: sabit makine kodu + detaylarla döner
			if e, ok := apperr.As(err); ok {
				body := fiber.Map{
					"error": e.Message,
					"code":  e.Code,
				}
				if len(e.Details) > 0 {
					body["details"] = e.Details
				}
				return c.Status(apperr.HTTPStatus(e.Kind)).JSON(body)
			}
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logrus.WithError(err).Error("Beklenmeyen hata")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	// CORS origins'i virgülle ayrılmış string'den temizle
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Şube yönetimi
	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())
	adminRoutes.Post("/branches/:id/admin", admin.CreateBranchAdminHandler())
	adminRoutes.Get("/branches/:id/admins", admin.ListBranchAdminsHandler())

	// Katalog yönetimi
	adminRoutes.Post("/categories", catalog.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", catalog.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", catalog.DeleteCategoryHandler())
	adminRoutes.Post("/products", catalog.CreateProductHandler())
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", catalog.DeleteProductHandler())
	adminRoutes.Post("/suppliers", catalog.CreateSupplierHandler())
	adminRoutes.Put("/suppliers/:id", catalog.UpdateSupplierHandler())
	adminRoutes.Delete("/suppliers/:id", catalog.DeleteSupplierHandler())

	// Hassas ürün işlemleri sadece super admin
	adminRoutes.Post("/units/:code/correct", stock.CorrectUnitHandler())
	adminRoutes.Delete("/units/:code", stock.DeleteUnitHandler())

	// Ortak (auth gerektiren) route'lar

	// Katalog okuma
	protected.Get("/categories", catalog.ListCategoriesHandler())
	protected.Get("/products", catalog.ListProductsHandler())
	protected.Get("/products/:id", catalog.GetProductHandler())
	protected.Get("/suppliers", catalog.ListSuppliersHandler())
	protected.Get("/suppliers/:id", catalog.GetSupplierHandler())

	// Mal girişi
	protected.Post("/purchase-receipts", purchasing.CreateReceiptHandler())
	protected.Get("/purchase-receipts", purchasing.ListReceiptsHandler())
	protected.Get("/purchase-receipts/:id", purchasing.GetReceiptHandler())

	// Satış ve iade
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Post("/sales/returns", sales.ReturnUnitHandler())

	// Seri ürün takibi
	protected.Get("/units", stock.ListUnitsHandler())
	protected.Get("/units/:code", stock.GetUnitHandler())
	protected.Put("/units/:code/serial", stock.UpdateSerialHandler())
	protected.Post("/units/:code/status", stock.MarkUnitHandler())

	// Dökme stok
	protected.Post("/adjustments", stock.CreateAdjustmentHandler())
	protected.Get("/balances", stock.ListBalancesHandler())
	protected.Get("/movements", stock.ListMovementsHandler())

	// Sayım oturumları
	protected.Post("/count-sessions", audit.StartSessionHandler())
	protected.Get("/count-sessions", audit.ListSessionsHandler())
	protected.Get("/count-sessions/:id", audit.OverviewHandler())
	protected.Get("/count-sessions/:id/items", audit.ListItemsHandler())
	protected.Post("/count-sessions/:id/scan", audit.ScanHandler())
	protected.Post("/count-sessions/:id/confirm", audit.ConfirmHandler())
	protected.Post("/count-sessions/:id/cancel", audit.CancelHandler())

	// Raporlar
	protected.Get("/reports/valuation", report.ValuationHandler())
	protected.Get("/reports/valuation/export", report.ValuationExportHandler())
	protected.Get("/reports/movements", report.MovementSummaryHandler())

	// Aktivite kayıtları
	protected.Get("/activity-logs", activity.ListHandler())

	logrus.Info("Server çalışıyor port: ", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.Fatal(err)
	}
}
