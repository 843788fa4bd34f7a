package router

import (
	"database/sql"
	"net/http"
	"time"

	"catalog_backend/internal/handlers"
	"catalog_backend/internal/middleware"
	"catalog_backend/internal/repositories"
	"catalog_backend/internal/services"
	"catalog_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Config carries the runtime knobs the route wiring needs.
type Config struct {
	JWTSecret     string
	JWTExpiration time.Duration
	ImportTimeout time.Duration
	BulkRowCap    int
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, cfg Config) {
	// Initialize Repositories
	txManager := repositories.NewTxManager(db)
	authRepo := repositories.NewAuthRepository(db)
	productRepo := repositories.NewProductRepository(db)
	variantRepo := repositories.NewVariantRepository(db)
	bundleRepo := repositories.NewBundleRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	attributeRepo := repositories.NewAttributeRepository(db)
	referenceRepo := repositories.NewReferenceRepository(db)
	costRepo := repositories.NewCostRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Initialize Services
	authService := services.NewAuthService(authRepo, cfg.JWTSecret, cfg.JWTExpiration)
	planChecker := services.NewPlanLimitChecker(referenceRepo, productRepo)
	imageResolver := services.NewURLImageResolver()
	productService := services.NewProductService(
		txManager, productRepo, variantRepo, bundleRepo, inventoryRepo,
		attributeRepo, referenceRepo, costRepo, auditRepo,
		planChecker, imageResolver, auditRepo, db,
	)
	barcodeService := services.NewBarcodeService(txManager, productRepo, auditRepo, services.NewBarcodeValueGenerator(), cfg.BulkRowCap)
	importService := services.NewImportService(
		txManager, productRepo, variantRepo, bundleRepo, inventoryRepo,
		referenceRepo, costRepo, auditRepo, cfg.ImportTimeout,
	)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	barcodeHandler := handlers.NewBarcodeHandler(barcodeService)
	importHandler := handlers.NewImportHandler(importService)

	apiV1 := engine.Group("/api/v1")

	apiV1.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			utils.LogError(err, "Health check: database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public authentication routes
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	// Authenticated routes
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupProductRoutes(authenticated, productHandler, barcodeHandler, importHandler)
	}
}
