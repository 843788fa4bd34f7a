package router

import (
	"catalog_backend/internal/handlers"
	"catalog_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes sets up the authentication routes that do not
// require a token.
func SetupPublicAuthRoutes(authGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authGroup.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes sets up the token-bound auth routes.
func SetupAuthenticatedAuthRoutes(authGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authGroup.POST("/logout", authHandler.LogoutUser)
	authGroup.GET("/me", authHandler.GetCurrentUser)
}

// SetupProductRoutes sets up the catalog routes. Reads are open to every
// authenticated role; mutations require admin or manager.
func SetupProductRoutes(authenticatedGroup *gin.RouterGroup, productHandler *handlers.ProductHandler, barcodeHandler *handlers.BarcodeHandler, importHandler *handlers.ImportHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	{
		productRoutes.GET("", productHandler.GetProducts)
		productRoutes.GET("/:id", productHandler.GetProduct)

		writeRoutes := productRoutes.Group("")
		writeRoutes.Use(middleware.RoleAuthMiddleware("Admin", "Manager"))
		{
			writeRoutes.POST("", productHandler.CreateProduct)
			writeRoutes.PUT("/:id", productHandler.UpdateProduct)
			writeRoutes.POST("/:id/duplicate", productHandler.DuplicateProduct)
			writeRoutes.POST("/:id/barcode", barcodeHandler.GenerateProductBarcode)
			writeRoutes.POST("/barcodes/bulk-generate", barcodeHandler.BulkGenerateProductBarcodes)
			writeRoutes.POST("/import", importHandler.ImportProducts)
		}
	}
}
