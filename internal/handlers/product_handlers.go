package handlers

import (
	"net/http"
	"strconv"

	"catalog_backend/internal/models"
	"catalog_backend/internal/services"
	"catalog_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ProductHandler holds the catalog mutation service.
type ProductHandler struct {
	productService services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(ps services.ProductService) *ProductHandler {
	return &ProductHandler{productService: ps}
}

// CreateProduct handles POST /products.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	organizationID, actorID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateProduct: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), organizationID, actorID, req)
	if err != nil {
		respondCatalogError(c, err, "CreateProduct: Error from productService.CreateProduct")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/:id.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	organizationID, actorID, ok := callerIdentity(c)
	if !ok {
		return
	}
	productID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid product ID format.", err.Error()))
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateProduct: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), organizationID, actorID, productID, req)
	if err != nil {
		respondCatalogError(c, err, "UpdateProduct: Error from productService.UpdateProduct")
		return
	}
	c.JSON(http.StatusOK, product)
}

// DuplicateProduct handles POST /products/:id/duplicate.
func (h *ProductHandler) DuplicateProduct(c *gin.Context) {
	organizationID, actorID, ok := callerIdentity(c)
	if !ok {
		return
	}
	productID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid product ID format.", err.Error()))
		return
	}

	// The body is optional; an empty one means "probe a fresh copy SKU".
	var req services.DuplicateProductRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.LogError(err, "DuplicateProduct: Failed to bind JSON")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
			return
		}
	}

	result, err := h.productService.DuplicateProduct(c.Request.Context(), organizationID, actorID, productID, req)
	if err != nil {
		respondCatalogError(c, err, "DuplicateProduct: Error from productService.DuplicateProduct")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetProduct handles GET /products/:id.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	organizationID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	productID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid product ID format.", err.Error()))
		return
	}

	product, err := h.productService.GetProductByID(organizationID, productID)
	if err != nil {
		respondCatalogError(c, err, "GetProduct: Error from productService.GetProductByID")
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetProducts handles GET /products with pagination and filters.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	organizationID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	filters := parseProductFilters(c)
	products, totalCount, err := h.productService.GetProducts(organizationID, filters)
	if err != nil {
		respondCatalogError(c, err, "GetProducts: Error from productService.GetProducts")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        products,
		"total_count": totalCount,
		"page":        filters.Page,
		"page_size":   filters.PageSize,
	})
}

func parseProductFilters(c *gin.Context) models.ProductFilters {
	filters := models.ProductFilters{Page: 1, PageSize: 50}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil && pageSize > 0 && pageSize <= 500 {
		filters.PageSize = pageSize
	}
	if search := c.Query("search"); search != "" {
		filters.Search = &search
	}
	if categoryID, err := utils.StrToInt64(c.Query("category_id")); err == nil && categoryID > 0 {
		filters.CategoryID = &categoryID
	}
	if isBundleRaw := c.Query("is_bundle"); isBundleRaw != "" {
		if isBundle, err := strconv.ParseBool(isBundleRaw); err == nil {
			filters.IsBundle = &isBundle
		}
	}
	if storeID, err := utils.StrToInt64(c.Query("store_id")); err == nil && storeID > 0 {
		filters.StoreID = &storeID
	}
	return filters
}
