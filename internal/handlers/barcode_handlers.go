package handlers

import (
	"net/http"

	"catalog_backend/internal/services"
	"catalog_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// BarcodeHandler holds the barcode generation service.
type BarcodeHandler struct {
	barcodeService services.BarcodeService
}

// NewBarcodeHandler creates a new BarcodeHandler.
func NewBarcodeHandler(bs services.BarcodeService) *BarcodeHandler {
	return &BarcodeHandler{barcodeService: bs}
}

// GenerateProductBarcode handles POST /products/:id/barcode.
func (h *BarcodeHandler) GenerateProductBarcode(c *gin.Context) {
	organizationID, actorID, ok := callerIdentity(c)
	if !ok {
		return
	}
	productID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid product ID format.", err.Error()))
		return
	}

	var req services.GenerateBarcodeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.LogError(err, "GenerateProductBarcode: Failed to bind JSON")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
			return
		}
	}

	barcode, err := h.barcodeService.GenerateProductBarcode(c.Request.Context(), organizationID, actorID, productID, req)
	if err != nil {
		respondCatalogError(c, err, "GenerateProductBarcode: Error from barcodeService.GenerateProductBarcode")
		return
	}
	c.JSON(http.StatusCreated, barcode)
}

// BulkGenerateProductBarcodes handles POST /products/barcodes/bulk-generate.
func (h *BarcodeHandler) BulkGenerateProductBarcodes(c *gin.Context) {
	organizationID, actorID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req services.BulkGenerateBarcodesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.LogError(err, "BulkGenerateProductBarcodes: Failed to bind JSON")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
			return
		}
	}

	result, err := h.barcodeService.BulkGenerateProductBarcodes(c.Request.Context(), organizationID, actorID, req)
	if err != nil {
		respondCatalogError(c, err, "BulkGenerateProductBarcodes: Error from barcodeService.BulkGenerateProductBarcodes")
		return
	}
	c.JSON(http.StatusOK, result)
}
