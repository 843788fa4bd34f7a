package handlers

import (
	"net/http"

	"catalog_backend/internal/services"
	"catalog_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ImportHandler holds the bulk import service.
type ImportHandler struct {
	importService services.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(is services.ImportService) *ImportHandler {
	return &ImportHandler{importService: is}
}

// ImportProducts handles POST /products/import. The whole batch commits or
// rolls back as one unit; the response reports the per-row outcome.
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	organizationID, actorID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req services.ImportProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "ImportProducts: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	result, err := h.importService.ImportProducts(c.Request.Context(), organizationID, actorID, req)
	if err != nil {
		respondCatalogError(c, err, "ImportProducts: Error from importService.ImportProducts")
		return
	}
	c.JSON(http.StatusOK, result)
}
