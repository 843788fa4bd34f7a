package handlers

import (
	"errors"
	"net/http"

	"catalog_backend/internal/services"
	"catalog_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// callerIdentity extracts the tenant and actor set by AuthMiddleware. A
// missing or mistyped organization id aborts with 401.
func callerIdentity(c *gin.Context) (int64, *int64, bool) {
	orgRaw, exists := c.Get("organizationID")
	if !exists {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Caller is not authenticated.", "Missing organization ID in context"))
		return 0, nil, false
	}
	organizationID, ok := orgRaw.(int64)
	if !ok || organizationID <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Caller identity is malformed.", "Invalid organization ID in context"))
		return 0, nil, false
	}

	var actorID *int64
	if userRaw, exists := c.Get("userID"); exists {
		if userID, ok := userRaw.(int64); ok && userID > 0 {
			actorID = &userID
		}
	}
	return organizationID, actorID, true
}

// catalogErrorMapping ties one service sentinel to its HTTP status. The
// sentinel's text doubles as the machine-readable error code.
type catalogErrorMapping struct {
	err    error
	status int
}

var catalogErrorMappings = []catalogErrorMapping{
	{services.ErrProductNotFound, http.StatusNotFound},
	{services.ErrUnitNotFound, http.StatusNotFound},
	{services.ErrSupplierNotFound, http.StatusNotFound},
	{services.ErrVariantNotFound, http.StatusNotFound},

	{services.ErrSKURequired, http.StatusBadRequest},
	{services.ErrNameRequired, http.StatusBadRequest},
	{services.ErrUnitRequired, http.StatusBadRequest},
	{services.ErrDuplicateBarcode, http.StatusBadRequest},
	{services.ErrPackBarcodeDuplicate, http.StatusBadRequest},
	{services.ErrPackNameDuplicate, http.StatusBadRequest},
	{services.ErrPackMultiplierInvalid, http.StatusBadRequest},
	{services.ErrBundleEmpty, http.StatusBadRequest},
	{services.ErrBundleComponentInvalid, http.StatusBadRequest},
	{services.ErrBundleComponentDuplicate, http.StatusBadRequest},
	{services.ErrAttributeRequired, http.StatusBadRequest},
	{services.ErrAttributeNumberInvalid, http.StatusBadRequest},
	{services.ErrAttributeValueInvalid, http.StatusBadRequest},
	{services.ErrPriceInvalid, http.StatusBadRequest},
	{services.ErrImportRowInvalid, http.StatusBadRequest},

	{services.ErrBarcodeExists, http.StatusConflict},
	{services.ErrPackBarcodeExists, http.StatusConflict},
	{services.ErrProductBarcodeExists, http.StatusConflict},
	{services.ErrUnitChangeNotAllowed, http.StatusConflict},
	{services.ErrVariantInUse, http.StatusConflict},
	{services.ErrUniqueConstraintViolation, http.StatusConflict},
	{services.ErrPlanLimitReached, http.StatusConflict},

	{services.ErrBarcodeGenerationFailed, http.StatusInternalServerError},
}

// respondCatalogError maps a service error to its API contract. Unknown
// errors are logged and surface as a generic 500.
func respondCatalogError(c *gin.Context, err error, logContext string) {
	for _, mapping := range catalogErrorMappings {
		if errors.Is(err, mapping.err) {
			utils.RespondWithError(c, utils.NewAPIError(mapping.status, mapping.err.Error(), err.Error(), ""))
			return
		}
	}
	utils.LogError(err, logContext)
	utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Internal server error.", "Internal error"))
}
