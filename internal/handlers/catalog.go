// internal/handlers/catalog.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/capdex/capdex-backend/internal/i18n"
	"github.com/capdex/capdex-backend/internal/services"
	"github.com/capdex/capdex-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService     *services.CatalogService
	reservationService *services.ReservationService
}

func NewCatalogHandler(catalogService *services.CatalogService, reservationService *services.ReservationService) *CatalogHandler {
	return &CatalogHandler{
		catalogService:     catalogService,
		reservationService: reservationService,
	}
}

// POST /caps
func (h *CatalogHandler) CreateCap(c *gin.Context) {
	var req services.CreateCapRequest
	if !bindJSON(c, &req) {
		return
	}

	capDesign, err := h.catalogService.CreateCap(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "resource", err)
		return
	}

	utils.CreatedResponse(c, capDesign)
}

// GET /caps/:id
func (h *CatalogHandler) GetCap(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	capDesign, err := h.catalogService.GetCap(c.Request.Context(), id)
	if err != nil {
		respondError(c, "cap", err)
		return
	}

	utils.SuccessResponse(c, capDesign)
}

// GET /caps/:id/available?limit=N
func (h *CatalogHandler) ListAvailableInstances(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "limit"), nil)
			return
		}
		limit = parsed
	}

	instances, err := h.reservationService.ListAvailableForCap(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, "cap", err)
		return
	}

	utils.SuccessResponse(c, instances)
}

// POST /caps/:id/instances
func (h *CatalogHandler) RegisterInstances(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RegisterInstancesRequest
	if !bindJSON(c, &req) {
		return
	}

	instances, err := h.catalogService.RegisterInstances(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "cap", err)
		return
	}

	utils.CreatedResponse(c, instances)
}

// POST /instances/print
func (h *CatalogHandler) MarkPrinted(c *gin.Context) {
	var req services.MarkPrintedRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.catalogService.MarkPrinted(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "instance", err)
		return
	}

	utils.SuccessResponse(c, result)
}
