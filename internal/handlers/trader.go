// internal/handlers/trader.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/capdex/capdex-backend/internal/i18n"
	"github.com/capdex/capdex-backend/internal/services"
	"github.com/capdex/capdex-backend/internal/utils"
)

type TraderHandler struct {
	traderService *services.TraderService
}

func NewTraderHandler(traderService *services.TraderService) *TraderHandler {
	return &TraderHandler{
		traderService: traderService,
	}
}

// POST /traders
func (h *TraderHandler) CreateTrader(c *gin.Context) {
	var req services.CreateTraderRequest
	if !bindJSON(c, &req) {
		return
	}

	trader, err := h.traderService.CreateTrader(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "resource", err)
		return
	}

	utils.CreatedResponse(c, trader)
}

// GET /traders/:id
func (h *TraderHandler) GetTrader(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	trader, err := h.traderService.GetTrader(c.Request.Context(), id)
	if err != nil {
		respondError(c, "trader", err)
		return
	}

	utils.SuccessResponse(c, trader)
}

// DELETE /traders/:id
func (h *TraderHandler) DeleteTrader(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.traderService.DeleteTrader(c.Request.Context(), id); err != nil {
		respondError(c, "trader", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyTraderDeleted),
	})
}
