// internal/handlers/trade.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/capdex/capdex-backend/internal/i18n"
	"github.com/capdex/capdex-backend/internal/models"
	"github.com/capdex/capdex-backend/internal/services"
	"github.com/capdex/capdex-backend/internal/utils"
)

type TradeHandler struct {
	reservationService *services.ReservationService
}

func NewTradeHandler(reservationService *services.ReservationService) *TradeHandler {
	return &TradeHandler{
		reservationService: reservationService,
	}
}

// POST /trades
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	var req services.CreateTradeRequest
	if !bindJSON(c, &req) {
		return
	}

	trade, err := h.reservationService.CreateTrade(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "trader", err)
		return
	}

	utils.CreatedResponse(c, trade)
}

// GET /trades
func (h *TradeHandler) ListTrades(c *gin.Context) {
	params := services.TradeListParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if traderIDStr := c.Query("trader_id"); traderIDStr != "" {
		traderID, err := strconv.ParseUint(traderIDStr, 10, 64)
		if err != nil || traderID == 0 {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyInvalidID, "trader_id"), nil)
			return
		}
		params.TraderID = &traderID
	}

	if status := c.Query("status"); status != "" {
		tradeStatus := models.TradeStatus(status)
		params.Status = &tradeStatus
	}

	trades, total, err := h.reservationService.ListTrades(c.Request.Context(), params)
	if err != nil {
		respondError(c, "trade", err)
		return
	}

	result := utils.CreatePaginationResult(trades, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /trades/:id
func (h *TradeHandler) GetTrade(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	trade, err := h.reservationService.GetTrade(c.Request.Context(), id)
	if err != nil {
		respondError(c, "trade", err)
		return
	}

	utils.SuccessResponse(c, trade)
}

// POST /trades/:id/reservations
func (h *TradeHandler) ReserveInstances(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ReserveInstancesRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.reservationService.ReserveInstances(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "trade", err)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /trades/:id/reservations
func (h *TradeHandler) ListReservedInstances(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	instances, err := h.reservationService.ListReservedForTrade(c.Request.Context(), id)
	if err != nil {
		respondError(c, "trade", err)
		return
	}

	utils.SuccessResponse(c, instances)
}

// POST /trades/:id/cancel
func (h *TradeHandler) CancelTrade(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	trade, err := h.reservationService.CancelTrade(c.Request.Context(), id)
	if err != nil {
		respondError(c, "trade", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyTradeCanceled),
		"trade":   trade,
	})
}

// POST /trades/:id/complete
func (h *TradeHandler) CompleteTrade(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	trade, err := h.reservationService.CompleteTrade(c.Request.Context(), id)
	if err != nil {
		respondError(c, "trade", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyTradeCompleted),
		"trade":   trade,
	})
}
