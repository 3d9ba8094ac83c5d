package handler

import (
	"net/http"

	"itemledger/internal/service"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type TradeMonitorHandler struct {
	ledger service.LedgerService
	events service.EventService
}

func NewTradeMonitorHandler(ledger service.LedgerService, events service.EventService) *TradeMonitorHandler {
	return &TradeMonitorHandler{ledger: ledger, events: events}
}

func (h *TradeMonitorHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/trade-monitor")
	{
		group.GET("", h.List)
		group.POST("", h.Record)
		group.DELETE("", h.Delete)
	}
}

// List returns watch rows, optionally filtered by item
// @Summary      List trade monitor rows
// @Tags         trade-monitor
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Item name substring"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/trade-monitor [get]
func (h *TradeMonitorHandler) List(c *gin.Context) {
	rows := h.events.ListTradeMonitors(c.Request.Context(), c.Query("search"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"total": len(rows),
	}))
}

// Record upserts the watch row of an item
// @Summary      Record trade monitor row
// @Description  Inserts a new row, or updates monitor_time, quantity and market_price of the existing row for the item
// @Tags         trade-monitor
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.TradeMonitorInput  true  "Watch row"
// @Success      200      {object}  response.Response{data=model.TradeMonitor}
// @Failure      400      {object}  response.Response
// @Router       /api/trade-monitor [post]
func (h *TradeMonitorHandler) Record(c *gin.Context) {
	var req service.TradeMonitorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	row, err := h.ledger.RecordTradeMonitor(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, row))
}

// Delete removes the row matching item and monitor time exactly
// @Summary      Delete trade monitor row
// @Tags         trade-monitor
// @Security     BearerAuth
// @Produce      json
// @Param        item_name     query  string  true  "Item name"
// @Param        monitor_time  query  string  true  "Monitor time"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/trade-monitor [delete]
func (h *TradeMonitorHandler) Delete(c *gin.Context) {
	key, err := eventKey(c, "monitor_time")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.ledger.DeleteTradeMonitor(c.Request.Context(), key.ItemName, key.TransactionTime); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "trade monitor row deleted"))
}
