package handler

import (
	"net/http"

	"itemledger/internal/model"
	"itemledger/internal/service"
	"itemledger/pkg/pagination"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	ledger service.LedgerService
	events service.EventService
}

func NewStockHandler(ledger service.LedgerService, events service.EventService) *StockHandler {
	return &StockHandler{ledger: ledger, events: events}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	events := router.Group("/api/events")
	{
		events.GET("/:kind", h.ListEvents)
		events.POST("/:kind", h.RecordEvent)
		events.PUT("/:kind", h.EditEvent)
		events.DELETE("/:kind", h.DeleteEvent)
	}
}

// ListEvents returns one page of stock events, newest first
// @Summary      List stock events
// @Description  Lists stock_in or stock_out events ordered by transaction time descending
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Param        kind    path      string  true   "stock_in or stock_out"
// @Param        item    query     string  false  "Item name substring"
// @Param        note    query     string  false  "Note substring"
// @Param        from    query     string  false  "Earliest transaction time"
// @Param        to      query     string  false  "Latest transaction time"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      400     {object}  response.Response
// @Router       /api/events/{kind} [get]
func (h *StockHandler) ListEvents(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	from, err := optionalTime(c, "from")
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := optionalTime(c, "to")
	if err != nil {
		respondError(c, err)
		return
	}

	p := pagination.Parse(c)
	filter := model.EventFilter{
		Item:   c.Query("item"),
		Note:   c.Query("note"),
		From:   from,
		To:     to,
		Limit:  p.Limit,
		Offset: p.Offset,
	}

	if kind == model.KindStockIn {
		rows, total := h.events.ListStockIn(c.Request.Context(), filter)
		c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Envelope("events", rows, total)))
		return
	}
	rows, total := h.events.ListStockOut(c.Request.Context(), filter)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Envelope("events", rows, total)))
}

// RecordEvent appends a stock event through the guarded add path
// @Summary      Record stock event
// @Description  Records a purchase (stock_in) or a sale (stock_out). Sales are refused when inventory is insufficient.
// @Tags         events
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string                 true  "stock_in or stock_out"
// @Param        request  body      service.EventInput     true  "Event"
// @Success      201      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/events/{kind} [post]
func (h *StockHandler) RecordEvent(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req service.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var created any
	if kind == model.KindStockIn {
		created, err = h.ledger.RecordStockIn(c.Request.Context(), req)
	} else {
		created, err = h.ledger.RecordStockOut(c.Request.Context(), req)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

type editEventRequest struct {
	Key    model.EventKey     `json:"key"`
	Record service.EventInput `json:"record"`
}

// EditEvent replaces one event addressed by item and transaction time
// @Summary      Edit stock event
// @Description  Deletes the event at key and appends record as one modify operation
// @Tags         events
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string            true  "stock_in or stock_out"
// @Param        request  body      editEventRequest  true  "Key and replacement record"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/events/{kind} [put]
func (h *StockHandler) EditEvent(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req editEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if req.Key.ItemName == "" || req.Key.TransactionTime.IsZero() {
		badRequest(c, "key.item_name and key.transaction_time are required")
		return
	}

	if err := h.ledger.EditEvent(c.Request.Context(), kind, req.Key, req.Record); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "event updated"))
}

// DeleteEvent removes one event addressed by item and transaction time
// @Summary      Delete stock event
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Param        kind              path   string  true  "stock_in or stock_out"
// @Param        item_name         query  string  true  "Item name"
// @Param        transaction_time  query  string  true  "Transaction time"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response "Key matches more than one event"
// @Router       /api/events/{kind} [delete]
func (h *StockHandler) DeleteEvent(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	key, err := eventKey(c, "transaction_time")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.ledger.DeleteEvent(c.Request.Context(), kind, key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "event deleted"))
}
