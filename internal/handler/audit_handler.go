package handler

import (
	"net/http"
	"strconv"

	"itemledger/internal/model"
	"itemledger/internal/service"
	"itemledger/pkg/pagination"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	logs   service.OperationLogService
	ledger service.LedgerService
}

func NewAuditHandler(logs service.OperationLogService, ledger service.LedgerService) *AuditHandler {
	return &AuditHandler{logs: logs, ledger: ledger}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/operation-logs")
	{
		group.GET("", h.GetOperationLogs)
		group.GET("/:id", h.GetOperationLog)
		group.POST("/:id/undo", h.Undo)
		group.POST("/:id/redo", h.Redo)
		group.POST("/undo-last", h.UndoLast)
		group.POST("/redo-last", h.RedoLast)
	}
}

// GetOperationLogs retrieves paginated operation log entries, newest first
// @Summary      Get operation logs
// @Description  Lists operation log entries filtered by tab, type, category, payload keyword and reverted flag
// @Tags         operation-logs
// @Security     BearerAuth
// @Produce      json
// @Param        tab       query     string  false  "Origin tab"
// @Param        type      query     string  false  "Operation type"
// @Param        category  query     string  false  "Operation category"
// @Param        keyword   query     string  false  "Substring of the payload"
// @Param        reverted  query     bool    false  "Reverted flag"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/operation-logs [get]
func (h *AuditHandler) GetOperationLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := model.OperationLogFilter{
		Tab:      c.Query("tab"),
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Keyword:  c.Query("keyword"),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	if raw := c.Query("reverted"); raw != "" {
		reverted, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "reverted must be true or false")
			return
		}
		filter.Reverted = &reverted
	}

	logs, total := h.logs.GetOperationLogs(c.Request.Context(), filter)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Envelope("logs", logs, total)))
}

func logID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid operation log id")
		return 0, false
	}
	return uint(id), true
}

// GetOperationLog returns one entry
// @Summary      Get operation log entry
// @Tags         operation-logs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Entry id"
// @Success      200  {object}  response.Response{data=service.OperationLogResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/operation-logs/{id} [get]
func (h *AuditHandler) GetOperationLog(c *gin.Context) {
	id, ok := logID(c)
	if !ok {
		return
	}
	entry, err := h.logs.GetOperationLog(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// Undo applies the inverse of an entry
// @Summary      Undo operation
// @Tags         operation-logs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Entry id"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response "Entry is not reversible or already reverted"
// @Router       /api/operation-logs/{id}/undo [post]
func (h *AuditHandler) Undo(c *gin.Context) {
	id, ok := logID(c)
	if !ok {
		return
	}
	entry, err := h.ledger.Undo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// Redo re-applies a reverted entry
// @Summary      Redo operation
// @Tags         operation-logs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Entry id"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response "Entry is not reverted"
// @Router       /api/operation-logs/{id}/redo [post]
func (h *AuditHandler) Redo(c *gin.Context) {
	id, ok := logID(c)
	if !ok {
		return
	}
	entry, err := h.ledger.Redo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// UndoLast undoes the most recent applied reversible entry
// @Summary      Undo last operation
// @Tags         operation-logs
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response "Nothing to undo"
// @Router       /api/operation-logs/undo-last [post]
func (h *AuditHandler) UndoLast(c *gin.Context) {
	entry, err := h.ledger.UndoLast(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// RedoLast redoes the most recent reverted entry
// @Summary      Redo last operation
// @Tags         operation-logs
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response "Nothing to redo"
// @Router       /api/operation-logs/redo-last [post]
func (h *AuditHandler) RedoLast(c *gin.Context) {
	entry, err := h.ledger.RedoLast(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}
