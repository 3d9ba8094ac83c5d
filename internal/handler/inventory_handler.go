package handler

import (
	"net/http"

	"itemledger/internal/service"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	projection service.ProjectionService
}

func NewInventoryHandler(projection service.ProjectionService) *InventoryHandler {
	return &InventoryHandler{projection: projection}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	{
		inventory.GET("", h.GetInventory)
		inventory.GET("/verify", h.Verify)
		inventory.POST("/rebuild", h.RebuildAll)
		inventory.POST("/dedup", h.Dedup)
		inventory.GET("/items/:item", h.GetItem)
		inventory.POST("/items/:item/rebuild", h.RebuildOne)
	}
}

// GetInventory handles retrieving the projected inventory rows
// @Summary      Get inventory
// @Description  Lists the derived inventory position of every item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Item name substring"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/inventory [get]
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	rows := h.projection.GetAll(c.Request.Context(), c.Query("search"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"inventory": rows,
		"total":     len(rows),
	}))
}

// GetItem returns the projection row of one item
// @Summary      Get inventory row
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        item  path      string  true  "Item name"
// @Success      200   {object}  response.Response{data=model.InventoryRow}
// @Failure      404   {object}  response.Response
// @Router       /api/inventory/items/{item} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	row, err := h.projection.Get(c.Request.Context(), c.Param("item"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, row))
}

// RebuildOne recomputes the row of one item from its events
// @Summary      Rebuild one inventory row
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        item  path      string  true  "Item name"
// @Success      200   {object}  response.Response{data=model.InventoryRow}
// @Failure      404   {object}  response.Response "Item has no events"
// @Router       /api/inventory/items/{item}/rebuild [post]
func (h *InventoryHandler) RebuildOne(c *gin.Context) {
	row, err := h.projection.RebuildOne(c.Request.Context(), c.Param("item"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, row))
}

// RebuildAll truncates and recomputes the whole projection
// @Summary      Rebuild inventory
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/inventory/rebuild [post]
func (h *InventoryHandler) RebuildAll(c *gin.Context) {
	rows, err := h.projection.RebuildAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"inventory": rows,
		"total":     len(rows),
	}))
}

// Verify reports stored rows that disagree with the event log
// @Summary      Verify inventory
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/inventory/verify [get]
func (h *InventoryHandler) Verify(c *gin.Context) {
	mismatches, err := h.projection.Verify(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"consistent": len(mismatches) == 0,
		"mismatches": mismatches,
	}))
}

// Dedup removes duplicate rows left by legacy tables
// @Summary      Deduplicate inventory
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/inventory/dedup [post]
func (h *InventoryHandler) Dedup(c *gin.Context) {
	removed, err := h.projection.Dedup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]int64{"removed": removed}))
}
