package handler

import (
	"net/http"

	"itemledger/internal/service"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	catalog service.CatalogService
}

func NewItemHandler(catalog service.CatalogService) *ItemHandler {
	return &ItemHandler{catalog: catalog}
}

func (h *ItemHandler) RegisterRoutes(router *gin.RouterGroup) {
	items := router.Group("/api/items")
	{
		items.GET("", h.List)
		items.POST("", h.Create)
	}
}

// List returns the item catalog
// @Summary      List items
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/items [get]
func (h *ItemHandler) List(c *gin.Context) {
	items := h.catalog.List(c.Request.Context())
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	}))
}

// Create adds an item name to the catalog
// @Summary      Create item
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateItemRequest  true  "Item"
// @Success      201      {object}  response.Response{data=model.Item}
// @Failure      409      {object}  response.Response "Item name already exists"
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	item, err := h.catalog.Add(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}
