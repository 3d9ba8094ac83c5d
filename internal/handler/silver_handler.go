package handler

import (
	"net/http"
	"time"

	"itemledger/internal/service"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type SilverHandler struct {
	silver service.SilverService
}

func NewSilverHandler(silver service.SilverService) *SilverHandler {
	return &SilverHandler{silver: silver}
}

func (h *SilverHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/silver")
	{
		group.GET("", h.List)
		group.POST("", h.Record)
	}
}

// List returns price observations in time order
// @Summary      List silver prices
// @Tags         silver
// @Security     BearerAuth
// @Produce      json
// @Param        server  query     string  false  "Server id"
// @Param        series  query     string  false  "Series"
// @Param        since   query     string  false  "Earliest timestamp"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/silver [get]
func (h *SilverHandler) List(c *gin.Context) {
	since, err := optionalTime(c, "since")
	if err != nil {
		respondError(c, err)
		return
	}
	var from time.Time
	if since != nil {
		from = *since
	}
	points := h.silver.List(c.Request.Context(), c.Query("server"), c.Query("series"), from)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"prices": points,
		"total":  len(points),
	}))
}

// Record stores one price observation
// @Summary      Record silver price
// @Tags         silver
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.SilverPriceRequest  true  "Observation"
// @Success      201      {object}  response.Response{data=service.SilverPoint}
// @Failure      400      {object}  response.Response
// @Router       /api/silver [post]
func (h *SilverHandler) Record(c *gin.Context) {
	var req service.SilverPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	point, err := h.silver.RecordPrice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, point))
}
