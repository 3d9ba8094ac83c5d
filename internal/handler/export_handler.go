package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"itemledger/internal/export"
	"itemledger/internal/service"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exports service.ExportService
}

func NewExportHandler(exports service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/export/:dataset", h.Export)
}

// Export downloads a dataset as a workbook or CSV file
// @Summary      Export dataset
// @Tags         export
// @Security     BearerAuth
// @Produce      application/octet-stream
// @Param        dataset  path   string  true   "inventory, operation_logs, stock_in or stock_out"
// @Param        format   query  string  false  "xlsx (default) or csv"
// @Success      200
// @Failure      400  {object}  response.Response
// @Router       /api/export/{dataset} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	dataset := c.Param("dataset")
	format := c.DefaultQuery("format", export.FormatXLSX)

	var buf bytes.Buffer
	if err := h.exports.Export(c.Request.Context(), dataset, format, &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", dataset, time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
