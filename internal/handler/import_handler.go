package handler

import (
	"io"
	"net/http"

	"itemledger/internal/service"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// maxImageBytes caps a single uploaded screenshot.
const maxImageBytes = 10 << 20

type ImportHandler struct {
	imports service.ImportService
}

func NewImportHandler(imports service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

func (h *ImportHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/import")
	{
		group.POST("/:kind", h.ImportRecords)
		group.POST("/:kind/text", h.ImportText)
		group.POST("/:kind/ocr", h.StartOCR)
		group.GET("/jobs/:id", h.JobStatus)
		group.POST("/jobs/:id/stop", h.StopJob)
	}
}

type importRecordsRequest struct {
	Records []service.EventInput `json:"records"`
}

// ImportRecords writes a batch of events without the sufficiency guard
// @Summary      Bulk import events
// @Description  Validates every record, writes them all and logs one batch_add entry under the ocr_import tab
// @Tags         import
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string                true  "stock_in or stock_out"
// @Param        request  body      importRecordsRequest  true  "Records"
// @Success      201      {object}  response.Response{data=service.ImportResult}
// @Failure      400      {object}  response.Response
// @Router       /api/import/{kind} [post]
func (h *ImportHandler) ImportRecords(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req importRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.imports.ImportRecords(c.Request.Context(), kind, req.Records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

type importTextRequest struct {
	Text string `json:"text"`
}

// ImportText parses recognised text lines and imports them
// @Summary      Import recognised text
// @Tags         import
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string             true  "stock_in or stock_out"
// @Param        request  body      importTextRequest  true  "Lines of '<item> <qty> <unit price>'"
// @Success      201      {object}  response.Response{data=service.ImportResult}
// @Failure      400      {object}  response.Response
// @Router       /api/import/{kind}/text [post]
func (h *ImportHandler) ImportText(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req importTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.imports.ImportText(c.Request.Context(), kind, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// StartOCR uploads screenshots and starts a background recognition job
// @Summary      Start OCR import job
// @Tags         import
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        kind    path      string  true  "stock_in or stock_out"
// @Param        images  formData  file    true  "PNG screenshots"
// @Success      202     {object}  response.Response{data=object}
// @Failure      400     {object}  response.Response
// @Router       /api/import/{kind}/ocr [post]
func (h *ImportHandler) StartOCR(c *gin.Context) {
	kind, err := parseKind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Invalid multipart form: "+err.Error())
		return
	}

	var images [][]byte
	for _, fh := range form.File["images"] {
		if fh.Size > maxImageBytes {
			badRequest(c, "image "+fh.Filename+" is too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "cannot open "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			badRequest(c, "cannot read "+fh.Filename)
			return
		}
		images = append(images, data)
	}

	id, err := h.imports.StartOCR(c.Request.Context(), kind, images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.Success(http.StatusAccepted, map[string]string{"job_id": id}))
}

// JobStatus reports progress of an OCR job
// @Summary      Get OCR job status
// @Tags         import
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      200  {object}  response.Response{data=ocr.JobStatus}
// @Failure      404  {object}  response.Response
// @Router       /api/import/jobs/{id} [get]
func (h *ImportHandler) JobStatus(c *gin.Context) {
	status, ok := h.imports.JobStatus(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "job not found"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// StopJob asks a running OCR job to stop after the current image
// @Summary      Stop OCR job
// @Tags         import
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      202  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/import/jobs/{id}/stop [post]
func (h *ImportHandler) StopJob(c *gin.Context) {
	if !h.imports.StopJob(c.Param("id")) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "job not found"))
		return
	}
	c.JSON(http.StatusAccepted, response.Message(http.StatusAccepted, "stop requested"))
}
