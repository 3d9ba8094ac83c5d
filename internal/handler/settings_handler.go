package handler

import (
	"net/http"

	"itemledger/internal/config"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const secretMask = "********"

// SettingsHandler reads and writes the user-scoped settings files.
type SettingsHandler struct {
	dir string
}

func NewSettingsHandler(dir string) *SettingsHandler {
	return &SettingsHandler{dir: dir}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/settings")
	{
		group.GET("/:name", h.Get)
		group.PUT("/:name", h.Put)
	}
}

// Get returns one settings document. Passwords are masked.
// @Summary      Get settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Param        name  path      string  true  "database, email, backup, servers or email_templates"
// @Success      200   {object}  response.Response{data=object}
// @Failure      404   {object}  response.Response
// @Router       /api/settings/{name} [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	var (
		data any
		err  error
	)
	switch c.Param("name") {
	case "database":
		var s *config.DatabaseSettings
		s, err = config.LoadDatabaseSettings(h.dir)
		if s != nil && s.Password != "" {
			s.Password = secretMask
		}
		data = s
	case "email":
		var s config.EmailSettings
		s, err = config.LoadEmailSettings(h.dir)
		if s.Password != "" {
			s.Password = secretMask
		}
		data = s
	case "backup":
		data, err = config.LoadBackupSettings(h.dir)
	case "servers":
		data, err = config.LoadServerNames(h.dir)
	case "email_templates":
		data, err = config.LoadEmailTemplates(h.dir)
	default:
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "unknown settings "+c.Param("name")))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to load settings: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

// Put replaces one settings document atomically. A masked password keeps
// the stored value.
// @Summary      Save settings
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        name  path      string  true  "database, email, backup, servers or email_templates"
// @Success      200   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Router       /api/settings/{name} [put]
func (h *SettingsHandler) Put(c *gin.Context) {
	var err error
	switch c.Param("name") {
	case "database":
		var s config.DatabaseSettings
		if err := c.ShouldBindJSON(&s); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		if s.Password == secretMask {
			if old, _ := config.LoadDatabaseSettings(h.dir); old != nil {
				s.Password = old.Password
			}
		}
		err = config.SaveDatabaseSettings(h.dir, s)
	case "email":
		var s config.EmailSettings
		if err := c.ShouldBindJSON(&s); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		if s.Password == secretMask {
			old, _ := config.LoadEmailSettings(h.dir)
			s.Password = old.Password
		}
		err = config.SaveEmailSettings(h.dir, s)
	case "backup":
		var s config.BackupSettings
		if err := c.ShouldBindJSON(&s); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		err = config.SaveBackupSettings(h.dir, s)
	case "servers":
		var s config.ServerNames
		if err := c.ShouldBindJSON(&s); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		err = config.SaveServerNames(h.dir, s)
	case "email_templates":
		var s config.EmailTemplates
		if err := c.ShouldBindJSON(&s); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		err = config.SaveEmailTemplates(h.dir, s)
	default:
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "unknown settings "+c.Param("name")))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to save settings: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "settings saved"))
}
