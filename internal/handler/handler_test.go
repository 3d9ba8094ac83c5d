package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"itemledger/internal/config"
	"itemledger/internal/database"
	"itemledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

type testServer struct {
	router    *gin.Engine
	configDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.NewConnection(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(dir, "ledger.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log, _ := test.NewNullLogger()
	store := service.NewStore(db)
	pen := &service.Pen{}
	ledger := service.NewLedgerService(store, pen, nil, log)
	events := service.NewEventService(store, log)

	router := gin.New()
	api := router.Group("")
	NewStockHandler(ledger, events).RegisterRoutes(api)
	NewInventoryHandler(service.NewProjectionService(store, pen, nil, log)).RegisterRoutes(api)
	NewAuditHandler(service.NewOperationLogService(store, log), ledger).RegisterRoutes(api)
	NewTradeMonitorHandler(ledger, events).RegisterRoutes(api)
	NewItemHandler(service.NewCatalogService(store, pen, log)).RegisterRoutes(api)
	NewStatisticsHandler(service.NewStatisticsService(store, log)).RegisterRoutes(api)
	NewExportHandler(service.NewExportService(store, log)).RegisterRoutes(api)
	NewImportHandler(service.NewImportService(ledger, nil, log)).RegisterRoutes(api)
	NewSettingsHandler(dir).RegisterRoutes(api)

	return &testServer{router: router, configDir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestStockEventRoutes(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/events/stock_in", map[string]any{
		"item_name":        "Iron Sword",
		"transaction_time": "2024-05-01T09:00:00Z",
		"quantity":         10,
		"cost":             "100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "success", env.Status)

	t.Run("sale beyond inventory is a conflict", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/events/stock_out", map[string]any{
			"item_name":        "Iron Sword",
			"transaction_time": "2024-05-01T10:00:00Z",
			"quantity":         11,
			"unit_price":       "15",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "insufficient_inventory", env.Code)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/events/gift", map[string]any{"item_name": "X", "quantity": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/events/stock_in", map[string]any{
			"item_name": "Iron Sword", "quantity": 0, "cost": "1",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation", env.Code)
	})

	t.Run("list returns a paged envelope", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/events/stock_in?item=Iron&limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page struct {
			Events []map[string]any `json:"events"`
			Total  int64            `json:"total"`
			Limit  int              `json:"limit"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.EqualValues(t, 1, page.Total)
		assert.Equal(t, 5, page.Limit)
		require.Len(t, page.Events, 1)
		assert.Equal(t, "Iron Sword", page.Events[0]["item_name"])
	})

	t.Run("inventory reflects the purchase", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/inventory/items/"+url.PathEscape("Iron Sword"), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var row struct {
			Quantity int `json:"quantity"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &row))
		assert.Equal(t, 10, row.Quantity)
	})

	t.Run("delete requires a key", func(t *testing.T) {
		w, _ := s.do(t, http.MethodDelete, "/api/events/stock_in?item_name=Iron%20Sword", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete of a missing event is not found", func(t *testing.T) {
		w, _ := s.do(t, http.MethodDelete, "/api/events/stock_in?item_name=Iron%20Sword&transaction_time=2023-01-01", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUndoRedoRoutes(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/events/stock_in", map[string]any{
		"item_name":        "Potion",
		"transaction_time": "2024-05-01T09:00:00Z",
		"quantity":         3,
		"cost":             "30",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/operation-logs/undo-last", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodGet, "/api/inventory/items/Potion", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/operation-logs/undo-last", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing left to undo")

	w, _ = s.do(t, http.MethodPost, "/api/operation-logs/redo-last", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodGet, "/api/inventory/items/Potion", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/operation-logs?tab=stock_in", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Logs []struct {
			ID       uint `json:"id"`
			Reverted bool `json:"reverted"`
		} `json:"logs"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.EqualValues(t, 1, page.Total)
	assert.False(t, page.Logs[0].Reverted)

	w, _ = s.do(t, http.MethodPost, "/api/operation-logs/abc/undo", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/operation-logs/999/undo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportRoute(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodPost, "/api/events/stock_in", map[string]any{
		"item_name":        "Gem",
		"transaction_time": "2024-05-01T09:00:00Z",
		"quantity":         2,
		"cost":             "8",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/export/inventory?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=inventory_")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "Gem")

	w, _ = s.do(t, http.MethodGet, "/api/export/secrets?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsRoutes(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPut, "/api/settings/database", config.DatabaseSettings{
		Driver: "postgres", Host: "db", Port: "5432", User: "ledger", Password: "s3cret", Database: "items",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodGet, "/api/settings/database", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got config.DatabaseSettings
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, secretMask, got.Password)
	assert.Equal(t, "db", got.Host)

	// Saving the masked value back keeps the stored password.
	got.Host = "db2"
	w, _ = s.do(t, http.MethodPut, "/api/settings/database", got)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := config.LoadDatabaseSettings(s.configDir)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "s3cret", stored.Password)
	assert.Equal(t, "db2", stored.Host)

	w, _ = s.do(t, http.MethodGet, "/api/settings/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
