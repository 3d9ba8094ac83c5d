package handler

import (
	"errors"
	"net/http"
	"time"

	"itemledger/internal/model"
	"itemledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// timeLayouts are accepted for time query parameters, most specific first.
var timeLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// optionalTime parses the query parameter name, returning nil when absent.
func optionalTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := parseTime(raw)
	if err != nil {
		return nil, model.NewValidationError(name, "must be RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'")
	}
	return &t, nil
}

func parseKind(c *gin.Context) (model.EventKind, error) {
	kind := model.EventKind(c.Param("kind"))
	if !kind.Valid() {
		return "", model.NewValidationError("kind", "must be stock_in or stock_out")
	}
	return kind, nil
}

// eventKey reads item_name and transaction_time from the query string.
func eventKey(c *gin.Context, timeParam string) (model.EventKey, error) {
	item := c.Query("item_name")
	if item == "" {
		return model.EventKey{}, model.NewValidationError("item_name", "is required")
	}
	at, err := optionalTime(c, timeParam)
	if err != nil {
		return model.EventKey{}, err
	}
	if at == nil {
		return model.EventKey{}, model.NewValidationError(timeParam, "is required")
	}
	return model.EventKey{ItemName: item, TransactionTime: *at}, nil
}

// statusFor maps a ledger error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case model.IsClientError(err):
		return http.StatusBadRequest
	case model.IsNotFound(err):
		return http.StatusNotFound
	case model.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, model.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCodes names the sentinel behind an error for the response code field.
var errorCodes = []struct {
	target error
	code   string
}{
	{model.ErrValidation, "validation"},
	{model.ErrInsufficientInventory, "insufficient_inventory"},
	{model.ErrNotFound, "not_found"},
	{model.ErrAmbiguous, "ambiguous"},
	{model.ErrDuplicateName, "duplicate_name"},
	{model.ErrNotReversible, "not_reversible"},
	{model.ErrAlreadyReverted, "already_reverted"},
	{model.ErrNotReverted, "not_reverted"},
	{model.ErrExternalService, "external_service"},
	{model.ErrStorage, "storage"},
}

func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			return ec.code
		}
	}
	return "internal"
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Fail(status, errorCode(err), err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}
