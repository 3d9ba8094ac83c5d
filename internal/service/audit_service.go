package service

import (
	"context"
	"encoding/json"

	"itemledger/internal/config"
	"itemledger/internal/model"

	"github.com/sirupsen/logrus"
)

type OperationLogResponse struct {
	ID                uint            `json:"id"`
	OperationType     string          `json:"operation_type"`
	OperationCategory string          `json:"operation_category"`
	TabName           string          `json:"tab_name"`
	OperationTime     string          `json:"operation_time"`
	OperationData     json.RawMessage `json:"operation_data"`
	Reverted          bool            `json:"reverted"`
	CanRevert         bool            `json:"can_revert"`
}

// OperationLogService is the read side of the operation log. Undo and redo
// live on LedgerService so they share its write lock.
type OperationLogService interface {
	GetOperationLogs(ctx context.Context, filter model.OperationLogFilter) ([]OperationLogResponse, int64)
	GetOperationLog(ctx context.Context, id uint) (OperationLogResponse, error)
}

type operationLogService struct {
	store Store
	log   logrus.FieldLogger
}

// NewOperationLogService creates a new OperationLogService instance
func NewOperationLogService(store Store, log logrus.FieldLogger) OperationLogService {
	return &operationLogService{store: store, log: log}
}

// GetOperationLogs returns one page of entries, newest first, with the total
// count of matching entries.
func (s *operationLogService) GetOperationLogs(ctx context.Context, filter model.OperationLogFilter) ([]OperationLogResponse, int64) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	logs, total, err := s.store.Logs.List(ctx, filter)
	if err != nil {
		config.LogError(s.log, "service", "GetOperationLogs", "list operation logs", filter, err)
		return []OperationLogResponse{}, 0
	}

	res := make([]OperationLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toOperationLogResponse(l))
	}
	return res, total
}

func (s *operationLogService) GetOperationLog(ctx context.Context, id uint) (OperationLogResponse, error) {
	entry, err := s.store.Logs.FindByID(ctx, id)
	if err != nil {
		return OperationLogResponse{}, model.AsStorageError("get operation log", err)
	}
	return toOperationLogResponse(*entry), nil
}

func toOperationLogResponse(l model.OperationLog) OperationLogResponse {
	data := json.RawMessage(l.OperationData)
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return OperationLogResponse{
		ID:                l.ID,
		OperationType:     l.OperationType,
		OperationCategory: l.OperationCategory,
		TabName:           l.TabName,
		OperationTime:     l.OperationTime.Format("2006-01-02 15:04:05"),
		OperationData:     data,
		Reverted:          l.Reverted,
		CanRevert:         l.CanRevert,
	}
}
