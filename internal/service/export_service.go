package service

import (
	"context"
	"io"

	"itemledger/internal/export"
	"itemledger/internal/model"

	"github.com/sirupsen/logrus"
)

// Export datasets
const (
	DatasetInventory     = "inventory"
	DatasetOperationLogs = "operation_logs"
	DatasetStockIn       = "stock_in"
	DatasetStockOut      = "stock_out"
)

type ExportService interface {
	Export(ctx context.Context, dataset, format string, w io.Writer) error
}

type exportService struct {
	store Store
	log   logrus.FieldLogger
}

func NewExportService(store Store, log logrus.FieldLogger) ExportService {
	return &exportService{store: store, log: log}
}

// Export renders dataset to w and records an export entry.
func (s *exportService) Export(ctx context.Context, dataset, format string, w io.Writer) error {
	if format == "" {
		format = export.FormatXLSX
	}
	if format != export.FormatXLSX && format != export.FormatCSV {
		return model.NewValidationError("format", "must be xlsx or csv")
	}

	table, tab, err := s.table(ctx, dataset)
	if err != nil {
		return err
	}
	if err := export.Write(w, format, table); err != nil {
		return err
	}

	_, err = writeLog(ctx, s.store.Logs, model.OpExport, tab, model.Payload{
		Target: dataset,
		Note:   format,
	})
	if err != nil {
		// the file has already been streamed
		if s.log != nil {
			s.log.WithError(err).WithField("dataset", dataset).Warn("failed to record export")
		}
	}
	return nil
}

func (s *exportService) table(ctx context.Context, dataset string) (export.Table, string, error) {
	switch dataset {
	case DatasetInventory:
		rows, err := s.store.Inventory.List(ctx, "")
		if err != nil {
			return export.Table{}, "", model.AsStorageError("export inventory", err)
		}
		return export.InventoryTable(rows), model.TabInventory, nil
	case DatasetOperationLogs:
		logs, _, err := s.store.Logs.List(ctx, model.OperationLogFilter{})
		if err != nil {
			return export.Table{}, "", model.AsStorageError("export operation logs", err)
		}
		return export.OperationLogTable(logs), "", nil
	case DatasetStockIn:
		rows, err := s.store.Stock.AllStockIn(ctx)
		if err != nil {
			return export.Table{}, "", model.AsStorageError("export stock_in", err)
		}
		return export.StockInTable(rows), model.TabStockIn, nil
	case DatasetStockOut:
		rows, err := s.store.Stock.AllStockOut(ctx)
		if err != nil {
			return export.Table{}, "", model.AsStorageError("export stock_out", err)
		}
		return export.StockOutTable(rows), model.TabStockOut, nil
	default:
		return export.Table{}, "", model.NewValidationError("dataset", "must be inventory, operation_logs, stock_in or stock_out")
	}
}
