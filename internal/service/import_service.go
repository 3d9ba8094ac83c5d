package service

import (
	"context"
	"fmt"

	"itemledger/internal/model"
	"itemledger/internal/ocr"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ImportService is the bulk intake path. It never applies the stock-out
// sufficiency guard so historical sales can be backfilled.
type ImportService interface {
	ImportRecords(ctx context.Context, kind model.EventKind, inputs []EventInput) (ImportResult, error)
	ImportText(ctx context.Context, kind model.EventKind, text string) (ImportResult, error)
	StartOCR(ctx context.Context, kind model.EventKind, images [][]byte) (string, error)
	JobStatus(id string) (ocr.JobStatus, bool)
	StopJob(id string) bool
}

type importService struct {
	ledger LedgerService
	runner *ocr.Runner
	log    logrus.FieldLogger
}

// NewImportService wires the bulk path. runner may be nil when no OCR
// endpoint is configured.
func NewImportService(ledger LedgerService, runner *ocr.Runner, log logrus.FieldLogger) ImportService {
	return &importService{ledger: ledger, runner: runner, log: log}
}

func (s *importService) ImportRecords(ctx context.Context, kind model.EventKind, inputs []EventInput) (ImportResult, error) {
	return s.ledger.ImportEvents(ctx, kind, inputs, model.TabOCRImport)
}

// ImportText parses recognised text and imports every parsed row. For
// stock-in rows the cost is quantity times the recognised unit price.
func (s *importService) ImportText(ctx context.Context, kind model.EventKind, text string) (ImportResult, error) {
	rows, skipped := ocr.ParseRows(text)
	if len(rows) == 0 {
		return ImportResult{Skipped: skipped}, model.NewValidationError("text", "no parsable rows")
	}

	inputs := make([]EventInput, 0, len(rows))
	for _, r := range rows {
		in := EventInput{ItemName: r.ItemName, Quantity: r.Quantity, Note: "ocr"}
		if kind == model.KindStockIn {
			in.Cost = r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
		} else {
			in.UnitPrice = r.UnitPrice
		}
		inputs = append(inputs, in)
	}

	res, err := s.ledger.ImportEvents(ctx, kind, inputs, model.TabOCRImport)
	res.Skipped = skipped
	return res, err
}

// StartOCR runs recognition in the background and imports each image as
// its own batch. The job outlives the caller's request.
func (s *importService) StartOCR(ctx context.Context, kind model.EventKind, images [][]byte) (string, error) {
	if s.runner == nil {
		return "", fmt.Errorf("%w: ocr endpoint is not configured", model.ErrValidation)
	}
	if !kind.Valid() {
		return "", model.NewValidationError("kind", "must be stock_in or stock_out")
	}
	if len(images) == 0 {
		return "", model.NewValidationError("images", "must not be empty")
	}

	jobCtx := context.WithoutCancel(ctx)
	id := s.runner.Start(jobCtx, images, func(res ocr.ImageResult) error {
		if res.Err != nil {
			return nil
		}
		out, err := s.ImportText(jobCtx, kind, res.Text)
		if err != nil {
			return err
		}
		if s.log != nil {
			s.log.WithFields(logrus.Fields{
				"job_id":   res.JobID,
				"image":    res.Index,
				"imported": out.Imported,
				"skipped":  len(out.Skipped),
			}).Info("ocr image imported")
		}
		return nil
	})
	return id, nil
}

func (s *importService) JobStatus(id string) (ocr.JobStatus, bool) {
	if s.runner == nil {
		return ocr.JobStatus{}, false
	}
	return s.runner.Status(id)
}

func (s *importService) StopJob(id string) bool {
	if s.runner == nil {
		return false
	}
	return s.runner.Stop(id)
}
