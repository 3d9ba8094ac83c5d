package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"itemledger/internal/model"
	"itemledger/internal/projection"
	"itemledger/internal/repository"
	ws "itemledger/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store bundles the repositories the ledger reads and writes through.
type Store struct {
	Items      repository.ItemRepository
	Stock      repository.StockRepository
	Inventory  repository.InventoryRepository
	Monitors   repository.TradeMonitorRepository
	Logs       repository.OperationLogRepository
	Silver     repository.SilverMonitorRepository
	Statistics repository.StatisticsRepository
	Tx         repository.TransactionManager
}

// NewStore wires every repository to db.
func NewStore(db *gorm.DB) Store {
	return Store{
		Items:      repository.NewItemRepository(db),
		Stock:      repository.NewStockRepository(db),
		Inventory:  repository.NewInventoryRepository(db),
		Monitors:   repository.NewTradeMonitorRepository(db),
		Logs:       repository.NewOperationLogRepository(db),
		Silver:     repository.NewSilverMonitorRepository(db),
		Statistics: repository.NewStatisticsRepository(db),
		Tx:         repository.NewTransactionManager(db),
	}
}

// Pen serializes every ledger mutation in the process.
type Pen struct {
	sync.Mutex
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags of v and reports the first failure as
// a model.ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return model.NewValidationError(toSnake(fe.Field()), "failed on "+fe.Tag())
	}
	return model.NewValidationError("request", err.Error())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// now is the ledger clock at storage precision.
func now() time.Time {
	return normalizeTime(time.Now())
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// freeKeyTime moves a clock-stamped event forward one second at a time
// until (item, at) addresses no other event of kind, so every stamped event
// stays individually editable.
func freeKeyTime(ctx context.Context, stock repository.StockRepository, kind model.EventKind, item string, at time.Time) (time.Time, error) {
	for {
		key := model.EventKey{ItemName: item, TransactionTime: at}
		var err error
		if kind == model.KindStockIn {
			_, err = stock.FindStockInByKey(ctx, key)
		} else {
			_, err = stock.FindStockOutByKey(ctx, key)
		}
		switch {
		case model.IsNotFound(err):
			return at, nil
		case err != nil && !errors.Is(err, model.ErrAmbiguous):
			return time.Time{}, err
		}
		at = at.Add(time.Second)
	}
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// encodeRecords marshals each row into a payload record.
func encodeRecords[T any](rows ...T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func encodeRecord(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// newLogEntry builds an operation log row for opType with the tagged payload.
func newLogEntry(opType, tab string, p model.Payload) (*model.OperationLog, error) {
	p.Kind = opType
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return &model.OperationLog{
		OperationType:     opType,
		OperationCategory: model.CategoryOf(opType),
		TabName:           tab,
		OperationTime:     now(),
		OperationData:     datatypes.JSON(data),
		CanRevert:         model.CanRevert(opType),
	}, nil
}

// writeLog appends one operation log entry inside ctx's transaction.
func writeLog(ctx context.Context, logs repository.OperationLogRepository, opType, tab string, p model.Payload) (*model.OperationLog, error) {
	entry, err := newLogEntry(opType, tab, p)
	if err != nil {
		return nil, err
	}
	if err := logs.Log(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// refreshProjection recomputes the stored rows of items from their events.
// Items left without any event lose their row.
func refreshProjection(ctx context.Context, st Store, items ...string) error {
	done := make(map[string]bool, len(items))
	for _, item := range items {
		if item == "" || done[item] {
			continue
		}
		done[item] = true

		ins, err := st.Stock.StockInForItem(ctx, item)
		if err != nil {
			return err
		}
		outs, err := st.Stock.StockOutForItem(ctx, item)
		if err != nil {
			return err
		}
		if len(ins) == 0 && len(outs) == 0 {
			if err := st.Inventory.Delete(ctx, item); err != nil {
				return err
			}
			continue
		}
		row := projection.Compute(item, ins, outs)
		if err := st.Inventory.Upsert(ctx, &row); err != nil {
			return err
		}
	}
	return nil
}

// publish pushes a change notification to live clients. A nil hub is a no-op.
func publish(hub *ws.Hub, log logrus.FieldLogger, event string, data any) {
	if hub == nil {
		return
	}
	if err := hub.Publish(event, data); err != nil && log != nil {
		log.WithField("event", event).WithError(err).Warn("failed to publish ledger event")
	}
}
