package service

import (
	"context"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// silverWindow is the number of observations averaged into ma_price.
const silverWindow = 5

type SilverPriceRequest struct {
	Server string          `json:"server" validate:"required,max=100"`
	Series string          `json:"series" validate:"required,max=100"`
	Price  decimal.Decimal `json:"price"`
	At     time.Time       `json:"timestamp"`
}

type SilverPoint struct {
	model.SilverMonitor
	ServerName string `json:"server_name"`
}

// SilverService tracks in-game currency prices per server.
type SilverService interface {
	RecordPrice(ctx context.Context, req SilverPriceRequest) (*SilverPoint, error)
	List(ctx context.Context, server, series string, since time.Time) []SilverPoint
}

type silverService struct {
	store     Store
	configDir string
	log       logrus.FieldLogger
}

// NewSilverService resolves server display names from servers.json in
// configDir on every call, so edits apply without a restart.
func NewSilverService(store Store, configDir string, log logrus.FieldLogger) SilverService {
	return &silverService{store: store, configDir: configDir, log: log}
}

func (s *silverService) names() config.ServerNames {
	if s.configDir == "" {
		return config.ServerNames{}
	}
	names, err := config.LoadServerNames(s.configDir)
	if err != nil {
		config.LogError(s.log, "service", "names", "load server names", s.configDir, err)
		return config.ServerNames{}
	}
	return names
}

// RecordPrice stores the price together with the moving average of the
// latest observations for the same server and series, this one included.
func (s *silverService) RecordPrice(ctx context.Context, req SilverPriceRequest) (*SilverPoint, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Price.IsPositive() {
		return nil, model.NewValidationError("price", "must be greater than 0")
	}
	at := req.At
	if at.IsZero() {
		at = now()
	}

	row := &model.SilverMonitor{
		Server:    req.Server,
		Series:    req.Series,
		Price:     req.Price.Round(4),
		Timestamp: normalizeTime(at),
	}
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		recent, err := s.store.Silver.RecentPrices(txCtx, req.Server, req.Series, silverWindow-1)
		if err != nil {
			return err
		}
		sum := row.Price
		for _, p := range recent {
			sum = sum.Add(p.Price)
		}
		row.MAPrice = sum.Div(decimal.NewFromInt(int64(len(recent) + 1))).Round(4)
		return s.store.Silver.Create(txCtx, row)
	})
	if err != nil {
		return nil, model.AsStorageError("record silver price", err)
	}
	return &SilverPoint{SilverMonitor: *row, ServerName: s.names().DisplayName(row.Server)}, nil
}

func (s *silverService) List(ctx context.Context, server, series string, since time.Time) []SilverPoint {
	rows, err := s.store.Silver.List(ctx, server, series, since)
	if err != nil {
		config.LogError(s.log, "service", "List", "list silver prices", map[string]string{"server": server, "series": series}, err)
		return []SilverPoint{}
	}
	names := s.names()
	points := make([]SilverPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, SilverPoint{SilverMonitor: r, ServerName: names.DisplayName(r.Server)})
	}
	return points
}
