package main

import (
	"encoding/json"
	"fmt"
	"io"

	"itemledger/internal/config"
	"itemledger/internal/database"
	"itemledger/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var outputFormat string

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintenance commands for the item ledger database",
	Long: `ledgerctl works directly against the ledger database configured for the
API server (environment, configs/.env and database.json in the config dir).

It provides tools for:
  - Rebuilding and verifying the inventory projection
  - Removing duplicate inventory rows
  - Undoing and redoing logged operations
  - Exporting datasets to xlsx or csv
  - Issuing API tokens`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml or json")
}

// app holds the services a command needs. Commands open it lazily so
// that token issuance works without a database.
type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	ledger     service.LedgerService
	projection service.ProjectionService
	logs       service.OperationLogService
	exports    service.ExportService
	close      func()
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := config.NewLogger(cfg.LogLevel)

	db, err := database.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := service.NewStore(db)
	pen := &service.Pen{}
	return &app{
		cfg:        cfg,
		log:        log,
		ledger:     service.NewLedgerService(store, pen, nil, log),
		projection: service.NewProjectionService(store, pen, nil, log),
		logs:       service.NewOperationLogService(store, log),
		exports:    service.NewExportService(store, log),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}, nil
}

func printResult(w io.Writer, v any) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(toPlain(v))
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

// toPlain round-trips v through JSON so yaml output uses the json field
// names and decimal strings.
func toPlain(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
