package main

import (
	"fmt"
	"os"

	"itemledger/internal/export"

	"github.com/spf13/cobra"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <dataset> <file>",
	Short: "Write inventory, operation_logs, stock_in or stock_out to a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatXLSX, "xlsx or csv")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("create %s: %w", args[1], err)
	}
	if err := a.exports.Export(cmd.Context(), args[0], exportFormat, f); err != nil {
		_ = f.Close()
		_ = os.Remove(args[1])
		return fmt.Errorf("export %s: %w", args[0], err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", args[1], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
	return nil
}
