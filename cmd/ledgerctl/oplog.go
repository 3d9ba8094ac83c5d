package main

import (
	"fmt"
	"strconv"

	"itemledger/internal/model"

	"github.com/spf13/cobra"
)

var (
	logsTab    string
	logsType   string
	logsSearch string
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List operation log entries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

var undoCmd = &cobra.Command{
	Use:   "undo [log-id]",
	Short: "Undo an operation, or the latest reversible one when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUndo,
}

var redoCmd = &cobra.Command{
	Use:   "redo [log-id]",
	Short: "Redo an undone operation, or the latest undone one when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRedo,
}

func init() {
	rootCmd.AddCommand(logsCmd, undoCmd, redoCmd)

	logsCmd.Flags().StringVar(&logsTab, "tab", "", "filter by tab")
	logsCmd.Flags().StringVar(&logsType, "type", "", "filter by operation type")
	logsCmd.Flags().StringVarP(&logsSearch, "search", "s", "", "keyword in operation data")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "number of entries")
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	entries, total := a.logs.GetOperationLogs(cmd.Context(), model.OperationLogFilter{
		Tab:     logsTab,
		Type:    logsType,
		Keyword: logsSearch,
		Page:    1,
		Limit:   logsLimit,
	})
	if err := printResult(cmd.OutOrStdout(), entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d entries\n", len(entries), total)
	return nil
}

func runUndo(cmd *cobra.Command, args []string) error {
	return runFlip(cmd, args, "undo")
}

func runRedo(cmd *cobra.Command, args []string) error {
	return runFlip(cmd, args, "redo")
}

func runFlip(cmd *cobra.Command, args []string, action string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	var entry *model.OperationLog
	switch {
	case len(args) == 1:
		id, perr := strconv.ParseUint(args[0], 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid log id %q", args[0])
		}
		if action == "undo" {
			entry, err = a.ledger.Undo(cmd.Context(), uint(id))
		} else {
			entry, err = a.ledger.Redo(cmd.Context(), uint(id))
		}
	case action == "undo":
		entry, err = a.ledger.UndoLast(cmd.Context())
	default:
		entry, err = a.ledger.RedoLast(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s (%s)\n", action, entry.ID, entry.OperationType, entry.TabName)
	return nil
}
