package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inspect and repair the inventory projection",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list [search]",
	Short: "List projection rows",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInventoryList,
}

var inventoryRebuildCmd = &cobra.Command{
	Use:   "rebuild [item]",
	Short: "Recompute one item, or the whole projection when no item is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInventoryRebuild,
}

var inventoryVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare stored rows with a fresh recomputation",
	Args:  cobra.NoArgs,
	RunE:  runInventoryVerify,
}

var inventoryDedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate projection rows, keeping the newest per item",
	Args:  cobra.NoArgs,
	RunE:  runInventoryDedup,
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
	inventoryCmd.AddCommand(inventoryListCmd, inventoryRebuildCmd, inventoryVerifyCmd, inventoryDedupCmd)
}

func runInventoryList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	search := ""
	if len(args) == 1 {
		search = args[0]
	}
	return printResult(cmd.OutOrStdout(), a.projection.GetAll(cmd.Context(), search))
}

func runInventoryRebuild(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		row, err := a.projection.RebuildOne(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("rebuild %s: %w", args[0], err)
		}
		return printResult(cmd.OutOrStdout(), row)
	}
	rows, err := a.projection.RebuildAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d items\n", len(rows))
	return nil
}

func runInventoryVerify(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	mismatches, err := a.projection.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(mismatches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "projection is consistent")
		return nil
	}
	if err := printResult(cmd.OutOrStdout(), mismatches); err != nil {
		return err
	}
	return fmt.Errorf("%d mismatched items", len(mismatches))
}

func runInventoryDedup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	removed, err := a.projection.Dedup(cmd.Context())
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate rows\n", removed)
	return nil
}
