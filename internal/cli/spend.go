package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var spendCmd = &cobra.Command{
	Use:   "spend <budget-id> <delta>",
	Short: "Record spending against a budget",
	Long: `Record spending against a budget. The increment is applied atomically
and capped at the budget ceiling. When the post-update spend crosses the
alert threshold, one notification is published per cooldown window.`,
	Args: cobra.ExactArgs(2),
	RunE: runSpend,
}

func init() {
	rootCmd.AddCommand(spendCmd)
}

func runSpend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parse delta %q: %w", args[1], err)
	}

	manager, store, err := initManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budget, err := manager.Increment(cmd.Context(), args[0], delta)
	if err != nil {
		return fmt.Errorf("record spend: %w", err)
	}

	fmt.Printf("Spend recorded:\n")
	fmt.Printf("  Category:   %s\n", budget.Category)
	fmt.Printf("  Spent:      $%.2f of $%.2f (%.1f%%)\n",
		budget.Spent, budget.Amount, budget.SpentPercentage())
	fmt.Printf("  Remaining:  $%.2f\n", budget.Remaining())

	return nil
}
