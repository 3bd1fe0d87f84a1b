package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fintrack-labs/budgetguard/pkg/model"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage category budgets",
}

var budgetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a budget",
	RunE:  runBudgetCreate,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a user's active budgets",
	RunE:  runBudgetStatus,
}

var budgetEditCmd = &cobra.Command{
	Use:   "edit <budget-id>",
	Short: "Edit a budget's ceiling and alert threshold",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetEdit,
}

var budgetDeactivateCmd = &cobra.Command{
	Use:   "deactivate <budget-id>",
	Short: "Soft-delete a budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetDeactivate,
}

var budgetImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Bulk-create budgets from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetImport,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetCreateCmd)
	budgetCmd.AddCommand(budgetStatusCmd)
	budgetCmd.AddCommand(budgetEditCmd)
	budgetCmd.AddCommand(budgetDeactivateCmd)
	budgetCmd.AddCommand(budgetImportCmd)

	budgetCreateCmd.Flags().StringP("user", "u", "", "Owning user id")
	budgetCreateCmd.Flags().StringP("category", "c", "", "Category label")
	budgetCreateCmd.Flags().Float64P("amount", "a", 0, "Budget ceiling")
	budgetCreateCmd.Flags().StringP("period", "P", "MONTHLY", "Budget period (MONTHLY, QUARTERLY, YEARLY)")
	budgetCreateCmd.Flags().Float64("alert-at", 80, "Alert threshold percentage")
	_ = budgetCreateCmd.MarkFlagRequired("user")
	_ = budgetCreateCmd.MarkFlagRequired("category")
	_ = budgetCreateCmd.MarkFlagRequired("amount")

	budgetStatusCmd.Flags().StringP("user", "u", "", "Owning user id")
	budgetStatusCmd.Flags().Int("page", 1, "Result page (1-based)")
	budgetStatusCmd.Flags().Int("limit", 20, "Page size")
	_ = budgetStatusCmd.MarkFlagRequired("user")

	budgetEditCmd.Flags().Float64P("amount", "a", 0, "New budget ceiling")
	budgetEditCmd.Flags().Float64("alert-at", 80, "New alert threshold percentage")
	_ = budgetEditCmd.MarkFlagRequired("amount")
}

func runBudgetCreate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	category, _ := cmd.Flags().GetString("category")
	amount, _ := cmd.Flags().GetFloat64("amount")
	period, _ := cmd.Flags().GetString("period")
	alertAt, _ := cmd.Flags().GetFloat64("alert-at")

	manager, store, err := initManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budget, err := manager.Create(cmd.Context(), user, category, amount,
		model.BudgetPeriod(period), alertAt)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}

	fmt.Printf("Budget created:\n")
	fmt.Printf("  ID:        %s\n", budget.ID)
	fmt.Printf("  Category:  %s\n", budget.Category)
	fmt.Printf("  Amount:    $%.2f\n", budget.Amount)
	fmt.Printf("  Period:    %s\n", budget.Period)
	fmt.Printf("  Alert at:  %.0f%%\n", budget.AlertThreshold)

	return nil
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")

	manager, store, err := initManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budgets, err := manager.ListActive(cmd.Context(), user, page, limit)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	if len(budgets) == 0 {
		fmt.Println("No active budgets. Use 'budgetguard budget create' to add one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCATEGORY\tPERIOD\tAMOUNT\tSPENT\tREMAINING\tUSAGE\tALERT AT\n")
	for _, b := range budgets {
		status := ""
		if b.SpentPercentage() >= b.AlertThreshold {
			status = " [OVER THRESHOLD]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t$%.2f\t$%.2f\t%.1f%%%s\t%.0f%%\n",
			b.ID, b.Category, b.Period, b.Amount, b.Spent,
			b.Remaining(), b.SpentPercentage(), status, b.AlertThreshold,
		)
	}
	w.Flush()

	return nil
}

func runBudgetEdit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	amount, _ := cmd.Flags().GetFloat64("amount")
	alertAt, _ := cmd.Flags().GetFloat64("alert-at")

	manager, store, err := initManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budget, err := manager.Edit(cmd.Context(), args[0], amount, alertAt)
	if err != nil {
		return fmt.Errorf("edit budget: %w", err)
	}

	fmt.Printf("Budget updated: amount $%.2f, alert at %.0f%%\n",
		budget.Amount, budget.AlertThreshold)
	if budget.Amount > amount {
		fmt.Printf("Note: amount raised to current spend of $%.2f\n", budget.Spent)
	}

	return nil
}

func runBudgetDeactivate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, store, err := initManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := manager.Deactivate(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deactivate budget: %w", err)
	}

	fmt.Printf("Budget %s deactivated\n", args[0])
	return nil
}

// budgetSeed is the YAML shape accepted by 'budget import'. AlertThreshold
// is a pointer so an explicit 0 is distinguishable from an absent field.
type budgetSeed struct {
	Budgets []seedEntry `yaml:"budgets"`
}

type seedEntry struct {
	UserID         string   `yaml:"user_id"`
	Category       string   `yaml:"category"`
	Amount         float64  `yaml:"amount"`
	Period         string   `yaml:"period"`
	AlertThreshold *float64 `yaml:"alert_threshold"`
}

// threshold returns the entry's alert threshold, defaulting to 80 only when
// the field was omitted.
func (e seedEntry) threshold() float64 {
	if e.AlertThreshold == nil {
		return 80
	}
	return *e.AlertThreshold
}

func parseBudgetSeed(data []byte) ([]seedEntry, error) {
	var seed budgetSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return seed.Budgets, nil
}

func runBudgetImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	entries, err := parseBudgetSeed(data)
	if err != nil {
		return err
	}

	manager, store, err := initManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	created := 0
	for _, b := range entries {
		if _, err := manager.Create(cmd.Context(), b.UserID, b.Category, b.Amount,
			model.BudgetPeriod(b.Period), b.threshold()); err != nil {
			return fmt.Errorf("create budget for %s/%s: %w", b.UserID, b.Category, err)
		}
		created++
	}

	fmt.Printf("Imported %d budgets\n", created)
	return nil
}
