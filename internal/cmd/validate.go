package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harwoeck/planwell/internal/config"
	"github.com/harwoeck/planwell/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Validate a plan without executing it",
	Long: `Validate loads a YAML plan document, normalizes it, builds the schedule,
and prints the validation outcome as JSON.

Exits non-zero when the plan is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	p, err := plan.LoadFile(args[0])
	if err != nil {
		return err
	}

	coord := newCoordinator(cfg, log)
	planID, err := coord.SubmitPlan(p)
	if err != nil {
		return err
	}

	validation, err := coord.ValidatePlan(planID)
	if err != nil {
		return err
	}
	if err := printJSON(validation); err != nil {
		return err
	}
	if !validation.IsValid {
		return fmt.Errorf("plan is invalid")
	}
	return nil
}
