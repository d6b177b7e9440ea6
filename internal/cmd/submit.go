package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harwoeck/planwell/internal/config"
	"github.com/harwoeck/planwell/internal/plan"
)

var submitCmd = &cobra.Command{
	Use:   "submit <plan.yaml>",
	Short: "Submit a plan and print its schedule and assignments",
	Long: `Submit loads a YAML plan document, normalizes it into a task graph,
runs critical-path scheduling, and assigns tasks to agent types.

The resulting schedule and per-agent work queues are printed as JSON.
An invalid plan is still scheduled and printed together with its
validation issues, so issues can be reviewed in context.

Example plan document:

  name: todo-app
  milestones:
    - name: Foundation
      tasks:
        - name: Design the data model
          effort: medium
        - name: Implement storage layer
          effort: high
          depends_on: [Design the data model]`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

var (
	submitSchedule    bool
	submitAssignments bool
)

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().BoolVar(&submitSchedule, "schedule", true, "Print the schedule")
	submitCmd.Flags().BoolVar(&submitAssignments, "assignments", true, "Print the per-agent assignments")
}

func runSubmit(cmd *cobra.Command, args []string) error {
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

	out := map[string]any{"plan_id": planID}
	if submitSchedule {
		sched, err := coord.GetSchedule(planID)
		if err != nil {
			return err
		}
		out["schedule"] = sched
	}
	if submitAssignments {
		result, err := coord.GetAssignmentResult(planID)
		if err != nil {
			return err
		}
		out["assignments"] = result.Assignments
		out["phases"] = result.Phases
	}

	validation, err := coord.ValidatePlan(planID)
	if err != nil {
		return err
	}
	out["validation"] = validation

	if err := printJSON(out); err != nil {
		return err
	}
	if !validation.IsValid {
		return fmt.Errorf("plan has %d validation issue(s)", len(validation.Issues))
	}
	return nil
}
