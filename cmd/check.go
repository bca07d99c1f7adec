package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/gates"
	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/plan"
)

// gateArgs maps command arguments to gate ids
var gateArgs = map[string]models.GateID{
	"env":  models.GateEnv,
	"plan": models.GatePlan,
	"spec": models.GateSpec,
	"a":    models.GateEnv,
	"b":    models.GatePlan,
	"c":    models.GateSpec,
}

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:     "check [env|plan|spec]",
	Short:   "Evaluate the precondition gates",
	Long:    `Evaluates the environment, planning and specification gates and persists the results. With an argument, re-evaluates one gate only.`,
	GroupID: "core",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := plan.LoadProfile(getBaseDir())
		if err != nil {
			return err
		}
		ev := gates.New(getBaseDir(), profile)

		var state *models.GateState
		var target models.GateID
		if len(args) == 1 {
			id, ok := gateArgs[args[0]]
			if !ok {
				return fmt.Errorf("unknown gate %q (want env, plan or spec)", args[0])
			}
			target = id
			state, err = ev.CheckGate(id)
		} else {
			state, err = ev.CheckAll()
		}
		if err != nil {
			return err
		}

		if checkJSON {
			if err := output.JSON(state); err != nil {
				return err
			}
		} else {
			fmt.Print(output.FormatGateState(state))
		}

		if err := checkVerdict(state, target); err != nil {
			return err
		}
		if target == "" {
			output.Success("All gates passed")
		} else {
			output.Success("Gate %s passed", args[0])
		}
		return nil
	},
}

// checkVerdict decides the command's exit status. A targeted check passes or
// fails on its own gate; untargeted gates only count when checking all three.
func checkVerdict(gs *models.GateState, target models.GateID) error {
	if target != "" {
		if st := gs.Status(target); st != models.GatePassed {
			return fmt.Errorf("gate %s %s", target, st)
		}
		return nil
	}
	if !gs.AllPassed() {
		return fmt.Errorf("gates not passed")
	}
	return nil
}

var resetGatesCmd = &cobra.Command{
	Use:     "reset-gates",
	Short:   "Reset all gates to pending",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := gates.Reset(getBaseDir())
		if err != nil {
			return err
		}
		fmt.Print(output.FormatGateState(state))
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "emit gate state as JSON")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(resetGatesCmd)
}
