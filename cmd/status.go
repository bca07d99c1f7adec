package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/gates"
	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/plan"
	"github.com/specdriven/sdd/internal/run"
	"github.com/specdriven/sdd/internal/state"
)

var statusJSON bool

// statusReport is the JSON shape of `sdd status --json`
type statusReport struct {
	Gates    *models.GateState `json:"gates"`
	Run      *models.RunState  `json:"run,omitempty"`
	Sync     *models.SyncState `json:"sync,omitempty"`
	PlanInfo string            `json:"plan,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "One-shot view of gates, run progress and sync state",
	GroupID: "core",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := getBaseDir()

		gateState, err := gates.Load(dir)
		if err != nil {
			return err
		}

		report := statusReport{Gates: gateState}

		p, err := plan.Load(dir)
		if err != nil && !errors.Is(err, plan.ErrNoPlan) {
			return err
		}
		if p != nil {
			report.PlanInfo = fmt.Sprintf("version %s, %d features", p.Version, p.FeatureCount())
		}

		machine, err := run.Open(dir)
		if err != nil && !errors.Is(err, run.ErrNotSeeded) {
			return err
		}
		if machine != nil {
			report.Run = machine.State
		}

		var ss models.SyncState
		if found, err := state.Load(dir, state.SyncFile, &ss); err != nil {
			return err
		} else if found {
			report.Sync = &ss
		}

		if statusJSON {
			return output.JSON(report)
		}

		fmt.Print(output.FormatGateState(gateState))

		if report.PlanInfo != "" {
			fmt.Print(output.SectionHeader("plan"))
			fmt.Printf("  %s\n", report.PlanInfo)
		}

		if machine != nil {
			done, total, percent := machine.State.Progress()
			fmt.Print(output.SectionHeader("run"))
			fmt.Printf("  %s\n", output.FormatProgress(done, total, percent))
			if cur := machine.State.Find(machine.State.CurrentTaskID); cur != nil {
				fmt.Printf("  current: %s\n", output.FormatTaskLine(cur))
			}
			for i := range machine.State.Tasks {
				t := &machine.State.Tasks[i]
				if t.Status == models.StatusWaitingInput {
					fmt.Printf("  waiting: %s\n", output.FormatTaskLine(t))
				}
			}
		}

		if report.Sync != nil && report.Sync.Repo != "" {
			issues := 0
			for _, fs := range report.Sync.Features {
				if fs.IssueNumber != 0 {
					issues++
				}
				issues += len(fs.Tasks)
			}
			fmt.Print(output.SectionHeader("sync"))
			fmt.Printf("  %s: %d issues mapped\n", report.Sync.Repo, issues)
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(statusCmd)
}
