package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/plan"
	"github.com/specdriven/sdd/internal/run"
)

var planJSON bool

var planCmd = &cobra.Command{
	Use:     "plan",
	Short:   "Show the plan: waves, features and ordering",
	GroupID: "core",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(getBaseDir())
		if err != nil {
			return err
		}
		profile, err := plan.LoadProfile(getBaseDir())
		if err != nil {
			return err
		}

		if planJSON {
			return output.JSON(p)
		}

		fmt.Printf("Plan version %s (%d features, profile %s)\n", p.Version, p.FeatureCount(), profile.Type)

		machine, err := run.Open(getBaseDir())
		seeded := err == nil
		if err != nil && !errors.Is(err, run.ErrNotSeeded) {
			return err
		}

		for _, wave := range p.Waves {
			fmt.Print(output.SectionHeader(fmt.Sprintf("wave %d", wave.Number)))
			for _, f := range wave.Features {
				mode := plan.DetermineOrderMode(profile, f.Type)
				fmt.Printf("  %s  %s [%s/%s] %s (%s)\n", f.ID, f.Name, f.Priority, f.Size, f.Type, mode)
				if !seeded {
					continue
				}
				for _, kind := range plan.KindsFor(mode) {
					if t := machine.State.Find(plan.TaskID(f.ID, kind)); t != nil {
						fmt.Printf("    %s  %s\n", output.TaskBadge(t.Status), t.TaskID)
					}
				}
			}
		}

		if seeded {
			done, total, percent := machine.State.Progress()
			fmt.Printf("\n%s\n", output.FormatProgress(done, total, percent))
		} else {
			fmt.Println("\nNot seeded yet; `sdd run` will decompose the plan into tasks.")
		}
		return nil
	},
}

// loadSeededMachine opens the run state, seeding it from the plan first when
// absent. Used by every workflow command that needs tasks to exist.
func loadSeededMachine() (*run.Machine, *models.Plan, error) {
	dir := getBaseDir()
	p, err := plan.Load(dir)
	if err != nil {
		return nil, nil, err
	}
	profile, err := plan.LoadProfile(dir)
	if err != nil {
		return nil, nil, err
	}

	machine, err := run.Open(dir)
	if errors.Is(err, run.ErrNotSeeded) {
		machine, err = run.Seed(dir, p, profile)
	}
	if err != nil {
		return nil, nil, err
	}
	return machine, p, nil
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "emit the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
