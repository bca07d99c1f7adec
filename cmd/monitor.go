package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/pkg/monitor"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live TUI dashboard over gates, tasks and sync",
	Long: `Launch a live-updating dashboard showing gate results, task progress and
issue sync state.

Key bindings:
  ↑/↓ or j/k  Move the task cursor
  r           Force refresh
  ?           Toggle help
  q           Quit`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := monitorInterval
		if interval < 500*time.Millisecond {
			interval = 2 * time.Second
		}

		model := monitor.NewModel(getBaseDir(), interval, version)

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running monitor: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 2*time.Second, "refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
