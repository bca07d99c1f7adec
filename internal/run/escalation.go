package run

import (
	"fmt"
	"strings"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/plan"
)

// EscalationDetector decides, at the start transition, whether a task must
// halt for human input. It is a pluggable policy hook: the state machine
// contract does not change when heuristics are added.
type EscalationDetector interface {
	Detect(task *models.TaskExecution, p *models.Plan) *models.Escalation
}

// NopDetector never escalates
type NopDetector struct{}

func (NopDetector) Detect(*models.TaskExecution, *models.Plan) *models.Escalation { return nil }

// HeuristicDetector flags features caught in a dependency cycle before work
// on them starts.
type HeuristicDetector struct{}

func (HeuristicDetector) Detect(task *models.TaskExecution, p *models.Plan) *models.Escalation {
	if p == nil {
		return nil
	}
	cycle := dependencyCycle(p, task.FeatureID)
	if cycle == nil {
		return nil
	}

	return &models.Escalation{
		Trigger:  models.TriggerCircularDependency,
		Context:  fmt.Sprintf("feature %s participates in dependency cycle: %s", task.FeatureID, strings.Join(cycle, " → ")),
		Question: "The feature's dependencies form a cycle. How should work proceed?",
		Options: []models.EscalationOption{
			{ID: "break", Description: "Break the cycle by removing one dependency edge in the plan", Impact: "plan must be re-generated"},
			{ID: "proceed", Description: "Proceed anyway, treating the cycle as informational", Impact: "downstream tasks may block on each other"},
			{ID: "defer", Description: "Skip this feature until the plan is fixed", Impact: "feature slips to a later wave"},
		},
		Recommended: "break",
		Rationale:   "cyclic dependencies make the wave ordering unsound; fixing the plan is cheaper now than later",
	}
}

// dependencyCycle returns a feature-id path forming a cycle reachable from
// start, or nil when the dependency graph below start is acyclic.
func dependencyCycle(p *models.Plan, start string) []string {
	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	color := make(map[string]int)
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = inStack
		path = append(path, id)

		feature, ok := plan.FindFeature(p, id)
		if ok {
			for _, dep := range feature.DependsOn {
				switch color[dep] {
				case inStack:
					// Trim the path down to where the cycle starts.
					for i, fid := range path {
						if fid == dep {
							cycle = append(append([]string{}, path[i:]...), dep)
							return true
						}
					}
				case unvisited:
					if visit(dep) {
						return true
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = finished
		return false
	}

	if visit(start) {
		return cycle
	}
	return nil
}
