package plan

import (
	"fmt"
	"strings"

	"github.com/specdriven/sdd/internal/models"
)

// OrderMode selects which of the two fixed task orderings applies
type OrderMode string

const (
	// OrderImplementationFirst builds layers bottom-up and tests last
	OrderImplementationFirst OrderMode = "implementation-first"
	// OrderTestFirst writes the test task before any implementation (TDD)
	OrderTestFirst OrderMode = "test-first"
)

// The two orderings are fixed permutations of the same six kinds.
var (
	implementationFirstOrder = []models.TaskKind{
		models.KindDB, models.KindAPI, models.KindUI,
		models.KindIntegration, models.KindReview, models.KindTest,
	}
	testFirstOrder = []models.TaskKind{
		models.KindTest, models.KindDB, models.KindAPI,
		models.KindUI, models.KindIntegration, models.KindReview,
	}
)

// KindsFor returns the task kind permutation for a mode
func KindsFor(mode OrderMode) []models.TaskKind {
	if mode == OrderTestFirst {
		return testFirstOrder
	}
	return implementationFirstOrder
}

// DetermineOrderMode selects test-first when the profile mandates TDD for
// every feature, or when the feature's contract/core layer is shared and
// therefore change-sensitive.
func DetermineOrderMode(profile *models.Profile, featureType models.FeatureType) OrderMode {
	if profile != nil && profile.TDDRequired {
		return OrderTestFirst
	}
	if featureType == models.FeatureCommon {
		return OrderTestFirst
	}
	return OrderImplementationFirst
}

var kindNames = map[models.TaskKind]string{
	models.KindDB:          "Schema & data layer",
	models.KindAPI:         "API endpoints",
	models.KindUI:          "User interface",
	models.KindIntegration: "Integration wiring",
	models.KindTest:        "Test suite",
	models.KindReview:      "Code review",
}

var kindSpecRefs = map[models.TaskKind][]string{
	models.KindDB:          {"boundary_values"},
	models.KindAPI:         {"io_examples", "exception_responses"},
	models.KindUI:          {"io_examples"},
	models.KindIntegration: {"acceptance_scenarios"},
	models.KindTest:        {"io_examples", "boundary_values", "exception_responses", "acceptance_scenarios"},
	models.KindReview:      {"acceptance_scenarios"},
}

// TaskID builds the canonical task id for a feature and kind
func TaskID(featureID string, kind models.TaskKind) string {
	return fmt.Sprintf("%s-%s", featureID, strings.ToUpper(string(kind)))
}

// Decompose produces the fixed sequence of six tasks for a feature under
// the given ordering, chaining blocking edges between neighbors. Pure and
// deterministic: identical inputs always yield an identical task list.
func Decompose(feature models.Feature, mode OrderMode) []models.Task {
	kinds := KindsFor(mode)
	tasks := make([]models.Task, len(kinds))

	for i, kind := range kinds {
		tasks[i] = models.Task{
			ID:        TaskID(feature.ID, kind),
			FeatureID: feature.ID,
			Kind:      kind,
			Name:      fmt.Sprintf("%s: %s", feature.Name, kindNames[kind]),
			SpecRefs:  kindSpecRefs[kind],
		}
	}

	// Each task blocks its successor.
	for i := range tasks {
		if i > 0 {
			tasks[i].BlockedBy = []string{tasks[i-1].ID}
		}
		if i < len(tasks)-1 {
			tasks[i].Blocks = []string{tasks[i+1].ID}
		}
	}

	return tasks
}
