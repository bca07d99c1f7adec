package plan

import (
	"reflect"
	"testing"

	"github.com/specdriven/sdd/internal/models"
)

var testFeature = models.Feature{
	ID:       "F-001",
	Name:     "User Login",
	Priority: models.PriorityP0,
	Size:     models.SizeM,
	Type:     models.FeatureProprietary,
}

func kindsOf(tasks []models.Task) []models.TaskKind {
	out := make([]models.TaskKind, len(tasks))
	for i, task := range tasks {
		out[i] = task.Kind
	}
	return out
}

func TestDecomposeOrdering(t *testing.T) {
	tests := []struct {
		name string
		mode OrderMode
		want []models.TaskKind
	}{
		{
			"implementation-first",
			OrderImplementationFirst,
			[]models.TaskKind{models.KindDB, models.KindAPI, models.KindUI, models.KindIntegration, models.KindReview, models.KindTest},
		},
		{
			"test-first",
			OrderTestFirst,
			[]models.TaskKind{models.KindTest, models.KindDB, models.KindAPI, models.KindUI, models.KindIntegration, models.KindReview},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := Decompose(testFeature, tt.mode)
			if len(tasks) != 6 {
				t.Fatalf("expected 6 tasks, got %d", len(tasks))
			}
			if got := kindsOf(tasks); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("kinds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecomposeDeterministic(t *testing.T) {
	a := Decompose(testFeature, OrderTestFirst)
	b := Decompose(testFeature, OrderTestFirst)
	if !reflect.DeepEqual(a, b) {
		t.Error("two decompositions of identical inputs differ")
	}
}

func TestOrderingsArePermutations(t *testing.T) {
	for _, mode := range []OrderMode{OrderImplementationFirst, OrderTestFirst} {
		seen := make(map[models.TaskKind]int)
		for _, k := range KindsFor(mode) {
			seen[k]++
		}
		if len(seen) != 6 {
			t.Errorf("%s: expected 6 distinct kinds, got %d", mode, len(seen))
		}
		for k, n := range seen {
			if n != 1 {
				t.Errorf("%s: kind %s appears %d times", mode, k, n)
			}
		}
	}
}

func TestDecomposeBlockingEdges(t *testing.T) {
	tasks := Decompose(testFeature, OrderImplementationFirst)

	if len(tasks[0].BlockedBy) != 0 {
		t.Error("first task must have no blockers")
	}
	if len(tasks[len(tasks)-1].Blocks) != 0 {
		t.Error("last task must block nothing")
	}
	for i := 1; i < len(tasks); i++ {
		if len(tasks[i].BlockedBy) != 1 || tasks[i].BlockedBy[0] != tasks[i-1].ID {
			t.Errorf("task %s should be blocked by %s, got %v", tasks[i].ID, tasks[i-1].ID, tasks[i].BlockedBy)
		}
		if len(tasks[i-1].Blocks) != 1 || tasks[i-1].Blocks[0] != tasks[i].ID {
			t.Errorf("task %s should block %s, got %v", tasks[i-1].ID, tasks[i].ID, tasks[i-1].Blocks)
		}
	}
}

func TestDecomposeTaskIDs(t *testing.T) {
	tasks := Decompose(testFeature, OrderImplementationFirst)
	if tasks[0].ID != "F-001-DB" {
		t.Errorf("task id = %s, want F-001-DB", tasks[0].ID)
	}
	if tasks[5].ID != "F-001-TEST" {
		t.Errorf("task id = %s, want F-001-TEST", tasks[5].ID)
	}
	for _, task := range tasks {
		if task.FeatureID != testFeature.ID {
			t.Errorf("task %s has feature id %s", task.ID, task.FeatureID)
		}
	}
}

func TestDetermineOrderMode(t *testing.T) {
	tests := []struct {
		name        string
		profile     *models.Profile
		featureType models.FeatureType
		want        OrderMode
	}{
		{"tdd profile forces test-first", &models.Profile{TDDRequired: true}, models.FeatureProprietary, OrderTestFirst},
		{"common feature forces test-first", &models.Profile{}, models.FeatureCommon, OrderTestFirst},
		{"default is implementation-first", &models.Profile{}, models.FeatureProprietary, OrderImplementationFirst},
		{"nil profile proprietary", nil, models.FeatureProprietary, OrderImplementationFirst},
		{"nil profile common", nil, models.FeatureCommon, OrderTestFirst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineOrderMode(tt.profile, tt.featureType); got != tt.want {
				t.Errorf("DetermineOrderMode = %s, want %s", got, tt.want)
			}
		})
	}
}
