package run

import (
	"strings"
	"testing"

	"github.com/specdriven/sdd/internal/models"
)

func TestPromptPerKind(t *testing.T) {
	tests := []struct {
		kind models.TaskKind
		want string
	}{
		{models.KindDB, "data layer"},
		{models.KindAPI, "API surface"},
		{models.KindUI, "user-facing surface"},
		{models.KindIntegration, "end to end"},
		{models.KindTest, "test suite"},
		{models.KindReview, "Review the completed work"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			task := &models.TaskExecution{
				TaskID:    "F-001-" + strings.ToUpper(string(tt.kind)),
				FeatureID: "F-001",
				Kind:      tt.kind,
				Name:      "Login: task",
			}
			got := Prompt(task)
			if !strings.Contains(got, tt.want) {
				t.Errorf("prompt for %s missing %q", tt.kind, tt.want)
			}
			if !strings.Contains(got, task.TaskID) || !strings.Contains(got, "F-001") {
				t.Error("prompt must reference the task and feature ids")
			}
		})
	}
}

func TestPromptDeterministic(t *testing.T) {
	task := &models.TaskExecution{TaskID: "F-001-DB", FeatureID: "F-001", Kind: models.KindDB, Name: "x"}
	if Prompt(task) != Prompt(task) {
		t.Error("prompt generation must be pure")
	}
}
