package plan

import (
	"errors"
	"testing"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/state"
)

func TestLoadMissingPlan(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	if !errors.Is(err, ErrNoPlan) {
		t.Errorf("expected ErrNoPlan, got %v", err)
	}
}

func TestLoadPlanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := models.Plan{
		Version: "2",
		Waves: []models.Wave{
			{Number: 1, Features: []models.Feature{{ID: "F-001", Name: "Login"}}},
			{Number: 2, Features: []models.Feature{{ID: "F-002", Name: "Billing"}, {ID: "F-003", Name: "Reports"}}},
		},
	}
	if err := state.Save(dir, state.PlanFile, &want); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.FeatureCount() != 3 {
		t.Errorf("FeatureCount = %d, want 3", got.FeatureCount())
	}

	if _, ok := FindFeature(got, "F-003"); !ok {
		t.Error("FindFeature failed for F-003")
	}
	if _, ok := FindFeature(got, "F-999"); ok {
		t.Error("FindFeature found nonexistent feature")
	}
	if w, ok := FindWave(got, 2); !ok || len(w.Features) != 2 {
		t.Error("FindWave(2) failed")
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	dir := t.TempDir()
	profile, err := LoadProfile(dir)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Type != models.ProfileWebService {
		t.Errorf("default profile type = %s, want web-service", profile.Type)
	}
	if profile.TDDRequired {
		t.Error("default profile must not require TDD")
	}
}
