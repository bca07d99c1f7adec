package cmd

import (
	"testing"

	"github.com/specdriven/sdd/internal/models"
)

func TestCheckVerdict(t *testing.T) {
	// env passed, the other two never evaluated
	gs := &models.GateState{
		A: models.GateEntry{Status: models.GatePassed},
		B: models.GateEntry{Status: models.GatePending},
		C: models.SSOTGateEntry{GateEntry: models.GateEntry{Status: models.GatePending}},
	}

	if err := checkVerdict(gs, models.GateEnv); err != nil {
		t.Errorf("targeted check of a passed gate should succeed, got %v", err)
	}
	if err := checkVerdict(gs, models.GatePlan); err == nil {
		t.Error("targeted check of a pending gate should fail")
	}
	if err := checkVerdict(gs, ""); err == nil {
		t.Error("checking all gates should fail while two are pending")
	}

	gs.B.Status = models.GatePassed
	gs.C.Status = models.GatePassed
	if err := checkVerdict(gs, ""); err != nil {
		t.Errorf("all gates passed, got %v", err)
	}
}
