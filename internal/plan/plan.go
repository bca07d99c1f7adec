// Package plan loads the upstream planner's documents and decomposes
// features into ordered task lists.
package plan

import (
	"errors"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/state"
)

// ErrNoPlan is returned when plan.json is absent or unreadable
var ErrNoPlan = errors.New("no plan found (run the planner first)")

// Load reads plan.json from the project state directory
func Load(projectDir string) (*models.Plan, error) {
	var p models.Plan
	found, err := state.Load(projectDir, state.PlanFile, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoPlan
	}
	return &p, nil
}

// LoadProfile reads profile.json. An absent profile yields a default
// web-service profile rather than an error: the gates will still report the
// missing document, but ordering policy always has an answer.
func LoadProfile(projectDir string) (*models.Profile, error) {
	profile := models.Profile{Type: models.ProfileWebService}
	if _, err := state.Load(projectDir, state.ProfileFile, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindFeature locates a feature by id across all waves
func FindFeature(p *models.Plan, featureID string) (*models.Feature, bool) {
	for wi := range p.Waves {
		for fi := range p.Waves[wi].Features {
			if p.Waves[wi].Features[fi].ID == featureID {
				return &p.Waves[wi].Features[fi], true
			}
		}
	}
	return nil, false
}

// FindWave locates a wave by number
func FindWave(p *models.Plan, number int) (*models.Wave, bool) {
	for i := range p.Waves {
		if p.Waves[i].Number == number {
			return &p.Waves[i], true
		}
	}
	return nil, false
}
