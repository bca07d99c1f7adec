// Package gates evaluates the three precondition gates that block task
// execution: environment readiness (A), planning completeness (B) and
// specification completeness (C). Gate failures are data, not errors: each
// evaluation returns a named check list and persists the result to
// gates.json.
package gates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/state"
)

// minSpecLines is the stub threshold: candidate documents shorter than this
// are skipped rather than scanned.
const minSpecLines = 30

// defaultSpecDirs are scanned when the profile does not name its own
var defaultSpecDirs = []string{"docs/specs", "specs", filepath.Join(state.Dir, "specs")}

// Evaluator inspects a project directory and produces gate check results
type Evaluator struct {
	ProjectDir string
	Profile    *models.Profile
	Sections   SectionMatcher
}

// New returns an evaluator with the default regex section matcher
func New(projectDir string, profile *models.Profile) *Evaluator {
	return &Evaluator{
		ProjectDir: projectDir,
		Profile:    profile,
		Sections:   NewSectionMatcher(),
	}
}

// existsAny reports whether any of the relative paths exists
func (e *Evaluator) existsAny(paths ...string) (bool, string) {
	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(e.ProjectDir, p)); err == nil {
			return true, p
		}
	}
	return false, ""
}

func presenceCheck(name string, found bool, foundPath, wantHint string) models.Check {
	if found {
		return models.Check{Name: name, Passed: true, Message: "found " + foundPath}
	}
	return models.Check{Name: name, Passed: false, Message: "missing " + wantHint}
}

// CheckA evaluates environment readiness: every check is an independent
// existence test and absence of any artifact fails the gate.
func (e *Evaluator) CheckA() []models.Check {
	var checks []models.Check

	found, path := e.existsAny("go.mod", "package.json", "pyproject.toml")
	checks = append(checks, presenceCheck("dependency_manifest", found, path, "go.mod, package.json or pyproject.toml"))

	found, path = e.existsAny("vendor", "node_modules", ".venv")
	checks = append(checks, presenceCheck("dependencies_installed", found, path, "vendor/, node_modules/ or .venv/"))

	found, path = e.existsAny(".env", ".env.example")
	checks = append(checks, presenceCheck("env_config", found, path, ".env or .env.example"))

	found, path = e.existsAny(filepath.Join(".github", "workflows"), ".gitlab-ci.yml")
	checks = append(checks, presenceCheck("ci_config", found, path, ".github/workflows/ or .gitlab-ci.yml"))

	found, path = e.existsAny("Dockerfile", "compose.yaml", "docker-compose.yml")
	checks = append(checks, presenceCheck("container_config", found, path, "Dockerfile or compose file"))

	found, path = e.existsAny(state.Dir)
	checks = append(checks, presenceCheck("state_dir", found, path, state.Dir+"/"))

	return checks
}

// CheckB evaluates planning completeness against the persisted plan document
func (e *Evaluator) CheckB() []models.Check {
	var checks []models.Check

	var plan models.Plan
	planFound, err := state.Load(e.ProjectDir, state.PlanFile, &plan)
	if err != nil {
		planFound = false
	}
	if planFound {
		checks = append(checks, models.Check{Name: "plan_exists", Passed: true, Message: "plan.json present"})
	} else {
		checks = append(checks, models.Check{Name: "plan_exists", Passed: false, Message: "plan.json missing or unreadable"})
	}

	if n := plan.FeatureCount(); planFound && n > 0 {
		checks = append(checks, models.Check{Name: "plan_has_features", Passed: true, Message: fmt.Sprintf("%d features planned", n)})
	} else {
		checks = append(checks, models.Check{Name: "plan_has_features", Passed: false, Message: "plan contains no features"})
	}

	var profile models.Profile
	profileFound, err := state.Load(e.ProjectDir, state.ProfileFile, &profile)
	if err != nil {
		profileFound = false
	}
	if profileFound {
		checks = append(checks, models.Check{Name: "profile_exists", Passed: true, Message: "profile.json present"})
	} else {
		checks = append(checks, models.Check{Name: "profile_exists", Passed: false, Message: "profile.json missing or unreadable"})
	}

	return checks
}

// CheckC evaluates specification completeness. It scans candidate
// directories for spec documents and tests each against the required
// sections. Returns the check list plus per-file missing-section ids.
func (e *Evaluator) CheckC() ([]models.Check, map[string][]string) {
	if e.Profile != nil && e.Profile.SpecExempt() {
		return []models.Check{{
			Name:    "profile_exempt",
			Passed:  true,
			Message: fmt.Sprintf("profile %q is exempt from specification scanning", e.Profile.Type),
		}}, nil
	}

	docs := e.specDocuments()
	if len(docs) == 0 {
		return []models.Check{{
			Name:    "spec_documents",
			Passed:  false,
			Message: "no specification documents found in " + strings.Join(e.specDirs(), ", "),
		}}, nil
	}

	required := RequiredSections()
	var checks []models.Check
	missing := make(map[string][]string)

	for _, doc := range docs {
		data, err := os.ReadFile(filepath.Join(e.ProjectDir, doc))
		if err != nil {
			checks = append(checks, models.Check{
				Name:    "spec:" + doc,
				Passed:  false,
				Message: "unreadable: " + err.Error(),
			})
			continue
		}

		text := string(data)
		var absent []string
		for _, sectionID := range required {
			if e.waived(sectionID) {
				continue
			}
			if !e.Sections.Match(text, sectionID) {
				absent = append(absent, sectionID)
			}
		}

		if len(absent) == 0 {
			checks = append(checks, models.Check{Name: "spec:" + doc, Passed: true, Message: "all required sections present"})
		} else {
			checks = append(checks, models.Check{
				Name:    "spec:" + doc,
				Passed:  false,
				Message: "missing sections: " + strings.Join(absent, ", "),
			})
			missing[doc] = absent
		}
	}

	if len(missing) == 0 {
		missing = nil
	}
	return checks, missing
}

// waived reports whether a required section does not apply to this profile.
// Prototypes iterate too quickly for boundary-value analysis to hold.
func (e *Evaluator) waived(sectionID string) bool {
	return e.Profile != nil &&
		e.Profile.Type == models.ProfilePrototype &&
		sectionID == SectionBoundaryValues
}

func (e *Evaluator) specDirs() []string {
	if e.Profile != nil && len(e.Profile.SpecDirs) > 0 {
		return e.Profile.SpecDirs
	}
	return defaultSpecDirs
}

// specDocuments returns project-relative paths of scannable spec documents,
// excluding index/template/report files and stubs.
func (e *Evaluator) specDocuments() []string {
	var docs []string
	for _, dir := range e.specDirs() {
		entries, err := os.ReadDir(filepath.Join(e.ProjectDir, dir))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			if excludedName(entry.Name()) {
				continue
			}
			rel := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(filepath.Join(e.ProjectDir, rel))
			if err != nil {
				continue
			}
			if strings.Count(string(data), "\n")+1 < minSpecLines {
				continue // stub
			}
			docs = append(docs, rel)
		}
	}
	sort.Strings(docs)
	return docs
}

func excludedName(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range []string{"readme", "index", "template", "report"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// CheckAll evaluates every gate and persists the full GateState. The
// load-evaluate-save window runs under the state lock.
func (e *Evaluator) CheckAll() (*models.GateState, error) {
	var gs models.GateState
	err := state.WithLock(e.ProjectDir, func() error {
		if _, err := state.Load(e.ProjectDir, state.GatesFile, &gs); err != nil {
			return err
		}

		now := time.Now().UTC()

		aChecks := e.CheckA()
		gs.A = models.GateEntry{Status: models.StatusFromChecks(aChecks), Checks: aChecks, LastChecked: &now}

		bChecks := e.CheckB()
		gs.B = models.GateEntry{Status: models.StatusFromChecks(bChecks), Checks: bChecks, LastChecked: &now}

		cChecks, missing := e.CheckC()
		gs.C = models.SSOTGateEntry{
			GateEntry:       models.GateEntry{Status: models.StatusFromChecks(cChecks), Checks: cChecks, LastChecked: &now},
			MissingSections: missing,
		}

		return state.Save(e.ProjectDir, state.GatesFile, &gs)
	})
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// CheckGate evaluates a single gate and persists only that entry, leaving
// the other two untouched. Locked so the read-modify-write cannot drop a
// concurrent update to an untargeted entry.
func (e *Evaluator) CheckGate(id models.GateID) (*models.GateState, error) {
	var gs models.GateState
	err := state.WithLock(e.ProjectDir, func() error {
		if _, err := state.Load(e.ProjectDir, state.GatesFile, &gs); err != nil {
			return err
		}

		now := time.Now().UTC()

		switch id {
		case models.GateEnv:
			checks := e.CheckA()
			gs.A = models.GateEntry{Status: models.StatusFromChecks(checks), Checks: checks, LastChecked: &now}
		case models.GatePlan:
			checks := e.CheckB()
			gs.B = models.GateEntry{Status: models.StatusFromChecks(checks), Checks: checks, LastChecked: &now}
		case models.GateSpec:
			checks, missing := e.CheckC()
			gs.C = models.SSOTGateEntry{
				GateEntry:       models.GateEntry{Status: models.StatusFromChecks(checks), Checks: checks, LastChecked: &now},
				MissingSections: missing,
			}
		default:
			return fmt.Errorf("unknown gate %q", id)
		}

		return state.Save(e.ProjectDir, state.GatesFile, &gs)
	})
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// Reset clears all three gates back to pending, preserving gates.json
func Reset(projectDir string) (*models.GateState, error) {
	var gs models.GateState
	err := state.WithLock(projectDir, func() error {
		if _, err := state.Load(projectDir, state.GatesFile, &gs); err != nil {
			return err
		}
		gs.Reset()
		return state.Save(projectDir, state.GatesFile, &gs)
	})
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// Load reads the persisted gate state; absent means all-pending
func Load(projectDir string) (*models.GateState, error) {
	gs := &models.GateState{}
	gs.Reset()
	if _, err := state.Load(projectDir, state.GatesFile, gs); err != nil {
		return nil, err
	}
	return gs, nil
}
