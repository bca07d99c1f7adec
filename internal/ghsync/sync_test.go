package ghsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/state"
)

// fakeExec scripts gh responses and records every invocation
type fakeExec struct {
	calls   []string
	handler func(call string) (string, error)
}

func (f *fakeExec) Run(_ context.Context, name string, args ...string) (string, error) {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	return f.handler(call)
}

func (f *fakeExec) count(substr string) int {
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

// fakeSleeper records requested sleep durations without waiting
type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}

// ghHappyPath answers auth, label, project and issue-create calls, handing
// out sequential issue numbers.
func ghHappyPath() func(call string) (string, error) {
	next := 100
	return func(call string) (string, error) {
		switch {
		case strings.HasPrefix(call, "gh auth status"):
			return "logged in", nil
		case strings.HasPrefix(call, "gh label create"):
			return "", nil
		case strings.HasPrefix(call, "gh project item-add"):
			return "added", nil
		case strings.HasPrefix(call, "gh issue create"):
			next++
			return fmt.Sprintf("https://github.com/acme/widgets/issues/%d\n", next), nil
		default:
			return "", fmt.Errorf("unexpected call: %s", call)
		}
	}
}

func pushPlan() *models.Plan {
	return &models.Plan{
		Version: "1",
		Waves: []models.Wave{{Number: 1, Features: []models.Feature{{
			ID:       "F-001",
			Name:     "Login",
			Priority: models.PriorityP0,
			Size:     models.SizeM,
			Type:     models.FeatureProprietary,
		}}}},
	}
}

func newTestSyncer(t *testing.T, exec Executor) (*Syncer, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewWith(dir, exec, &fakeSleeper{})
	s.SetBackoffBase(time.Millisecond)
	s.SetCreateDelay(0)
	return s, dir
}

func TestPushCreatesFeatureAndTasks(t *testing.T) {
	exec := &fakeExec{handler: ghHappyPath()}
	s, dir := newTestSyncer(t, exec)

	result, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if result.FeaturesCreated != 1 || result.TasksCreated != 6 {
		t.Errorf("created = (%d features, %d tasks), want (1, 6)", result.FeaturesCreated, result.TasksCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if got := exec.count("gh issue create"); got != 7 {
		t.Errorf("issue create called %d times, want 7", got)
	}

	var ss models.SyncState
	found, err := state.Load(dir, state.SyncFile, &ss)
	if err != nil || !found {
		t.Fatalf("sync state not persisted: %v", err)
	}
	if ss.Repo != "acme/widgets" {
		t.Errorf("repo = %s", ss.Repo)
	}
	fs := ss.Features["F-001"]
	if fs == nil || fs.IssueNumber == 0 {
		t.Fatal("feature mapping missing")
	}
	if len(fs.Tasks) != 6 {
		t.Errorf("task mappings = %d, want 6", len(fs.Tasks))
	}
	if ts := fs.Tasks["F-001-DB"]; ts == nil || ts.IssueNumber == 0 || ts.State != "open" {
		t.Errorf("F-001-DB mapping = %+v", ts)
	}
	if _, err := os.Stat(state.Path(dir, ".lock")); err != nil {
		t.Errorf("push did not take the state lock: %v", err)
	}
}

func TestPushIdempotentSecondRun(t *testing.T) {
	exec := &fakeExec{handler: ghHappyPath()}
	s, dir := newTestSyncer(t, exec)

	if _, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"}); err != nil {
		t.Fatal(err)
	}

	var before models.SyncState
	if _, err := state.Load(dir, state.SyncFile, &before); err != nil {
		t.Fatal(err)
	}
	createsBefore := exec.count("gh issue create")

	result, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"})
	if err != nil {
		t.Fatalf("second Push: %v", err)
	}

	if result.FeaturesCreated != 0 || result.TasksCreated != 0 {
		t.Errorf("second run created records: %+v", result)
	}
	if result.Skipped != 7 {
		t.Errorf("skipped = %d, want 7 (feature + 6 tasks)", result.Skipped)
	}
	if exec.count("gh issue create") != createsBefore {
		t.Error("second run issued creation commands")
	}

	var after models.SyncState
	if _, err := state.Load(dir, state.SyncFile, &after); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("sync state changed on idempotent re-run")
	}
}

func TestPushResumesPartialState(t *testing.T) {
	exec := &fakeExec{handler: ghHappyPath()}
	s, dir := newTestSyncer(t, exec)

	// Simulate a crash after the feature and two tasks were recorded.
	partial := models.SyncState{Repo: "acme/widgets"}
	fs := partial.FeatureFor("F-001")
	fs.IssueNumber = 50
	fs.Tasks["F-001-DB"] = &models.TaskSync{IssueNumber: 51, State: "open"}
	fs.Tasks["F-001-API"] = &models.TaskSync{IssueNumber: 52, State: "open"}
	if err := state.Save(dir, state.SyncFile, &partial); err != nil {
		t.Fatal(err)
	}

	result, err := s.Push(context.Background(), pushPlan(), Options{})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if result.FeaturesCreated != 0 {
		t.Error("existing feature must not be recreated")
	}
	if result.TasksCreated != 4 {
		t.Errorf("tasks created = %d, want 4 remaining", result.TasksCreated)
	}
	if result.Skipped != 3 {
		t.Errorf("skipped = %d, want 3 (feature + 2 existing tasks)", result.Skipped)
	}
}

func TestPushAuthFailureDegrades(t *testing.T) {
	exec := &fakeExec{handler: func(call string) (string, error) {
		if strings.HasPrefix(call, "gh auth status") {
			return "", errors.New("gh: not logged in")
		}
		return "", errors.New("should not be called")
	}}
	s, _ := newTestSyncer(t, exec)

	result, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"})
	if err != nil {
		t.Fatalf("auth failure must not fail the push: %v", err)
	}
	if result.AuthWarning == "" {
		t.Error("expected an auth warning")
	}
	if exec.count("gh issue create") != 0 {
		t.Error("no issues may be created without auth")
	}
}

func TestPushCollectsPerItemErrors(t *testing.T) {
	base := ghHappyPath()
	exec := &fakeExec{}
	exec.handler = func(call string) (string, error) {
		// Permanent failure for the UI task only.
		if strings.HasPrefix(call, "gh issue create") && strings.Contains(call, "F-001-UI") {
			return "", errors.New("gh: validation failed")
		}
		return base(call)
	}
	s, _ := newTestSyncer(t, exec)

	result, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if result.TasksCreated != 5 {
		t.Errorf("tasks created = %d, want 5 (one failed)", result.TasksCreated)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "F-001-UI") {
		t.Errorf("errors = %v, want one entry for F-001-UI", result.Errors)
	}
}

func TestPushLabelFailureTolerated(t *testing.T) {
	base := ghHappyPath()
	exec := &fakeExec{}
	exec.handler = func(call string) (string, error) {
		if strings.HasPrefix(call, "gh label create") {
			return "", errors.New("gh: label already exists")
		}
		return base(call)
	}
	s, _ := newTestSyncer(t, exec)

	result, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if result.FeaturesCreated != 1 || result.TasksCreated != 6 {
		t.Errorf("label failure must not block creation, got %+v", result)
	}
}

func TestPushLabelsEnsuredOncePerRun(t *testing.T) {
	exec := &fakeExec{handler: ghHappyPath()}
	s, _ := newTestSyncer(t, exec)

	plan := pushPlan()
	plan.Waves[0].Features = append(plan.Waves[0].Features, models.Feature{
		ID: "F-002", Name: "Billing", Type: models.FeatureProprietary,
	})

	if _, err := s.Push(context.Background(), plan, Options{Repo: "acme/widgets"}); err != nil {
		t.Fatal(err)
	}

	if got := exec.count("gh label create " + labelTask); got != 1 {
		t.Errorf("task label created %d times, want 1", got)
	}
	if got := exec.count("gh label create " + labelFeature); got != 1 {
		t.Errorf("feature label created %d times, want 1", got)
	}
}

func TestPushProjectAddBestEffort(t *testing.T) {
	base := ghHappyPath()
	exec := &fakeExec{}
	exec.handler = func(call string) (string, error) {
		if strings.HasPrefix(call, "gh project item-add") {
			return "", errors.New("project not found")
		}
		return base(call)
	}
	s, _ := newTestSyncer(t, exec)

	result, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets", Project: 4})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if result.FeaturesCreated != 1 || result.TasksCreated != 6 {
		t.Error("project board failures must be swallowed")
	}
	if exec.count("gh project item-add") != 7 {
		t.Errorf("project add called %d times, want 7", exec.count("gh project item-add"))
	}
}

func TestPushThrottlesBetweenCreations(t *testing.T) {
	exec := &fakeExec{handler: ghHappyPath()}
	dir := t.TempDir()
	sleeper := &fakeSleeper{}
	s := NewWith(dir, exec, sleeper)
	s.SetCreateDelay(250 * time.Millisecond)

	if _, err := s.Push(context.Background(), pushPlan(), Options{Repo: "acme/widgets"}); err != nil {
		t.Fatal(err)
	}

	// One throttle sleep per successful creation.
	if len(sleeper.slept) != 7 {
		t.Fatalf("slept %d times, want 7", len(sleeper.slept))
	}
	for _, d := range sleeper.slept {
		if d != 250*time.Millisecond {
			t.Errorf("throttle slept %v, want 250ms", d)
		}
	}
}
