// Package run owns the per-task execution lifecycle: the transition table,
// the single current-task pointer and the escalation sub-protocol. All
// mutations flow through Machine methods and are flushed to run-state.json
// as whole-document writes.
package run

import (
	"errors"
	"fmt"
	"time"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/plan"
	"github.com/specdriven/sdd/internal/state"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotSeeded         = errors.New("run state not seeded (run sdd run first)")
	ErrAlreadySeeded     = errors.New("run state already seeded for this plan version")
	ErrNoEscalation      = errors.New("task has no pending escalation")
	ErrTaskActive        = errors.New("another task is already in progress")
)

// validTransitions maps each status to the statuses reachable from it via
// the interactive path. Batch completion bypasses this table deliberately.
var validTransitions = map[models.TaskStatus]map[models.TaskStatus]bool{
	models.StatusBacklog: {
		models.StatusInProgress: true,
		models.StatusFailed:     true,
	},
	models.StatusInProgress: {
		models.StatusWaitingInput: true,
		models.StatusDone:         true,
		models.StatusFailed:       true,
		models.StatusBacklog:      true, // explicit skip, no penalty
	},
	models.StatusWaitingInput: {
		models.StatusInProgress: true,
		models.StatusDone:       true,
		models.StatusFailed:     true,
	},
	// done and failed are terminal
}

// IsValidTransition reports whether from → to is legal on the interactive path
func IsValidTransition(from, to models.TaskStatus) bool {
	return validTransitions[from][to]
}

// Machine drives TaskExecution transitions and persists RunState
type Machine struct {
	dir      string
	State    *models.RunState
	Detector EscalationDetector
}

// Open loads the existing run state. A missing or corrupt run-state.json
// yields ErrNotSeeded so callers can reinitialize from the plan.
func Open(projectDir string) (*Machine, error) {
	var rs models.RunState
	found, err := state.Load(projectDir, state.RunStateFile, &rs)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotSeeded
	}
	return &Machine{dir: projectDir, State: &rs, Detector: NopDetector{}}, nil
}

// Seed builds a fresh run state from the plan, decomposing every feature of
// every wave in order. Policy for re-seeding over an existing state: a
// different plan version replaces the old state wholesale; the same plan
// version is rejected with ErrAlreadySeeded.
func Seed(projectDir string, p *models.Plan, profile *models.Profile) (*Machine, error) {
	var m *Machine
	// The existence check and the replacing write form one critical section.
	err := state.WithLock(projectDir, func() error {
		var existing models.RunState
		found, err := state.Load(projectDir, state.RunStateFile, &existing)
		if err != nil {
			return err
		}
		if found && existing.PlanVersion == p.Version {
			return ErrAlreadySeeded
		}

		rs := &models.RunState{
			Status:      models.RunIdle,
			PlanVersion: p.Version,
		}
		for _, wave := range p.Waves {
			for _, feature := range wave.Features {
				mode := plan.DetermineOrderMode(profile, feature.Type)
				for _, task := range plan.Decompose(feature, mode) {
					rs.Tasks = append(rs.Tasks, models.TaskExecution{
						TaskID:    task.ID,
						FeatureID: task.FeatureID,
						Kind:      task.Kind,
						Name:      task.Name,
						Status:    models.StatusBacklog,
					})
				}
			}
		}

		m = &Machine{dir: projectDir, State: rs, Detector: NopDetector{}}
		return m.save()
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine) save() error {
	return state.Save(m.dir, state.RunStateFile, m.State)
}

func (m *Machine) find(taskID string) (*models.TaskExecution, error) {
	task := m.State.Find(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

func (m *Machine) transitionErr(task *models.TaskExecution, to models.TaskStatus) error {
	if task.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s and cannot leave it (wanted %s)",
			ErrInvalidTransition, task.TaskID, task.Status, to)
	}
	return fmt.Errorf("%w: %s %s → %s", ErrInvalidTransition, task.TaskID, task.Status, to)
}

// Start moves a backlog task to in_progress, records its start time, sets
// the current-task pointer and generates the kind-specific prompt. If the
// escalation detector fires, the task immediately suspends to waiting_input.
func (m *Machine) Start(taskID string, p *models.Plan) error {
	task, err := m.find(taskID)
	if err != nil {
		return err
	}
	if !IsValidTransition(task.Status, models.StatusInProgress) || task.Status != models.StatusBacklog {
		return m.transitionErr(task, models.StatusInProgress)
	}
	if m.State.CurrentTaskID != "" && m.State.CurrentTaskID != taskID {
		return fmt.Errorf("%w: %s", ErrTaskActive, m.State.CurrentTaskID)
	}

	now := time.Now().UTC()
	task.Status = models.StatusInProgress
	task.StartedAt = &now
	task.Prompt = Prompt(task)
	m.State.CurrentTaskID = taskID
	m.State.Status = models.RunInProgress

	if m.Detector != nil {
		if esc := m.Detector.Detect(task, p); esc != nil {
			task.Status = models.StatusWaitingInput
			task.Escalation = esc
		}
	}

	return m.save()
}

// Escalate suspends an in_progress task for human input
func (m *Machine) Escalate(taskID string, esc *models.Escalation) error {
	task, err := m.find(taskID)
	if err != nil {
		return err
	}
	if !IsValidTransition(task.Status, models.StatusWaitingInput) {
		return m.transitionErr(task, models.StatusWaitingInput)
	}

	task.Status = models.StatusWaitingInput
	task.Escalation = esc
	return m.save()
}

// Resolve records the operator's answer and resumes the task. The
// escalation record and its answer are retained for audit.
func (m *Machine) Resolve(taskID, answer string) error {
	task, err := m.find(taskID)
	if err != nil {
		return err
	}
	if task.Status != models.StatusWaitingInput {
		return m.transitionErr(task, models.StatusInProgress)
	}
	if task.Escalation == nil {
		return fmt.Errorf("%w: %s", ErrNoEscalation, taskID)
	}

	now := time.Now().UTC()
	task.Escalation.Answer = answer
	task.Escalation.ResolvedAt = &now
	task.Status = models.StatusInProgress
	return m.save()
}

// Complete moves an active task to done, recording completion time,
// modified files and the audit score.
func (m *Machine) Complete(taskID string, files []models.FileChange, score int) error {
	task, err := m.find(taskID)
	if err != nil {
		return err
	}
	if !IsValidTransition(task.Status, models.StatusDone) {
		return m.transitionErr(task, models.StatusDone)
	}

	m.markDone(task, files, score)
	m.refreshRunStatus()
	return m.save()
}

// markDone applies the done transition without legality checks; shared by
// Complete and the batch escape hatches.
func (m *Machine) markDone(task *models.TaskExecution, files []models.FileChange, score int) {
	now := time.Now().UTC()
	task.Status = models.StatusDone
	task.CompletedAt = &now
	if len(files) > 0 {
		task.Files = files
	}
	if score > 0 {
		task.Score = score
	}
	if m.State.CurrentTaskID == task.TaskID {
		m.State.CurrentTaskID = ""
	}
}

// Fail moves any non-terminal task to failed
func (m *Machine) Fail(taskID string) error {
	task, err := m.find(taskID)
	if err != nil {
		return err
	}
	if !IsValidTransition(task.Status, models.StatusFailed) {
		return m.transitionErr(task, models.StatusFailed)
	}

	task.Status = models.StatusFailed
	if m.State.CurrentTaskID == taskID {
		m.State.CurrentTaskID = ""
	}
	return m.save()
}

// Skip returns an in_progress task to the backlog with no penalty, clearing
// its start time and the current-task pointer.
func (m *Machine) Skip(taskID string) error {
	task, err := m.find(taskID)
	if err != nil {
		return err
	}
	if task.Status != models.StatusInProgress {
		return m.transitionErr(task, models.StatusBacklog)
	}

	task.Status = models.StatusBacklog
	task.StartedAt = nil
	if m.State.CurrentTaskID == taskID {
		m.State.CurrentTaskID = ""
	}
	return m.save()
}

// CompleteFeature marks every non-done task of a feature done. This is the
// non-interactive escape hatch: it bypasses the transition table and the
// one-active-task invariant by design.
func (m *Machine) CompleteFeature(featureID string) (int, error) {
	completed := 0
	for i := range m.State.Tasks {
		task := &m.State.Tasks[i]
		if task.FeatureID != featureID || task.Status == models.StatusDone {
			continue
		}
		m.markDone(task, nil, 0)
		completed++
	}
	m.refreshRunStatus()
	return completed, m.save()
}

// CompleteWave marks every non-done task of every feature in a wave done.
// Same escape-hatch semantics as CompleteFeature.
func (m *Machine) CompleteWave(p *models.Plan, waveNumber int) (int, error) {
	wave, ok := plan.FindWave(p, waveNumber)
	if !ok {
		return 0, fmt.Errorf("wave %d not in plan", waveNumber)
	}

	features := make(map[string]bool, len(wave.Features))
	for _, f := range wave.Features {
		features[f.ID] = true
	}

	completed := 0
	for i := range m.State.Tasks {
		task := &m.State.Tasks[i]
		if !features[task.FeatureID] || task.Status == models.StatusDone {
			continue
		}
		m.markDone(task, nil, 0)
		completed++
	}
	m.refreshRunStatus()
	return completed, m.save()
}

func (m *Machine) refreshRunStatus() {
	done, total, _ := m.State.Progress()
	switch {
	case total > 0 && done == total:
		m.State.Status = models.RunComplete
	case done > 0 || m.State.CurrentTaskID != "":
		m.State.Status = models.RunInProgress
	default:
		m.State.Status = models.RunIdle
	}
}

// MarkDoneFromRemote applies an externally-observed completion: the task is
// moved to done unless it already is. A done task is never re-timestamped,
// and a remote reopen never regresses local state (callers simply don't call
// this for open records). Returns whether anything changed.
func (m *Machine) MarkDoneFromRemote(taskID string) (bool, error) {
	task := m.State.Find(taskID)
	if task == nil || task.Status == models.StatusDone {
		return false, nil
	}
	m.markDone(task, nil, 0)
	m.refreshRunStatus()
	return true, m.save()
}

// NextPending returns the first backlog task whose blocking predecessors
// (the preceding tasks of the same feature) are all done, or nil.
func (m *Machine) NextPending() *models.TaskExecution {
	done := make(map[string]bool)
	for i := range m.State.Tasks {
		if m.State.Tasks[i].Status == models.StatusDone {
			done[m.State.Tasks[i].TaskID] = true
		}
	}

	prevByFeature := make(map[string]string)
	for i := range m.State.Tasks {
		task := &m.State.Tasks[i]
		blocker := prevByFeature[task.FeatureID]
		prevByFeature[task.FeatureID] = task.TaskID

		if task.Status != models.StatusBacklog {
			continue
		}
		if blocker != "" && !done[blocker] {
			continue
		}
		return task
	}
	return nil
}
