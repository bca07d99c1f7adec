package models

import (
	"time"
)

// GateID identifies one of the three precondition gates
type GateID string

const (
	GateEnv  GateID = "A" // environment readiness
	GatePlan GateID = "B" // planning completeness
	GateSpec GateID = "C" // specification completeness (SSOT)
)

// GateStatus represents the evaluation state of a single gate
type GateStatus string

const (
	GatePending GateStatus = "pending"
	GateFailed  GateStatus = "failed"
	GatePassed  GateStatus = "passed"
)

// Check is a single named precondition with a human-readable message
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// GateEntry is the persisted result of one gate evaluation
type GateEntry struct {
	Status      GateStatus `json:"status"`
	Checks      []Check    `json:"checks,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// SSOTGateEntry extends GateEntry with per-file missing-section detail
// for the specification-completeness gate.
type SSOTGateEntry struct {
	GateEntry
	MissingSections map[string][]string `json:"missing_sections,omitempty"`
}

// GateState holds all three gate entries, persisted as gates.json
type GateState struct {
	A GateEntry     `json:"gate_a"`
	B GateEntry     `json:"gate_b"`
	C SSOTGateEntry `json:"gate_c"`
}

// StatusFromChecks derives a gate status from its check list.
// An empty check list is always failed, never passed.
func StatusFromChecks(checks []Check) GateStatus {
	if len(checks) == 0 {
		return GateFailed
	}
	for _, c := range checks {
		if !c.Passed {
			return GateFailed
		}
	}
	return GatePassed
}

// AllPassed reports whether every gate entry is passed
func (g *GateState) AllPassed() bool {
	return g.A.Status == GatePassed && g.B.Status == GatePassed && g.C.Status == GatePassed
}

// Status returns the persisted status of one gate
func (g *GateState) Status(id GateID) GateStatus {
	switch id {
	case GateEnv:
		return g.A.Status
	case GatePlan:
		return g.B.Status
	default:
		return g.C.Status
	}
}

// Reset returns all three entries to pending without discarding the document
func (g *GateState) Reset() {
	g.A = GateEntry{Status: GatePending}
	g.B = GateEntry{Status: GatePending}
	g.C = SSOTGateEntry{GateEntry: GateEntry{Status: GatePending}}
}

// Priority represents feature priority
type Priority string

const (
	PriorityP0 Priority = "P0" // critical
	PriorityP1 Priority = "P1" // high
	PriorityP2 Priority = "P2" // medium (default)
)

// Size represents feature sizing
type Size string

const (
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

// FeatureType distinguishes shared contract/core features from
// product-specific ones. Common features are change-sensitive and are
// ordered test-first.
type FeatureType string

const (
	FeatureCommon      FeatureType = "common"
	FeatureProprietary FeatureType = "proprietary"
)

// Feature is a unit of product functionality produced by upstream planning.
// Read-only to this tool.
type Feature struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Priority        Priority    `json:"priority"`
	Size            Size        `json:"size"`
	Type            FeatureType `json:"type"`
	DependsOn       []string    `json:"depends_on,omitempty"`
	DependencyCount int         `json:"dependency_count"`
}

// Wave is an ordered batch of features grouped by dependency depth
type Wave struct {
	Number   int       `json:"number"`
	Name     string    `json:"name,omitempty"`
	Features []Feature `json:"features"`
}

// Plan is the upstream planner's output, persisted as plan.json
type Plan struct {
	Version string `json:"version,omitempty"`
	Waves   []Wave `json:"waves"`
}

// FeatureCount returns the total number of features across all waves
func (p *Plan) FeatureCount() int {
	n := 0
	for _, w := range p.Waves {
		n += len(w.Features)
	}
	return n
}

// Features returns every feature in wave order
func (p *Plan) Features() []Feature {
	var out []Feature
	for _, w := range p.Waves {
		out = append(out, w.Features...)
	}
	return out
}

// ProfileType categorizes the project for gate and ordering policy
type ProfileType string

const (
	ProfileWebService ProfileType = "web-service"
	ProfileCLITool    ProfileType = "cli-tool"
	ProfileLibrary    ProfileType = "library"
	ProfileStaticSite ProfileType = "static-site"
	ProfilePrototype  ProfileType = "prototype"
)

// Profile is the project-level configuration selecting which gate and
// ordering policies apply. Persisted as profile.json, read-only here.
type Profile struct {
	Type        ProfileType `json:"type"`
	TDDRequired bool        `json:"tdd_required,omitempty"`
	SpecDirs    []string    `json:"spec_dirs,omitempty"`
}

// SpecExempt reports whether the profile skips specification scanning
// entirely. Static-content projects have no behavior to specify.
func (p *Profile) SpecExempt() bool {
	return p.Type == ProfileStaticSite
}

// TaskKind is one of the six fixed work-item types a feature decomposes into
type TaskKind string

const (
	KindDB          TaskKind = "db"
	KindAPI         TaskKind = "api"
	KindUI          TaskKind = "ui"
	KindIntegration TaskKind = "integration"
	KindTest        TaskKind = "test"
	KindReview      TaskKind = "review"
)

// Task is a derived work item. Never persisted on its own; it seeds a
// TaskExecution in the run state.
type Task struct {
	ID        string   `json:"id"`
	FeatureID string   `json:"feature_id"`
	Kind      TaskKind `json:"kind"`
	Name      string   `json:"name"`
	SpecRefs  []string `json:"spec_refs,omitempty"`
	BlockedBy []string `json:"blocked_by,omitempty"`
	Blocks    []string `json:"blocks,omitempty"`
}

// TaskStatus represents the lifecycle state of a task execution
type TaskStatus string

const (
	StatusBacklog      TaskStatus = "backlog"
	StatusInProgress   TaskStatus = "in_progress"
	StatusWaitingInput TaskStatus = "waiting_input"
	StatusDone         TaskStatus = "done"
	StatusFailed       TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// FileAction describes what happened to a modified file
type FileAction string

const (
	FileCreated  FileAction = "created"
	FileModified FileAction = "modified"
	FileDeleted  FileAction = "deleted"
)

// FileChange records one file touched while executing a task
type FileChange struct {
	Path   string     `json:"path"`
	Action FileAction `json:"action"`
}

// EscalationTrigger categorizes why a task needs a human decision
type EscalationTrigger string

const (
	TriggerAmbiguousRequirement EscalationTrigger = "ambiguous_requirement"
	TriggerConflictingSpecs     EscalationTrigger = "conflicting_specs"
	TriggerMissingDependency    EscalationTrigger = "missing_dependency"
	TriggerCircularDependency   EscalationTrigger = "circular_dependency"
	TriggerRiskyChange          EscalationTrigger = "risky_change"
	TriggerScopeQuestion        EscalationTrigger = "scope_question"
)

// EscalationOption is one ranked choice presented to the operator
type EscalationOption struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
}

// Escalation is a suspend point requiring a human decision. The record and
// its answer are kept after resolution for audit.
type Escalation struct {
	Trigger     EscalationTrigger  `json:"trigger"`
	Context     string             `json:"context,omitempty"`
	Question    string             `json:"question"`
	Options     []EscalationOption `json:"options,omitempty"`
	Recommended string             `json:"recommended,omitempty"`
	Rationale   string             `json:"rationale,omitempty"`
	Answer      string             `json:"answer,omitempty"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}

// TaskExecution is the per-task lifecycle record owned by the run state
// machine. Mutated only through its transition functions.
type TaskExecution struct {
	TaskID      string       `json:"task_id"`
	FeatureID   string       `json:"feature_id"`
	Kind        TaskKind     `json:"kind"`
	Name        string       `json:"name"`
	Status      TaskStatus   `json:"status"`
	Files       []FileChange `json:"files,omitempty"`
	Escalation  *Escalation  `json:"escalation,omitempty"`
	Prompt      string       `json:"prompt,omitempty"`
	Score       int          `json:"score,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// RunStatus summarizes the whole run
type RunStatus string

const (
	RunIdle       RunStatus = "idle"
	RunInProgress RunStatus = "in_progress"
	RunComplete   RunStatus = "complete"
)

// RunState is the persisted run document (run-state.json)
type RunState struct {
	Status        RunStatus       `json:"status"`
	PlanVersion   string          `json:"plan_version,omitempty"`
	CurrentTaskID string          `json:"current_task_id,omitempty"`
	Tasks         []TaskExecution `json:"tasks"`
}

// Find returns a pointer into Tasks for the given id, or nil
func (r *RunState) Find(taskID string) *TaskExecution {
	for i := range r.Tasks {
		if r.Tasks[i].TaskID == taskID {
			return &r.Tasks[i]
		}
	}
	return nil
}

// Progress returns done count, total count and percent complete
func (r *RunState) Progress() (done, total, percent int) {
	total = len(r.Tasks)
	for i := range r.Tasks {
		if r.Tasks[i].Status == StatusDone {
			done++
		}
	}
	if total > 0 {
		percent = done * 100 / total
	}
	return done, total, percent
}

// TaskSync maps a local task to its external issue
type TaskSync struct {
	IssueNumber int    `json:"issue_number"`
	State       string `json:"state"` // open / closed
}

// FeatureSync maps a feature to its parent issue and task children
type FeatureSync struct {
	IssueNumber int                  `json:"issue_number"`
	Tasks       map[string]*TaskSync `json:"tasks,omitempty"`
}

// SyncState is the sole bridge between local task identity and external
// tracker identity, persisted as github-sync.json. Append-only except for
// status fields.
type SyncState struct {
	Repo          string                  `json:"repo,omitempty"`
	ProjectNumber int                     `json:"project_number,omitempty"`
	Features      map[string]*FeatureSync `json:"features,omitempty"`
}

// FeatureFor returns the sync mapping for a feature, creating it if needed
func (s *SyncState) FeatureFor(featureID string) *FeatureSync {
	if s.Features == nil {
		s.Features = make(map[string]*FeatureSync)
	}
	fs, ok := s.Features[featureID]
	if !ok {
		fs = &FeatureSync{Tasks: make(map[string]*TaskSync)}
		s.Features[featureID] = fs
	}
	if fs.Tasks == nil {
		fs.Tasks = make(map[string]*TaskSync)
	}
	return fs
}
