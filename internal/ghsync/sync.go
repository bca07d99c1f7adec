package ghsync

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/specdriven/sdd/internal/git"
	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/plan"
	"github.com/specdriven/sdd/internal/state"
)

const (
	defaultBackoffBase = 2 * time.Second
	defaultCreateDelay = 500 * time.Millisecond
	tasksPerFeature    = 6
	labelFeature       = "sdd:feature"
	labelTask          = "sdd:task"
	labelColorFeature  = "1d76db"
	labelColorTask     = "0e8a16"
)

// Options control a push
type Options struct {
	Repo    string // explicit owner/name override; detected from origin when empty
	Project int    // external project board number, 0 for none
}

// PushResult summarizes one push run
type PushResult struct {
	Repo            string
	FeaturesCreated int
	TasksCreated    int
	Skipped         int
	AuthWarning     string
	Errors          []string
}

// PullResult summarizes one pull run
type PullResult struct {
	Checked int
	Closed  int
	Errors  []string
}

// Syncer maps local features and tasks to tracker issues. The executor and
// sleeper are explicit dependencies so tests can fake the gh CLI and the
// clock.
type Syncer struct {
	dir    string
	exec   Executor
	sleep  Sleeper
	base   time.Duration
	delay  time.Duration
	log    *slog.Logger
	labels map[string]bool // labels ensured this run, keyed repo+"/"+name
}

// New builds a production syncer for a project directory
func New(projectDir string) *Syncer {
	return NewWith(projectDir, ExecRunner{Dir: projectDir}, realSleeper{})
}

// NewWith builds a syncer with injected executor and sleeper
func NewWith(projectDir string, exec Executor, sleep Sleeper) *Syncer {
	return &Syncer{
		dir:    projectDir,
		exec:   exec,
		sleep:  sleep,
		base:   defaultBackoffBase,
		delay:  defaultCreateDelay,
		log:    slog.Default(),
		labels: make(map[string]bool),
	}
}

// SetBackoffBase overrides the exponential backoff base delay
func (s *Syncer) SetBackoffBase(d time.Duration) { s.base = d }

// SetCreateDelay overrides the fixed inter-creation throttle
func (s *Syncer) SetCreateDelay(d time.Duration) { s.delay = d }

// loadSyncState reads github-sync.json; absent or corrupt yields a fresh one
func (s *Syncer) loadSyncState() (*models.SyncState, error) {
	var ss models.SyncState
	if _, err := state.Load(s.dir, state.SyncFile, &ss); err != nil {
		return nil, err
	}
	return &ss, nil
}

func (s *Syncer) saveSyncState(ss *models.SyncState) error {
	return state.Save(s.dir, state.SyncFile, ss)
}

// resolveRepo picks the target repository: explicit override, previously
// synced repo, then the origin remote.
func (s *Syncer) resolveRepo(ss *models.SyncState, opts Options) (string, error) {
	if opts.Repo != "" {
		return opts.Repo, nil
	}
	if ss.Repo != "" {
		return ss.Repo, nil
	}
	return git.DetectRepo(s.dir)
}

// Push creates one parent issue per feature and one child issue per task,
// idempotently: existing mappings are skipped, every created id is written
// back to github-sync.json immediately so a crash mid-loop is resumable,
// and no record is ever created twice on retry.
func (s *Syncer) Push(ctx context.Context, p *models.Plan, opts Options) (*PushResult, error) {
	result := &PushResult{}

	// Resolving and recording the target repo is a read-modify-write of
	// github-sync.json; it runs locked. The creation loop below holds no
	// lock: each mapping write persists in-memory state this invocation owns.
	var ss *models.SyncState
	err := state.WithLock(s.dir, func() error {
		var err error
		ss, err = s.loadSyncState()
		if err != nil {
			return err
		}

		repo, err := s.resolveRepo(ss, opts)
		if err != nil {
			return fmt.Errorf("resolve repository: %w", err)
		}
		ss.Repo = repo
		if opts.Project != 0 {
			ss.ProjectNumber = opts.Project
		}
		return s.saveSyncState(ss)
	})
	if err != nil {
		return nil, err
	}
	result.Repo = ss.Repo

	// gh availability and auth are checked once per sync; failure degrades
	// the push to a warning rather than an error.
	if _, err := s.exec.Run(ctx, "gh", "auth", "status"); err != nil {
		result.AuthWarning = fmt.Sprintf("gh unavailable or unauthenticated, skipping push: %v", err)
		s.log.Warn("sync push skipped", "reason", result.AuthWarning)
		return result, nil
	}

	profile, err := plan.LoadProfile(s.dir)
	if err != nil {
		return nil, err
	}

	for _, wave := range p.Waves {
		for _, feature := range wave.Features {
			if err := s.pushFeature(ctx, ss, &wave, feature, profile, result); err != nil {
				// Per-item failures are collected; the batch continues.
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", feature.ID, err))
			}
		}
	}

	return result, nil
}

func (s *Syncer) pushFeature(ctx context.Context, ss *models.SyncState, wave *models.Wave, feature models.Feature, profile *models.Profile, result *PushResult) error {
	fs := ss.FeatureFor(feature.ID)

	// Idempotency guard: a fully mapped feature is skipped entirely.
	if fs.IssueNumber != 0 && len(fs.Tasks) >= tasksPerFeature {
		result.Skipped += 1 + len(fs.Tasks)
		return nil
	}

	waveLabel := fmt.Sprintf("wave-%d", wave.Number)
	s.ensureLabel(ctx, ss.Repo, labelFeature, labelColorFeature)
	s.ensureLabel(ctx, ss.Repo, waveLabel, "c2e0c6")

	if fs.IssueNumber == 0 {
		number, err := s.createIssue(ctx, ss.Repo,
			fmt.Sprintf("[%s] %s", feature.ID, feature.Name),
			featureBody(wave, feature),
			[]string{labelFeature, waveLabel})
		if err != nil {
			return fmt.Errorf("create feature issue: %w", err)
		}
		fs.IssueNumber = number
		if err := s.saveSyncState(ss); err != nil {
			return err
		}
		result.FeaturesCreated++
		s.addToProject(ctx, ss, number)
		if err := s.throttle(ctx); err != nil {
			return err
		}
	} else {
		result.Skipped++
	}

	s.ensureLabel(ctx, ss.Repo, labelTask, labelColorTask)

	mode := plan.DetermineOrderMode(profile, feature.Type)
	for _, task := range plan.Decompose(feature, mode) {
		if _, ok := fs.Tasks[task.ID]; ok {
			result.Skipped++
			continue
		}

		number, err := s.createIssue(ctx, ss.Repo,
			fmt.Sprintf("[%s] %s", task.ID, task.Name),
			taskBody(feature, task, fs.IssueNumber),
			[]string{labelTask, waveLabel})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", task.ID, err))
			continue
		}

		fs.Tasks[task.ID] = &models.TaskSync{IssueNumber: number, State: "open"}
		if err := s.saveSyncState(ss); err != nil {
			return err
		}
		result.TasksCreated++
		s.addToProject(ctx, ss, number)
		if err := s.throttle(ctx); err != nil {
			return err
		}
	}

	return nil
}

// issueURL extracts the issue number from the URL gh issue create prints
var issueURL = regexp.MustCompile(`/issues/(\d+)\s*$`)

func (s *Syncer) createIssue(ctx context.Context, repo, title, body string, labels []string) (int, error) {
	args := []string{"issue", "create", "--repo", repo, "--title", title, "--body", body}
	for _, l := range labels {
		args = append(args, "--label", l)
	}

	out, err := s.retry(ctx, true, func(ctx context.Context) (string, error) {
		return s.exec.Run(ctx, "gh", args...)
	})
	if err != nil {
		return 0, err
	}

	m := issueURL.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return 0, fmt.Errorf("unexpected gh output: %q", strings.TrimSpace(out))
	}
	return strconv.Atoi(m[1])
}

// ensureLabel creates a label at most once per run per repo. Label creation
// is best-effort: failure is logged and issue creation proceeds regardless.
func (s *Syncer) ensureLabel(ctx context.Context, repo, name, color string) {
	key := repo + "/" + name
	if s.labels[key] {
		return
	}
	s.labels[key] = true

	if _, err := s.exec.Run(ctx, "gh", "label", "create", name, "--repo", repo, "--color", color, "--force"); err != nil {
		s.log.Warn("label create failed", "label", name, "err", err)
	}
}

// addToProject links an issue to the external project board, best-effort
func (s *Syncer) addToProject(ctx context.Context, ss *models.SyncState, issueNumber int) {
	if ss.ProjectNumber == 0 {
		return
	}
	owner := strings.SplitN(ss.Repo, "/", 2)[0]
	url := fmt.Sprintf("https://github.com/%s/issues/%d", ss.Repo, issueNumber)
	if _, err := s.exec.Run(ctx, "gh", "project", "item-add", strconv.Itoa(ss.ProjectNumber), "--owner", owner, "--url", url); err != nil {
		s.log.Warn("project item-add failed", "issue", issueNumber, "err", err)
	}
}

func featureBody(wave *models.Wave, feature models.Feature) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Feature `%s` from wave %d.\n\n", feature.ID, wave.Number)
	fmt.Fprintf(&sb, "- Priority: %s\n- Size: %s\n- Type: %s\n", feature.Priority, feature.Size, feature.Type)
	if len(feature.DependsOn) > 0 {
		fmt.Fprintf(&sb, "- Depends on: %s\n", strings.Join(feature.DependsOn, ", "))
	}
	return sb.String()
}

func taskBody(feature models.Feature, task models.Task, parentIssue int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task `%s` (%s) for feature `%s`.\n\n", task.ID, task.Kind, feature.ID)
	if parentIssue != 0 {
		fmt.Fprintf(&sb, "Parent: #%d\n", parentIssue)
	}
	if len(task.SpecRefs) > 0 {
		fmt.Fprintf(&sb, "Spec sections: %s\n", strings.Join(task.SpecRefs, ", "))
	}
	return sb.String()
}
