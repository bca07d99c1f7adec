package ghsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/specdriven/sdd/internal/plan"
	"github.com/specdriven/sdd/internal/run"
)

// issueState is the JSON shape of `gh issue view --json state`
type issueState struct {
	State string `json:"state"`
}

// Pull queries the tracker for every known task mapping and reconciles
// github-sync.json and run-state.json. A closed issue marks the local task
// done; local done is never regressed by a remote reopen. When no local run
// state exists it is synthesized from the plan first, so pull can recover a
// lost run-state.json from the tracker's record of truth.
func (s *Syncer) Pull(ctx context.Context) (*PullResult, error) {
	result := &PullResult{}

	ss, err := s.loadSyncState()
	if err != nil {
		return nil, err
	}
	if ss.Repo == "" || len(ss.Features) == 0 {
		return result, nil
	}

	machine, err := run.Open(s.dir)
	if errors.Is(err, run.ErrNotSeeded) {
		machine, err = s.reseed()
	}
	if err != nil {
		return nil, err
	}

	// Deterministic iteration keeps the throttling and logs stable.
	featureIDs := make([]string, 0, len(ss.Features))
	for id := range ss.Features {
		featureIDs = append(featureIDs, id)
	}
	sort.Strings(featureIDs)

	for _, featureID := range featureIDs {
		fs := ss.Features[featureID]
		taskIDs := make([]string, 0, len(fs.Tasks))
		for id := range fs.Tasks {
			taskIDs = append(taskIDs, id)
		}
		sort.Strings(taskIDs)

		for _, taskID := range taskIDs {
			ts := fs.Tasks[taskID]
			closed, err := s.issueClosed(ctx, ss.Repo, ts.IssueNumber)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", taskID, err))
				continue
			}
			result.Checked++

			if closed {
				ts.State = "closed"
				changed, err := machine.MarkDoneFromRemote(taskID)
				if err != nil {
					return nil, err
				}
				if changed {
					result.Closed++
				}
			} else {
				ts.State = "open"
			}
		}
	}

	if err := s.saveSyncState(ss); err != nil {
		return nil, err
	}
	return result, nil
}

// reseed rebuilds a lost run state from the plan
func (s *Syncer) reseed() (*run.Machine, error) {
	p, err := plan.Load(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot synthesize run state: %w", err)
	}
	profile, err := plan.LoadProfile(s.dir)
	if err != nil {
		return nil, err
	}
	return run.Seed(s.dir, p, profile)
}

func (s *Syncer) issueClosed(ctx context.Context, repo string, number int) (bool, error) {
	out, err := s.retry(ctx, false, func(ctx context.Context) (string, error) {
		return s.exec.Run(ctx, "gh", "issue", "view", strconv.Itoa(number), "--repo", repo, "--json", "state")
	})
	if err != nil {
		return false, err
	}

	var st issueState
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return false, fmt.Errorf("parse issue state: %w", err)
	}
	return strings.EqualFold(st.State, "closed"), nil
}
