package entities

import (
	"sync"
	"time"
)

// ReleasePhase is one step of the release state machine.
type ReleasePhase string

const (
	PhasePreChecks      ReleasePhase = "pre-release-checks"
	PhaseBranchCreation ReleasePhase = "branch-creation"
	PhaseVersionUpdate  ReleasePhase = "version-update"
	PhaseReleaseCreate  ReleasePhase = "release-creation"
	PhasePostRelease    ReleasePhase = "post-release-tasks"
)

// ReleasePhases lists the phases in execution order.
func ReleasePhases() []ReleasePhase {
	return []ReleasePhase{
		PhasePreChecks, PhaseBranchCreation, PhaseVersionUpdate, PhaseReleaseCreate, PhasePostRelease,
	}
}

// ReleaseStatus is the overall status of a release task.
type ReleaseStatus string

const (
	ReleaseInProgress ReleaseStatus = "in-progress"
	ReleaseCompleted  ReleaseStatus = "completed"
	ReleaseFailed     ReleaseStatus = "failed"
)

// ReleaseRollbackPolicy names what is compensated when a release fails after
// its branches were created. Releases are user-facing and are deleted by
// default; release branches are left in place for inspection.
type ReleaseRollbackPolicy struct {
	DeleteReleases bool `yaml:"delete_releases"`
	DeleteBranches bool `yaml:"delete_branches"`
}

// DefaultReleaseBaseBranch is the branch release branches are cut from.
const DefaultReleaseBaseBranch = "develop"

// DefaultReleaseRollbackPolicy deletes created releases and keeps release branches.
func DefaultReleaseRollbackPolicy() ReleaseRollbackPolicy {
	return ReleaseRollbackPolicy{DeleteReleases: true, DeleteBranches: false}
}

// ReleaseConfig describes one multi-repository release.
type ReleaseConfig struct {
	Version      string
	Bump         string
	BaseBranch   string
	Manifest     string
	Repositories []string
	Notes        string
	Draft        bool
	Prerelease   bool
	Rollback     ReleaseRollbackPolicy
}

// RepositoryRelease is the per-repository sub-result of a release task.
type RepositoryRelease struct {
	Repository      string
	Branch          string
	BranchStatus    OutcomeStatus
	VersionStatus   OutcomeStatus
	VersionCommit   string
	PreviousVersion string
	ReleaseID       int64
	ReleaseURL      string
	ReleaseStatus   OutcomeStatus
}

// ReleaseTask tracks a release across its phases.
type ReleaseTask struct {
	mu sync.RWMutex

	ID           string
	Version      string
	Tag          string
	Phase        ReleasePhase
	Status       ReleaseStatus
	Repositories map[string]*RepositoryRelease
	Warnings     []string
	Reminders    []string
	Rollback     *RollbackSummary
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewReleaseTask starts an in-progress task.
func NewReleaseTask(id, version string, repositories []string) *ReleaseTask {
	task := &ReleaseTask{
		ID:           id,
		Version:      version,
		Tag:          "v" + version,
		Phase:        PhasePreChecks,
		Status:       ReleaseInProgress,
		Repositories: make(map[string]*RepositoryRelease, len(repositories)),
		StartedAt:    time.Now(),
	}
	for _, repo := range repositories {
		task.Repositories[repo] = &RepositoryRelease{Repository: repo}
	}
	return task
}

// Enter moves the task into a phase.
func (t *ReleaseTask) Enter(phase ReleasePhase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Phase = phase
}

// Warn appends an advisory finding.
func (t *ReleaseTask) Warn(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Warnings = append(t.Warnings, message)
}

// Remind appends a post-release reminder.
func (t *ReleaseTask) Remind(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Reminders = append(t.Reminders, message)
}

// Complete marks the task as completed.
func (t *ReleaseTask) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = ReleaseCompleted
	t.FinishedAt = time.Now()
}

// Fail marks the task as failed with the error that stopped it.
func (t *ReleaseTask) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = ReleaseFailed
	t.Err = err
	t.FinishedAt = time.Now()
}

// Snapshot returns a read-only summary of the task.
func (t *ReleaseTask) Snapshot() ReleaseTaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return ReleaseTaskSnapshot{
		ID:       t.ID,
		Version:  t.Version,
		Phase:    t.Phase,
		Status:   t.Status,
		Warnings: len(t.Warnings),
	}
}

// ReleaseTaskSnapshot is the status view of a release task.
type ReleaseTaskSnapshot struct {
	ID       string
	Version  string
	Phase    ReleasePhase
	Status   ReleaseStatus
	Warnings int
}
