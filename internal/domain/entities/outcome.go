package entities

import "time"

// OutcomeStatus is the per-repository result of one requested operation.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// OperationOutcome is the result of one operation in one repository.
type OperationOutcome struct {
	Repository string
	Operation  string
	Status     OutcomeStatus
	Reason     string
	Err        error
	Ref        string
	Number     int
	URL        string
}

// CoordinatedOperationReport aggregates one outcome per requested repository.
// Every requested repository appears in exactly one bucket.
type CoordinatedOperationReport struct {
	ID         string
	Operation  string
	Requested  []string
	Order      []string
	Created    []OperationOutcome
	Skipped    []OperationOutcome
	Failed     []OperationOutcome
	Rollback   *RollbackSummary
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewCoordinatedOperationReport starts an empty report for the requested repositories.
func NewCoordinatedOperationReport(id, operation string, requested []string) *CoordinatedOperationReport {
	return &CoordinatedOperationReport{
		ID:        id,
		Operation: operation,
		Requested: requested,
		StartedAt: time.Now(),
	}
}

// Record files the outcome into its bucket.
func (r *CoordinatedOperationReport) Record(outcome OperationOutcome) {
	switch outcome.Status {
	case OutcomeCreated:
		r.Created = append(r.Created, outcome)
	case OutcomeSkipped:
		r.Skipped = append(r.Skipped, outcome)
	default:
		outcome.Status = OutcomeFailed
		r.Failed = append(r.Failed, outcome)
	}
}

// Total returns the number of recorded outcomes.
func (r *CoordinatedOperationReport) Total() int {
	return len(r.Created) + len(r.Skipped) + len(r.Failed)
}

// Succeeded reports whether no repository failed.
func (r *CoordinatedOperationReport) Succeeded() bool {
	return len(r.Failed) == 0
}

// Outcome returns the outcome recorded for a repository, if any.
func (r *CoordinatedOperationReport) Outcome(repository string) (OperationOutcome, bool) {
	for _, bucket := range [][]OperationOutcome{r.Created, r.Skipped, r.Failed} {
		for _, o := range bucket {
			if o.Repository == repository {
				return o, true
			}
		}
	}
	return OperationOutcome{}, false
}

// RollbackStatus is the result of one compensating action.
type RollbackStatus string

const (
	RollbackDeleted RollbackStatus = "deleted"
	RollbackFailed  RollbackStatus = "failed"
	RollbackSkipped RollbackStatus = "skipped"
)

// RollbackItem records one compensating action.
type RollbackItem struct {
	Repository string
	Action     string
	Status     RollbackStatus
	Err        error
}

// RollbackSummary lists every compensating action in the order it was attempted.
type RollbackSummary struct {
	Items []RollbackItem
}

// Add appends an item to the summary.
func (s *RollbackSummary) Add(item RollbackItem) {
	s.Items = append(s.Items, item)
}

// Repositories returns the repositories a rollback was attempted for, in order.
func (s *RollbackSummary) Repositories() []string {
	out := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, item.Repository)
	}
	return out
}

// Failures returns the items whose compensating action failed.
func (s *RollbackSummary) Failures() []RollbackItem {
	var out []RollbackItem
	for _, item := range s.Items {
		if item.Status == RollbackFailed {
			out = append(out, item)
		}
	}
	return out
}
