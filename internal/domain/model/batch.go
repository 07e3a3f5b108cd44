package model

import "time"

type Workflow string

const (
	WorkflowEmail   Workflow = "email"
	WorkflowPodcast Workflow = "podcast"
)

func (w Workflow) Valid() bool {
	return w == WorkflowEmail || w == WorkflowPodcast
}

type BatchStatus string

const (
	BatchStatusSubmitted  BatchStatus = "submitted"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusEnded      BatchStatus = "ended"
	BatchStatusErrored    BatchStatus = "errored"
	BatchStatusExpired    BatchStatus = "expired"
	BatchStatusCanceled   BatchStatus = "canceled"
)

// Terminal reports whether no further status transition can occur.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchStatusEnded, BatchStatusErrored, BatchStatusExpired, BatchStatusCanceled:
		return true
	}
	return false
}

// BatchJob is one submitted asynchronous unit of work, identified by the
// opaque handle the provider issued. It is created once by the submitter
// and mutated only by status transitions observed via polling.
type BatchJob struct {
	BatchID     string
	Workflow    Workflow
	Status      BatchStatus
	SubmittedAt time.Time
	ItemIDs     []string
}

// BatchRun is one branch invocation's worth of jobs: one job per item
// group. A run with zero jobs is the empty-input short-circuit and counts
// as already complete.
type BatchRun struct {
	RunID       string
	Workflow    Workflow
	SubmittedAt time.Time
	Jobs        []BatchJob
	Items       []Article
}

// Empty reports the zero-items short-circuit.
func (r *BatchRun) Empty() bool { return len(r.Jobs) == 0 }

// AllTerminal reports whether every job has reached a terminal status.
func (r *BatchRun) AllTerminal() bool {
	for i := range r.Jobs {
		if !r.Jobs[i].Status.Terminal() {
			return false
		}
	}
	return true
}

// Ended reports whether every job finished in the ended state. Retrieval
// preconditions on this.
func (r *BatchRun) Ended() bool {
	for i := range r.Jobs {
		if r.Jobs[i].Status != BatchStatusEnded {
			return false
		}
	}
	return true
}

// WorstStatus returns the most severe terminal status across jobs, for
// error reporting when Ended is false.
func (r *BatchRun) WorstStatus() BatchStatus {
	worst := BatchStatusEnded
	rank := map[BatchStatus]int{
		BatchStatusEnded:    0,
		BatchStatusCanceled: 1,
		BatchStatusExpired:  2,
		BatchStatusErrored:  3,
	}
	for i := range r.Jobs {
		if rank[r.Jobs[i].Status] > rank[worst] {
			worst = r.Jobs[i].Status
		}
	}
	return worst
}

// BatchIDs lists the provider handles of all jobs in this run.
func (r *BatchRun) BatchIDs() []string {
	ids := make([]string, 0, len(r.Jobs))
	for i := range r.Jobs {
		ids = append(ids, r.Jobs[i].BatchID)
	}
	return ids
}
