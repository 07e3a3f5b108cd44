package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrSubmissionRejected = errors.New("batch submission rejected by provider")
	ErrBatchTimeout       = errors.New("polling budget exhausted before batch completed")
	ErrBatchFailed        = errors.New("batch reached a terminal non-ended status")
	ErrPartialResults     = errors.New("batch completed with missing per-item results")
	ErrDispatchFailed     = errors.New("downstream delivery failed")
	ErrRunInProgress      = errors.New("another run already holds the workflow lock")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// BranchError carries enough context across the orchestrator boundary to
// diagnose a failed branch remotely: which workflow, which batch handles,
// and how many items were in flight. It wraps one of the sentinel errors
// above.
type BranchError struct {
	Workflow string
	BatchIDs []string
	Items    int
	Err      error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %s failed (batches=%v items=%d): %v", e.Workflow, e.BatchIDs, e.Items, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }
