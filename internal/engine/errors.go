package engine

import (
	"errors"
	"fmt"
)

// ReplayError is one discrepancy found when replaying a journaled run.
type ReplayError struct {
	// Code identifies the discrepancy category.
	Code ReplayErrorCode

	// Message is a human-readable description.
	Message string

	// RunID and Seq locate the offending event.
	RunID string
	Seq   int64

	// Details contains additional context.
	Details map[string]string
}

// ReplayErrorCode categorizes replay discrepancies.
type ReplayErrorCode string

const (
	// ErrCodeIDMismatch indicates the stored ID is not the content hash of
	// the stored event.
	ErrCodeIDMismatch ReplayErrorCode = "ID_MISMATCH"

	// ErrCodePlanMismatch indicates re-resolving the recorded limits does not
	// give the recorded plan.
	ErrCodePlanMismatch ReplayErrorCode = "PLAN_MISMATCH"

	// ErrCodeOvercommit indicates more repetitions were committed than
	// resolved.
	ErrCodeOvercommit ReplayErrorCode = "OVERCOMMIT"

	// ErrCodeOrder indicates seq numbers are not strictly increasing.
	ErrCodeOrder ReplayErrorCode = "ORDER_VIOLATION"

	// ErrCodeRunMismatch indicates an event from another run.
	ErrCodeRunMismatch ReplayErrorCode = "RUN_MISMATCH"
)

// Error implements the error interface.
func (e *ReplayError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s, seq=%d)", e.Code, e.Message, e.RunID, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsReplayError returns true if err is or wraps a *ReplayError.
func IsReplayError(err error) bool {
	var re *ReplayError
	return errors.As(err, &re)
}

// IsPlanMismatch returns true if err is a plan mismatch.
// Uses errors.As to handle wrapped errors.
func IsPlanMismatch(err error) bool {
	var re *ReplayError
	if errors.As(err, &re) {
		return re.Code == ErrCodePlanMismatch
	}
	return false
}

// NewPlanMismatch creates a ReplayError for a plan that does not re-resolve.
func NewPlanMismatch(runID string, seq, recorded, replayed int64) *ReplayError {
	return &ReplayError{
		Code:    ErrCodePlanMismatch,
		Message: fmt.Sprintf("recorded resolved %d, replayed %d", recorded, replayed),
		RunID:   runID,
		Seq:     seq,
		Details: map[string]string{
			"recorded": fmt.Sprintf("%d", recorded),
			"replayed": fmt.Sprintf("%d", replayed),
		},
	}
}
