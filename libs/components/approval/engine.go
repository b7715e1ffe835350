// Package approval tracks a submission's progress through a form's ordered
// approval levels.
package approval

import (
	"fmt"
	"time"

	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusSubmitted       Status = "SUBMITTED"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
)

// Terminal reports whether no further decisions are accepted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Decision is an approver's verdict on one level.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Valid reports whether d is APPROVED or REJECTED.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

var (
	ErrTerminal        = fmt.Errorf("approval: submission is already finalized: %w", errs.ErrConflict)
	ErrNotSubmitted    = fmt.Errorf("approval: submission is not awaiting approval: %w", errs.ErrConflict)
	ErrAlreadyStarted  = fmt.Errorf("approval: submission was already submitted: %w", errs.ErrConflict)
	ErrLevelMismatch   = fmt.Errorf("approval: decision is not for the pending level: %w", errs.ErrConflict)
	ErrInvalidDecision = fmt.Errorf("approval: decision must be APPROVED or REJECTED: %w", errs.ErrInvalid)
)

// HistoryEntry records one decision.
type HistoryEntry struct {
	Level      int       `json:"level"`
	Status     Decision  `json:"status"`
	Comments   string    `json:"comments,omitempty"`
	ActionedBy string    `json:"actionedBy,omitempty"`
	ActionedAt time.Time `json:"actionedAt"`
}

// State is the approval progress of one submission. Transitions return a new
// State and leave the receiver untouched.
type State struct {
	Status       Status         `json:"status"`
	CurrentLevel int            `json:"currentLevel"`
	TotalLevels  int            `json:"totalLevels"`
	History      []HistoryEntry `json:"approvalHistory"`
}

// Draft is the state of a submission that has not been submitted.
func Draft() State {
	return State{Status: StatusDraft}
}

// Start is the state right after submission. An empty flow is approved
// immediately; otherwise level 1 is pending.
func Start(flow []schema.ApprovalLevel) State {
	if len(flow) == 0 {
		return State{Status: StatusApproved}
	}
	return State{Status: StatusPendingApproval, CurrentLevel: 1, TotalLevels: len(flow)}
}

// Submit moves a draft into the workflow.
func (s State) Submit(flow []schema.ApprovalLevel) (State, error) {
	if s.Status != StatusDraft && s.Status != "" {
		return s, ErrAlreadyStarted
	}
	return Start(flow), nil
}

// IsTerminal reports whether the state is APPROVED or REJECTED.
func (s State) IsTerminal() bool {
	return s.Status.Terminal()
}

// NextLevel returns the level awaiting a decision.
func (s State) NextLevel() (int, bool) {
	if s.Status != StatusPendingApproval {
		return 0, false
	}
	return s.CurrentLevel, true
}

// Decide records a decision at level. The actor is stored but not checked
// against the configured approver.
func (s State) Decide(level int, decision Decision, comments, actor string, at time.Time) (State, error) {
	switch {
	case s.IsTerminal():
		return s, ErrTerminal
	case s.Status != StatusPendingApproval:
		return s, ErrNotSubmitted
	case !decision.Valid():
		return s, ErrInvalidDecision
	case level != s.CurrentLevel:
		return s, ErrLevelMismatch
	}

	next := s
	next.History = make([]HistoryEntry, len(s.History), len(s.History)+1)
	copy(next.History, s.History)
	next.History = append(next.History, HistoryEntry{
		Level:      level,
		Status:     decision,
		Comments:   comments,
		ActionedBy: actor,
		ActionedAt: at.UTC(),
	})

	switch {
	case decision == DecisionRejected:
		next.Status = StatusRejected
	case s.CurrentLevel >= s.TotalLevels:
		next.Status = StatusApproved
	default:
		next.CurrentLevel++
	}
	return next, nil
}
