package approval

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matapang/platform/libs/components/schema"
)

// Level progress labels shown in the approval chain.
const (
	LevelWaiting  = "WAITING"
	LevelPending  = "PENDING"
	LevelApproved = "APPROVED"
	LevelRejected = "REJECTED"
	LevelSkipped  = "SKIPPED"
)

const maxParallelLookups = 8

// LevelView is one displayed approval level.
type LevelView struct {
	Level      int        `json:"level"`
	ApproverID string     `json:"approverId"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Position   string     `json:"position,omitempty"`
	Resolved   bool       `json:"resolved"`
	Progress   string     `json:"progress"`
	Comments   string     `json:"comments,omitempty"`
	ActionedAt *time.Time `json:"actionedAt,omitempty"`
}

// Chain lists the levels of flow in order with their approvers and progress.
// Approvers are looked up concurrently; a failed or missing lookup shows the
// placeholder "Approver N" instead of failing the chain. state may be nil
// for forms that have no submission yet.
func Chain(ctx context.Context, flow []schema.ApprovalLevel, state *State, dir Directory) []LevelView {
	views := make([]LevelView, len(flow))
	for i, level := range flow {
		n := level.Level
		if n <= 0 {
			n = i + 1
		}
		views[i] = LevelView{
			Level:      n,
			ApproverID: level.ApproverID,
			Name:       "Approver " + strconv.Itoa(n),
			Progress:   progress(n, state),
		}
		if state != nil {
			for _, h := range state.History {
				if h.Level == n {
					at := h.ActionedAt
					views[i].Comments = h.Comments
					views[i].ActionedAt = &at
				}
			}
		}
	}

	if dir == nil {
		return views
	}

	var g errgroup.Group
	g.SetLimit(maxParallelLookups)
	for i := range views {
		id := strings.TrimSpace(views[i].ApproverID)
		if id == "" {
			continue
		}
		i := i
		g.Go(func() error {
			a, err := dir.Lookup(ctx, id)
			if err != nil {
				return nil
			}
			if a.Name != "" {
				views[i].Name = a.Name
			}
			views[i].Email = a.Email
			views[i].Position = a.Position
			views[i].Resolved = true
			return nil
		})
	}
	_ = g.Wait()
	return views
}

func progress(level int, state *State) string {
	if state == nil {
		return LevelWaiting
	}
	for _, h := range state.History {
		if h.Level == level {
			return string(h.Status)
		}
	}
	switch state.Status {
	case StatusPendingApproval:
		if level == state.CurrentLevel {
			return LevelPending
		}
	case StatusRejected:
		return LevelSkipped
	}
	return LevelWaiting
}
