package usecase

import (
	"fmt"
	"log"
	"strings"
	"time"

	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
)

// DefaultCheckoutBuffer widens the attendance window for early or late clock events.
const DefaultCheckoutBuffer = 30 * time.Minute

// CheckoutResult is the outcome of the clock-out gate
type CheckoutResult struct {
	Allowed         bool               `json:"allowed"`
	CompletionScore float64            `json:"completion_score"`
	Summary         string             `json:"summary"`
	TaskLists       []*domain.TaskList `json:"task_lists"`
	Blocked         []string           `json:"blocked_task_lists,omitempty"`
	Warnings        []CheckoutWarning  `json:"warnings,omitempty"`
}

// CheckoutWarning describes an incomplete warn-policy list
type CheckoutWarning struct {
	TaskListID      string   `json:"task_list_id"`
	CompletionScore float64  `json:"completion_score"`
	IncompleteTasks []string `json:"incomplete_tasks"`
}

// CheckoutGate correlates an attendance window with the employee's task lists.
type CheckoutGate struct {
	lists  repository.TaskListRepository
	audit  Auditor
	buffer time.Duration
}

// NewCheckoutGate creates a new CheckoutGate
func NewCheckoutGate(lists repository.TaskListRepository, audit Auditor, buffer time.Duration) *CheckoutGate {
	if buffer <= 0 {
		buffer = DefaultCheckoutBuffer
	}
	return &CheckoutGate{lists: lists, audit: audit, buffer: buffer}
}

// Evaluate aggregates the lists overlapping [clockIn-buffer, clockOut+buffer] without vetoing.
func (g *CheckoutGate) Evaluate(employeeID string, clockIn, clockOut time.Time) (*CheckoutResult, error) {
	lists, err := g.lists.FindOverlapping(employeeID, clockIn.UTC().Add(-g.buffer), clockOut.UTC().Add(g.buffer))
	if err != nil {
		return nil, err
	}

	res := &CheckoutResult{Allowed: true, TaskLists: lists}
	var blockedNames []string
	total := 0.0
	for _, list := range lists {
		total += list.CompletionScore
		if list.State != domain.ListStateActive || list.CompletionScore >= 100 {
			continue
		}
		switch list.CheckoutPolicy {
		case domain.CheckoutPolicyBlock:
			res.Allowed = false
			res.Blocked = append(res.Blocked, list.ID)
			blockedNames = append(blockedNames, list.IncompleteNames()...)
		case domain.CheckoutPolicyWarn:
			res.Warnings = append(res.Warnings, CheckoutWarning{
				TaskListID:      list.ID,
				CompletionScore: list.CompletionScore,
				IncompleteTasks: list.IncompleteNames(),
			})
		}
	}

	if len(lists) > 0 {
		res.CompletionScore = total / float64(len(lists))
		res.Summary = fmt.Sprintf("%.0f%% tasks completed", res.CompletionScore)
	} else {
		res.Summary = "No tasks assigned"
	}

	if !res.Allowed {
		return res, &domain.CheckoutBlockedError{TaskNames: blockedNames}
	}
	return res, nil
}

// ClockOut runs the gate for a clock-out. A block-policy list below 100% vetoes it with
// a CheckoutBlockedError; warn-policy lists are logged and noted and the clock-out proceeds.
func (g *CheckoutGate) ClockOut(employeeID string, clockIn, clockOut time.Time) (*CheckoutResult, error) {
	res, err := g.Evaluate(employeeID, clockIn, clockOut)
	if err != nil {
		if res != nil {
			log.Printf("[Checkout] Blocked clock-out of employee %s: %d lists incomplete", employeeID, len(res.Blocked))
		}
		return res, err
	}

	for _, w := range res.Warnings {
		names := w.IncompleteTasks
		if len(names) > 5 {
			names = names[:5]
		}
		log.Printf("[Checkout] Employee %s clocked out with %d incomplete tasks (warn policy): %s",
			employeeID, len(w.IncompleteTasks), strings.Join(names, ", "))
		if g.audit != nil {
			body := fmt.Sprintf("Clocked out at %s with %d incomplete tasks.", clockOut.UTC().Format("2006-01-02 15:04"), len(w.IncompleteTasks))
			if err := g.audit.Note(auditTaskList, w.TaskListID, body); err != nil {
				log.Printf("[Checkout] Error writing audit note for list %s: %v", w.TaskListID, err)
			}
		}
	}
	return res, nil
}
