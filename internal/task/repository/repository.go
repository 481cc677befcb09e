package repository

import (
	"shifttask-backend/internal/task/domain"
	"time"
)

// TemplateRepository defines the interface for template data access
type TemplateRepository interface {
	// Create persists a template with its task and subtask templates
	Create(template *domain.TaskListTemplate) error

	// FindByID loads a template with ordered task and subtask templates
	FindByID(id string) (*domain.TaskListTemplate, error)

	// FindAll lists templates, optionally only the active ones
	FindAll(activeOnly bool) ([]*domain.TaskListTemplate, error)

	// SetActive toggles the active flag
	SetActive(id string, active bool) error

	// Delete removes a template and cascades to its task and subtask templates
	Delete(id string) error
}

// TaskListRepository defines the interface for task list data access
type TaskListRepository interface {
	// Create persists a list with its items and subtasks and computes its counters
	Create(list *domain.TaskList) error

	// FindByID loads a list with ordered items and subtasks
	FindByID(id string) (*domain.TaskList, error)

	// FindByTemplateShift returns the list for the pair, or nil when none exists
	FindByTemplateShift(templateID, shiftID string) (*domain.TaskList, error)

	// FindByEmployee lists an employee's lists, newest shift first
	FindByEmployee(employeeID string, state *domain.ListState, limit, offset int) ([]*domain.TaskList, int64, error)

	// UpdateState sets the list state
	UpdateState(id string, state domain.ListState) error

	// FindExpiredUnwarned returns active lists whose shift ended before now,
	// with score below 100 and no warning sent yet
	FindExpiredUnwarned(now time.Time, limit int) ([]*domain.TaskList, error)

	// MarkWarnedAndExpired sets warning_sent and moves the list to expired
	MarkWarnedAndExpired(id string) error

	// FindHandoffCandidates returns active lists with score below 100 whose shift
	// ended in (endedAfter, endedBefore), with items and subtasks loaded
	FindHandoffCandidates(endedAfter, endedBefore time.Time, limit int) ([]*domain.TaskList, error)

	// TransferItems atomically creates the target list when it has no ID yet,
	// appends items to it and expires the origin list
	TransferItems(originID string, target *domain.TaskList, items []domain.TaskItem) error

	// FindOverlapping returns the employee's lists whose shift window intersects [from, to],
	// read as one snapshot
	FindOverlapping(employeeID string, from, to time.Time) ([]*domain.TaskList, error)

	// AverageScore averages completion over active, done and expired lists.
	// Empty employeeID or locationID disables that filter.
	AverageScore(employeeID, locationID string) (float64, int64, error)
}

// ItemCursor is the position of the last item of a page in a deadline-ordered scan
type ItemCursor struct {
	Deadline time.Time
	ID       string
}

// NextCursor returns the cursor after the last item of page, or nil for an empty page.
func NextCursor(page []*domain.TaskItem) *ItemCursor {
	if len(page) == 0 {
		return nil
	}
	last := page[len(page)-1]
	if last.Deadline == nil {
		return nil
	}
	return &ItemCursor{Deadline: *last.Deadline, ID: last.ID}
}

// TaskItemRepository defines the interface for task item data access
type TaskItemRepository interface {
	// FindByID loads an item with ordered subtasks
	FindByID(id string) (*domain.TaskItem, error)

	// Save persists the worker-owned item fields and subtask checks, recomputes the
	// parent list counters and returns the refreshed list (items not loaded).
	// Sent flags are never written by Save.
	Save(item *domain.TaskItem) (*domain.TaskList, error)

	// SaveReset is Save plus the sent flags, for an explicit reset
	SaveReset(item *domain.TaskItem) (*domain.TaskList, error)

	// The sweep queries below return one page ordered by (deadline, id), starting after
	// the cursor when one is given.

	// FindOverdueUnnotified returns overdue items of active lists with reminder_sent unset
	FindOverdueUnnotified(now time.Time, after *ItemCursor, limit int) ([]*domain.TaskItem, error)

	// FindEscalationCandidates returns overdue items of active lists with at least one
	// escalation level still unsent
	FindEscalationCandidates(now time.Time, after *ItemCursor, limit int) ([]*domain.TaskItem, error)

	// FindPreReminderCandidates returns open items of active lists with a reminder configured
	// and not yet sent. The trigger time is checked by the caller.
	FindPreReminderCandidates(after *ItemCursor, limit int) ([]*domain.TaskItem, error)

	MarkReminderSent(id string) error
	MarkPreReminderSent(id string) error
	MarkEscalationSent(id string, level int) error
}

// EscalationRuleRepository defines the interface for escalation rule data access
type EscalationRuleRepository interface {
	Create(rule *domain.EscalationRule) error
	FindAll() ([]*domain.EscalationRule, error)
	// FindActive returns active rules ordered by delay, then level
	FindActive() ([]*domain.EscalationRule, error)
	Delete(id string) error
}
