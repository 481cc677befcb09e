package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListState is the lifecycle state of a TaskList
type ListState string

const (
	ListStateDraft   ListState = "draft"
	ListStateActive  ListState = "active"
	ListStateDone    ListState = "done"
	ListStateExpired ListState = "expired"
)

// TaskList is the concrete checklist of one employee for one shift.
// There is at most one list per (template, shift) pair.
type TaskList struct {
	ID              string         `json:"id" gorm:"primaryKey"`
	Name            string         `json:"name"`
	TemplateID      string         `json:"template_id" gorm:"not null;uniqueIndex:idx_task_list_template_shift"`
	ShiftID         string         `json:"shift_id" gorm:"not null;uniqueIndex:idx_task_list_template_shift;index"`
	EmployeeID      string         `json:"employee_id" gorm:"index"`
	RoleID          string         `json:"role_id,omitempty"`
	LocationID      string         `json:"location_id,omitempty" gorm:"index"`
	ShiftStart      time.Time      `json:"shift_start" gorm:"index"`
	ShiftEnd        time.Time      `json:"shift_end" gorm:"index"`
	CheckoutPolicy  CheckoutPolicy `json:"checkout_policy"`
	Items           []TaskItem     `json:"items" gorm:"foreignKey:TaskListID;constraint:OnDelete:CASCADE"`
	TotalTasks      int            `json:"total_tasks"`
	CompletedTasks  int            `json:"completed_tasks"`
	CompletionScore float64        `json:"completion_score" gorm:"index"`
	State           ListState      `json:"state" gorm:"index;not null"`
	WarningSent     bool           `json:"warning_sent"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (l *TaskList) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.State == "" {
		l.State = ListStateDraft
	}
	return nil
}

// CompletionScore is 100*completed/total, and 0 for an empty list.
func CompletionScore(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// RefreshCompletion recomputes the counters from the loaded items.
func (l *TaskList) RefreshCompletion() {
	l.TotalTasks = len(l.Items)
	l.CompletedTasks = 0
	for i := range l.Items {
		if l.Items[i].State == ItemStateDone {
			l.CompletedTasks++
		}
	}
	l.CompletionScore = CompletionScore(l.CompletedTasks, l.TotalTasks)
}

// IsComplete is true when the list has items and all of them are done
func (l *TaskList) IsComplete() bool {
	return l.TotalTasks > 0 && l.CompletedTasks == l.TotalTasks
}

// IncompleteItems returns the loaded items that are not done, in list order.
func (l *TaskList) IncompleteItems() []TaskItem {
	var out []TaskItem
	for _, item := range l.Items {
		if item.State != ItemStateDone {
			out = append(out, item)
		}
	}
	return out
}

// IncompleteNames returns the names of the items that are not done.
func (l *TaskList) IncompleteNames() []string {
	var names []string
	for _, item := range l.IncompleteItems() {
		names = append(names, item.Name)
	}
	return names
}

// Overlaps reports whether the shift window intersects [from, to].
func (l *TaskList) Overlaps(from, to time.Time) bool {
	return !l.ShiftStart.After(to) && !l.ShiftEnd.Before(from)
}

// ListDisplayName builds "<template> - <employee> - <YYYY-MM-DD HH:MM>", skipping empty parts.
func ListDisplayName(templateName, employeeName string, shiftStart time.Time) string {
	name := ""
	for _, part := range []string{templateName, employeeName, formatShiftStart(shiftStart)} {
		if part == "" {
			continue
		}
		if name != "" {
			name += " - "
		}
		name += part
	}
	if name == "" {
		return "New Task List"
	}
	return name
}

func formatShiftStart(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
