package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemState is the progress of a single task item
type ItemState string

const (
	ItemStateTodo       ItemState = "todo"
	ItemStateInProgress ItemState = "in_progress"
	ItemStateDone       ItemState = "done"
)

// HandoffPrefix marks items carried over from a previous shift.
const HandoffPrefix = "[HANDOFF] "

// MaxEscalationLevel is the highest level an item tracks a sent flag for.
const MaxEscalationLevel = 3

// TaskItem is one task inside a TaskList, with its proof and notification flags.
type TaskItem struct {
	ID                    string         `json:"id" gorm:"primaryKey"`
	TaskListID            string         `json:"task_list_id" gorm:"index;not null"`
	Name                  string         `json:"name" gorm:"not null"`
	Instructions          string         `json:"instructions,omitempty"`
	Sequence              int            `json:"sequence"`
	HasDeadline           bool           `json:"has_deadline"`
	Deadline              *time.Time     `json:"deadline,omitempty" gorm:"index"`
	CompletionType        CompletionType `json:"completion_type" gorm:"not null"`
	NumericLabel          string         `json:"numeric_label,omitempty"`
	NumericMin            float64        `json:"numeric_min"`
	NumericMax            float64        `json:"numeric_max"`
	RequireProofPhoto     bool           `json:"require_proof_photo"`
	InstructionAttachment string         `json:"instruction_attachment,omitempty"`
	InstructionFilename   string         `json:"instruction_filename,omitempty"`

	// Proof references point into the attachment store; bytes never pass through here.
	ProofPhoto        string  `json:"proof_photo,omitempty"`
	ProofNumericValue float64 `json:"proof_numeric_value"`
	ProofTextNote     string  `json:"proof_text_note,omitempty"`
	ProofSignature    string  `json:"proof_signature,omitempty"`
	StaffComment      string  `json:"staff_comment,omitempty"`

	Subtasks    []Subtask  `json:"subtasks" gorm:"foreignKey:TaskItemID;constraint:OnDelete:CASCADE"`
	State       ItemState  `json:"state" gorm:"index;not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ReminderMinutesBefore int  `json:"reminder_minutes_before"`
	ReminderSent          bool `json:"reminder_sent"`
	PreReminderSent       bool `json:"pre_reminder_sent"`
	EscalationLevel1Sent  bool `json:"escalation_level_1_sent" gorm:"column:escalation_level_1_sent"`
	EscalationLevel2Sent  bool `json:"escalation_level_2_sent" gorm:"column:escalation_level_2_sent"`
	EscalationLevel3Sent  bool `json:"escalation_level_3_sent" gorm:"column:escalation_level_3_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *TaskItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.State == "" {
		i.State = ItemStateTodo
	}
	return nil
}

// Subtask is a checklist leaf of a TaskItem
type Subtask struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	TaskItemID string    `json:"task_item_id" gorm:"index;not null"`
	Name       string    `json:"name" gorm:"not null"`
	Sequence   int       `json:"sequence"`
	IsDone     bool      `json:"is_done"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Subtask) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// EscalationColumn maps a level to its persisted flag column.
func EscalationColumn(level int) (string, bool) {
	switch level {
	case 1:
		return "escalation_level_1_sent", true
	case 2:
		return "escalation_level_2_sent", true
	case 3:
		return "escalation_level_3_sent", true
	}
	return "", false
}

// EscalationSent reports whether the given level already fired. ok is false for untracked levels.
func (i *TaskItem) EscalationSent(level int) (sent, ok bool) {
	switch level {
	case 1:
		return i.EscalationLevel1Sent, true
	case 2:
		return i.EscalationLevel2Sent, true
	case 3:
		return i.EscalationLevel3Sent, true
	}
	return false, false
}

// MarkEscalationSent sets the flag for level; untracked levels are ignored.
func (i *TaskItem) MarkEscalationSent(level int) {
	switch level {
	case 1:
		i.EscalationLevel1Sent = true
	case 2:
		i.EscalationLevel2Sent = true
	case 3:
		i.EscalationLevel3Sent = true
	}
}

// IsOverdue: has a deadline, not done, and the deadline has passed.
func (i *TaskItem) IsOverdue(now time.Time) bool {
	return i.HasDeadline && i.State != ItemStateDone && i.Deadline != nil && i.Deadline.Before(now)
}

// MinutesOverdue is zero when the item is not overdue.
func (i *TaskItem) MinutesOverdue(now time.Time) float64 {
	if !i.IsOverdue(now) {
		return 0
	}
	return now.Sub(*i.Deadline).Minutes()
}

// IsHandoff is derived from the name marker.
func (i *TaskItem) IsHandoff() bool {
	return strings.HasPrefix(i.Name, HandoffPrefix)
}

// CompletedOnTime is true for done items without a deadline or finished before it.
func (i *TaskItem) CompletedOnTime() bool {
	if i.CompletedAt == nil {
		return false
	}
	if !i.HasDeadline || i.Deadline == nil {
		return true
	}
	return !i.CompletedAt.After(*i.Deadline)
}

// PreReminderDue reports whether the pre-deadline reminder window has opened.
func (i *TaskItem) PreReminderDue(now time.Time) bool {
	if i.ReminderMinutesBefore <= 0 || !i.HasDeadline || i.Deadline == nil || i.State == ItemStateDone {
		return false
	}
	trigger := i.Deadline.Add(-time.Duration(i.ReminderMinutesBefore) * time.Minute)
	return !now.Before(trigger)
}

// TimeRemaining renders the remaining time for display.
func (i *TaskItem) TimeRemaining(now time.Time) string {
	switch {
	case i.State == ItemStateDone:
		return "Completed"
	case !i.HasDeadline || i.Deadline == nil:
		return "No deadline"
	case i.Deadline.Before(now):
		h, m := splitDuration(now.Sub(*i.Deadline))
		return fmt.Sprintf("Overdue by %dh %02dm", h, m)
	default:
		h, m := splitDuration(i.Deadline.Sub(now))
		return fmt.Sprintf("%dh %02dm left", h, m)
	}
}

func splitDuration(d time.Duration) (int, int) {
	total := int(d.Seconds())
	return total / 3600, (total % 3600) / 60
}

// SubtaskProgress returns the percentage of checked subtasks, 0 when there are none.
func (i *TaskItem) SubtaskProgress() float64 {
	if len(i.Subtasks) == 0 {
		return 0
	}
	done := 0
	for _, s := range i.Subtasks {
		if s.IsDone {
			done++
		}
	}
	return float64(done) / float64(len(i.Subtasks)) * 100
}

// ValidateCompletion is the proof gate run before an item may become done.
// numeric_min is always enforced; numeric_max only when set above zero.
func (i *TaskItem) ValidateCompletion() error {
	switch i.CompletionType {
	case CompletionPhoto:
		if i.ProofPhoto == "" {
			return &ProofRequiredError{ItemName: i.Name, Condition: ProofPhotoMissing}
		}
	case CompletionNumeric:
		if i.ProofNumericValue < i.NumericMin {
			return &ProofRequiredError{ItemName: i.Name, Condition: ProofBelowMinimum, Value: i.ProofNumericValue, Bound: i.NumericMin}
		}
		if i.NumericMax > 0 && i.ProofNumericValue > i.NumericMax {
			return &ProofRequiredError{ItemName: i.Name, Condition: ProofAboveMaximum, Value: i.ProofNumericValue, Bound: i.NumericMax}
		}
	case CompletionText:
		if strings.TrimSpace(i.ProofTextNote) == "" {
			return &ProofRequiredError{ItemName: i.Name, Condition: ProofTextMissing}
		}
	case CompletionSignature:
		if i.ProofSignature == "" {
			return &ProofRequiredError{ItemName: i.Name, Condition: ProofSignatureMissing}
		}
	}
	if i.RequireProofPhoto && i.ProofPhoto == "" {
		return &ProofRequiredError{ItemName: i.Name, Condition: ProofExtraPhotoMissing}
	}
	for _, s := range i.Subtasks {
		if !s.IsDone {
			return &ProofRequiredError{ItemName: i.Name, Condition: ProofChecklistIncomplete}
		}
	}
	return nil
}

// ResetProgress returns the item to todo and clears proof, reminder and escalation state.
func (i *TaskItem) ResetProgress() {
	i.State = ItemStateTodo
	i.CompletedAt = nil
	i.ProofPhoto = ""
	i.ProofNumericValue = 0
	i.ProofTextNote = ""
	i.ProofSignature = ""
	i.ReminderSent = false
	i.PreReminderSent = false
	i.EscalationLevel1Sent = false
	i.EscalationLevel2Sent = false
	i.EscalationLevel3Sent = false
	for k := range i.Subtasks {
		i.Subtasks[k].IsDone = false
	}
}
