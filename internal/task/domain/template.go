package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckoutPolicy decides what happens at clock-out when a list is incomplete
type CheckoutPolicy string

const (
	CheckoutPolicyWarn  CheckoutPolicy = "warn"
	CheckoutPolicyBlock CheckoutPolicy = "block"
)

// CompletionType is the kind of proof a task needs before it can be marked done
type CompletionType string

const (
	CompletionCheckbox  CompletionType = "checkbox"
	CompletionPhoto     CompletionType = "photo"
	CompletionNumeric   CompletionType = "numeric"
	CompletionText      CompletionType = "text"
	CompletionSignature CompletionType = "signature"
)

// TaskListTemplate is a named checklist bound to planning roles and, optionally, a location.
// Empty RoleIDs or LocationID means the template applies everywhere.
type TaskListTemplate struct {
	ID             string                      `json:"id" gorm:"primaryKey"`
	Name           string                      `json:"name" gorm:"not null" validate:"required,max=200"`
	Description    string                      `json:"description,omitempty"`
	RoleIDs        datatypes.JSONSlice[string] `json:"role_ids"`
	LocationID     string                      `json:"location_id,omitempty" gorm:"index"`
	CheckoutPolicy CheckoutPolicy              `json:"checkout_policy" gorm:"not null" validate:"required,oneof=warn block"`
	Active         bool                        `json:"active"`
	TaskTemplates  []TaskTemplate              `json:"task_templates" gorm:"foreignKey:TaskListTemplateID;constraint:OnDelete:CASCADE" validate:"dive"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (t *TaskListTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// Matches reports whether the template applies to a shift with the given role and location.
func (t *TaskListTemplate) Matches(roleID, locationID string) bool {
	if len(t.RoleIDs) > 0 && !slices.Contains([]string(t.RoleIDs), roleID) {
		return false
	}
	return t.LocationID == "" || t.LocationID == locationID
}

// TaskTemplate holds the rules for one task of a TaskListTemplate
type TaskTemplate struct {
	ID                      string            `json:"id" gorm:"primaryKey"`
	TaskListTemplateID      string            `json:"task_list_template_id" gorm:"index;not null"`
	Name                    string            `json:"name" gorm:"not null" validate:"required,max=200"`
	Instructions            string            `json:"instructions,omitempty"`
	Sequence                int               `json:"sequence"`
	HasDeadline             bool              `json:"has_deadline"`
	RelativeDeadlineMinutes int               `json:"relative_deadline_minutes" validate:"gte=0"`
	ReminderMinutesBefore   int               `json:"reminder_minutes_before" validate:"gte=0"`
	CompletionType          CompletionType    `json:"completion_type" gorm:"not null" validate:"required,oneof=checkbox photo numeric text signature"`
	NumericLabel            string            `json:"numeric_label,omitempty"`
	NumericMin              float64           `json:"numeric_min"`
	NumericMax              float64           `json:"numeric_max" validate:"numeric_range"`
	RequireProofPhoto       bool              `json:"require_proof_photo"`
	InstructionAttachment   string            `json:"instruction_attachment,omitempty"`
	InstructionFilename     string            `json:"instruction_filename,omitempty"`
	SubtaskTemplates        []SubtaskTemplate `json:"subtask_templates" gorm:"foreignKey:TaskTemplateID;constraint:OnDelete:CASCADE" validate:"dive"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

func (t *TaskTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// SubtaskTemplate is a checklist leaf of a TaskTemplate
type SubtaskTemplate struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	TaskTemplateID string    `json:"task_template_id" gorm:"index;not null"`
	Name           string    `json:"name" gorm:"not null" validate:"required,max=200"`
	Sequence       int       `json:"sequence"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *SubtaskTemplate) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// SortedTaskTemplates returns the task templates ordered by sequence, keeping insertion order for ties.
func (t *TaskListTemplate) SortedTaskTemplates() []TaskTemplate {
	out := slices.Clone(t.TaskTemplates)
	slices.SortStableFunc(out, func(a, b TaskTemplate) int { return a.Sequence - b.Sequence })
	return out
}

// SortedSubtaskTemplates returns the checklist leaves ordered by sequence.
func (t *TaskTemplate) SortedSubtaskTemplates() []SubtaskTemplate {
	out := slices.Clone(t.SubtaskTemplates)
	slices.SortStableFunc(out, func(a, b SubtaskTemplate) int { return a.Sequence - b.Sequence })
	return out
}
