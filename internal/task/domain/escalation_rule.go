package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipientType selects who an escalation level notifies
type RecipientType string

const (
	RecipientAssignee          RecipientType = "assignee"
	RecipientDepartmentManager RecipientType = "department_manager"
	RecipientAssigneeManager   RecipientType = "assignee_manager"
	RecipientSpecificEmployee  RecipientType = "specific_employee"
)

var recipientLabels = map[RecipientType]string{
	RecipientAssignee:          "Assigned Employee",
	RecipientDepartmentManager: "Department Manager",
	RecipientAssigneeManager:   "Employee's Manager",
	RecipientSpecificEmployee:  "Specific Employee",
}

// EscalationRule is one level of the escalation chain.
type EscalationRule struct {
	ID                 string        `json:"id" gorm:"primaryKey"`
	Level              int           `json:"level" gorm:"not null" validate:"gte=1,lte=3"`
	DelayMinutes       int           `json:"delay_minutes" validate:"gte=0"`
	RecipientType      RecipientType `json:"recipient_type" gorm:"not null" validate:"required,oneof=assignee department_manager assignee_manager specific_employee"`
	SpecificEmployeeID string        `json:"specific_employee_id,omitempty" validate:"required_if=RecipientType specific_employee"`
	LocationID         string        `json:"location_id,omitempty"`
	SendEmail          bool          `json:"send_email"`
	SendSMS            bool          `json:"send_sms"`
	Active             bool          `json:"active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (r *EscalationRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// DisplayName renders "Level N - <recipient> (+D min)".
func (r *EscalationRule) DisplayName() string {
	return fmt.Sprintf("Level %d - %s (+%d min)", r.Level, recipientLabels[r.RecipientType], r.DelayMinutes)
}

// AppliesTo reports whether the rule covers an item at the given location.
func (r *EscalationRule) AppliesTo(locationID string) bool {
	return r.LocationID == "" || r.LocationID == locationID
}

// SortRules orders rules by delay, then level.
func SortRules(rules []*EscalationRule) {
	slices.SortStableFunc(rules, func(a, b *EscalationRule) int {
		if a.DelayMinutes != b.DelayMinutes {
			return a.DelayMinutes - b.DelayMinutes
		}
		return a.Level - b.Level
	})
}
