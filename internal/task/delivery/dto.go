package delivery

import (
	"time"

	"shifttask-backend/internal/task/domain"
)

// ItemResponse is a task item with its derived read fields
type ItemResponse struct {
	*domain.TaskItem
	IsOverdue       bool    `json:"is_overdue"`
	TimeRemaining   string  `json:"time_remaining"`
	IsHandoff       bool    `json:"is_handoff"`
	SubtaskProgress float64 `json:"subtask_progress"`
	CompletedOnTime bool    `json:"completed_on_time"`
}

func newItemResponse(item *domain.TaskItem, now time.Time) ItemResponse {
	return ItemResponse{
		TaskItem:        item,
		IsOverdue:       item.IsOverdue(now),
		TimeRemaining:   item.TimeRemaining(now),
		IsHandoff:       item.IsHandoff(),
		SubtaskProgress: item.SubtaskProgress(),
		CompletedOnTime: item.CompletedOnTime(),
	}
}

// ListResponse replaces the raw items of a list with ItemResponses
type ListResponse struct {
	*domain.TaskList
	Items []ItemResponse `json:"items"`
}

func newListResponse(list *domain.TaskList, now time.Time) ListResponse {
	items := make([]ItemResponse, 0, len(list.Items))
	for k := range list.Items {
		items = append(items, newItemResponse(&list.Items[k], now))
	}
	return ListResponse{TaskList: list, Items: items}
}

func newListResponses(lists []*domain.TaskList, now time.Time) []ListResponse {
	out := make([]ListResponse, 0, len(lists))
	for _, list := range lists {
		out = append(out, newListResponse(list, now))
	}
	return out
}

// GenerateRequest represents the request body for generating a list
type GenerateRequest struct {
	ShiftID string `json:"shift_id" binding:"required"`
}

// SetActiveRequest toggles a template
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SubtaskRequest checks or unchecks a subtask
type SubtaskRequest struct {
	Done *bool `json:"is_done" binding:"required"`
}

// CreateRuleRequest represents the request body for creating an escalation rule
type CreateRuleRequest struct {
	Level              int    `json:"level"`
	DelayMinutes       int    `json:"delay_minutes"`
	RecipientType      string `json:"recipient_type"`
	SpecificEmployeeID string `json:"specific_employee_id"`
	LocationID         string `json:"location_id"`
	SendEmail          bool   `json:"send_email"`
	SendSMS            bool   `json:"send_sms"`
	Active             *bool  `json:"active"`
}

func (r CreateRuleRequest) toRule() *domain.EscalationRule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &domain.EscalationRule{
		Level:              r.Level,
		DelayMinutes:       r.DelayMinutes,
		RecipientType:      domain.RecipientType(r.RecipientType),
		SpecificEmployeeID: r.SpecificEmployeeID,
		LocationID:         r.LocationID,
		SendEmail:          r.SendEmail,
		SendSMS:            r.SendSMS,
		Active:             active,
	}
}

// RuleResponse adds the display name to a rule
type RuleResponse struct {
	*domain.EscalationRule
	DisplayName string `json:"display_name"`
}

// CheckoutRequest represents a clock-out submitted by the attendance flow
type CheckoutRequest struct {
	EmployeeID string    `json:"employee_id"`
	ClockIn    time.Time `json:"clock_in" binding:"required"`
	ClockOut   time.Time `json:"clock_out" binding:"required"`
}

// PushTokenRequest registers a device for push notifications
type PushTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}
