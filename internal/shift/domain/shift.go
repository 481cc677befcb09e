package domain

import "time"

// State is the planning state of a shift
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
)

// Shift mirrors a planning slot owned by the shift-planning system.
type Shift struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	EmployeeID string    `json:"employee_id" gorm:"index"`
	RoleID     string    `json:"role_id" gorm:"index"`
	LocationID string    `json:"location_id" gorm:"index"`
	Start      time.Time `json:"start" gorm:"column:starts_at;index;not null"`
	End        time.Time `json:"end" gorm:"column:ends_at;not null"`
	State      State     `json:"state" gorm:"index;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsPublished reports whether the shift has been published.
func (s *Shift) IsPublished() bool {
	return s.State == StatePublished
}

// Assigned reports whether an employee works the shift.
func (s *Shift) Assigned() bool {
	return s.EmployeeID != ""
}

// Event is the payload emitted by the shift-planning system when a shift changes.
type Event struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	RoleID     string    `json:"role_id"`
	LocationID string    `json:"location_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	State      State     `json:"state"`
}

// ToShift converts the event payload into the mirrored record.
func (e Event) ToShift() *Shift {
	return &Shift{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		RoleID:     e.RoleID,
		LocationID: e.LocationID,
		Start:      e.Start,
		End:        e.End,
		State:      e.State,
	}
}
