package domain

import "time"

// Employee mirrors the identity/org record needed to route notifications.
// UserID links the employee to an application user; employees without one
// cannot receive in-app activities.
type Employee struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	UserID       string    `json:"user_id,omitempty" gorm:"index"`
	WorkEmail    string    `json:"work_email,omitempty"`
	WorkPhone    string    `json:"work_phone,omitempty"`
	DepartmentID string    `json:"department_id,omitempty" gorm:"index"`
	ManagerID    string    `json:"manager_id,omitempty"`
	LocationID   string    `json:"location_id,omitempty" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Department groups employees under a manager
type Department struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	ManagerID string    `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
