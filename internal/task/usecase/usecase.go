package usecase

import (
	"context"
	"time"

	directorydomain "shifttask-backend/internal/directory/domain"
	"shifttask-backend/internal/notification"
	shiftdomain "shifttask-backend/internal/shift/domain"
)

// Directory resolves employees and their reporting lines
type Directory interface {
	FindByID(id string) (*directorydomain.Employee, error)
	FindDepartmentManager(employeeID string) (*directorydomain.Employee, error)
	FindManager(employeeID string) (*directorydomain.Employee, error)
}

// ShiftSource is the read side of the shift mirror
type ShiftSource interface {
	FindByID(id string) (*shiftdomain.Shift, error)
	FindPublishedStartingBetween(from, to time.Time) ([]*shiftdomain.Shift, error)
	FindNextPublished(roleID, locationID string, from, to time.Time, excludeID string) (*shiftdomain.Shift, error)
}

// Auditor appends notes to a record's history
type Auditor interface {
	Note(resourceType, resourceID, body string) error
}

// Notifier dispatches a message over the given channels and reports per-channel failures
type Notifier interface {
	Dispatch(ctx context.Context, to notification.Recipient, msg notification.Message, channels ...notification.Channel) []error
}

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

const (
	auditTaskList = "task_list"
	auditTaskItem = "task_item"
)
