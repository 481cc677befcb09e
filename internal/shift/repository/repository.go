package repository

import (
	"shifttask-backend/internal/shift/domain"
	"time"
)

// ShiftRepository defines the interface for shift data access
type ShiftRepository interface {
	// Upsert creates or replaces a shift by ID
	Upsert(shift *domain.Shift) error

	// FindByID finds a shift by its ID
	FindByID(id string) (*domain.Shift, error)

	// FindPublishedStartingBetween returns published, assigned shifts starting in [from, to]
	FindPublishedStartingBetween(from, to time.Time) ([]*domain.Shift, error)

	// FindNextPublished returns the earliest published, assigned shift with the given role and
	// location starting in [from, to], other than excludeID. Returns nil when none matches.
	FindNextPublished(roleID, locationID string, from, to time.Time, excludeID string) (*domain.Shift, error)
}
