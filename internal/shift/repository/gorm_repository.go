package repository

import (
	"errors"
	"fmt"
	"shifttask-backend/internal/shift/domain"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormShiftRepository implements ShiftRepository using GORM
type gormShiftRepository struct {
	db *gorm.DB
}

// NewGormShiftRepository creates a new GORM-based ShiftRepository
func NewGormShiftRepository(db *gorm.DB) ShiftRepository {
	return &gormShiftRepository{db: db}
}

func (r *gormShiftRepository) Upsert(shift *domain.Shift) error {
	now := time.Now()
	if shift.CreatedAt.IsZero() {
		shift.CreatedAt = now
	}
	shift.UpdatedAt = now
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"employee_id", "role_id", "location_id", "starts_at", "ends_at", "state", "updated_at"}),
	}).Create(shift).Error
	if err != nil {
		return fmt.Errorf("upsert shift %s: %w", shift.ID, err)
	}
	return nil
}

func (r *gormShiftRepository) FindByID(id string) (*domain.Shift, error) {
	var shift domain.Shift
	err := r.db.Where("id = ?", id).First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}

func (r *gormShiftRepository) FindPublishedStartingBetween(from, to time.Time) ([]*domain.Shift, error) {
	var shifts []*domain.Shift
	err := r.db.Where("starts_at >= ? AND starts_at <= ? AND state = ? AND employee_id <> ?",
		from, to, domain.StatePublished, "").
		Order("starts_at ASC").Find(&shifts).Error
	return shifts, err
}

func (r *gormShiftRepository) FindNextPublished(roleID, locationID string, from, to time.Time, excludeID string) (*domain.Shift, error) {
	var shift domain.Shift
	err := r.db.Where("role_id = ? AND location_id = ? AND employee_id <> ? AND state = ? AND starts_at >= ? AND starts_at <= ? AND id <> ?",
		roleID, locationID, "", domain.StatePublished, from, to, excludeID).
		Order("starts_at ASC").First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}
