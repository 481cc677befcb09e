package repository

import (
	"fmt"
	"shifttask-backend/internal/task/domain"

	"gorm.io/gorm"
)

// gormEscalationRuleRepository implements EscalationRuleRepository using GORM
type gormEscalationRuleRepository struct {
	db *gorm.DB
}

// NewGormEscalationRuleRepository creates a new GORM-based EscalationRuleRepository
func NewGormEscalationRuleRepository(db *gorm.DB) EscalationRuleRepository {
	return &gormEscalationRuleRepository{db: db}
}

func (r *gormEscalationRuleRepository) Create(rule *domain.EscalationRule) error {
	return r.db.Create(rule).Error
}

func (r *gormEscalationRuleRepository) FindAll() ([]*domain.EscalationRule, error) {
	var rules []*domain.EscalationRule
	err := r.db.Order("delay_minutes ASC, level ASC").Find(&rules).Error
	return rules, err
}

func (r *gormEscalationRuleRepository) FindActive() ([]*domain.EscalationRule, error) {
	var rules []*domain.EscalationRule
	err := r.db.Where("active = ?", true).Order("delay_minutes ASC, level ASC").Find(&rules).Error
	return rules, err
}

func (r *gormEscalationRuleRepository) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&domain.EscalationRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("escalation rule %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
