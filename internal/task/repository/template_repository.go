package repository

import (
	"errors"
	"fmt"
	"shifttask-backend/internal/task/domain"
	"time"

	"gorm.io/gorm"
)

// gormTemplateRepository implements TemplateRepository using GORM
type gormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GORM-based TemplateRepository
func NewGormTemplateRepository(db *gorm.DB) TemplateRepository {
	return &gormTemplateRepository{db: db}
}

func bySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC, created_at ASC")
}

func (r *gormTemplateRepository) Create(template *domain.TaskListTemplate) error {
	if err := r.db.Create(template).Error; err != nil {
		return fmt.Errorf("create template %q: %w", template.Name, err)
	}
	return nil
}

func (r *gormTemplateRepository) FindByID(id string) (*domain.TaskListTemplate, error) {
	var template domain.TaskListTemplate
	err := r.db.
		Preload("TaskTemplates", bySequence).
		Preload("TaskTemplates.SubtaskTemplates", bySequence).
		Where("id = ?", id).First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &template, nil
}

func (r *gormTemplateRepository) FindAll(activeOnly bool) ([]*domain.TaskListTemplate, error) {
	var templates []*domain.TaskListTemplate
	query := r.db.
		Preload("TaskTemplates", bySequence).
		Preload("TaskTemplates.SubtaskTemplates", bySequence)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("name ASC").Find(&templates).Error
	return templates, err
}

func (r *gormTemplateRepository) SetActive(id string, active bool) error {
	res := r.db.Model(&domain.TaskListTemplate{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     active,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *gormTemplateRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&domain.TaskTemplate{}).Select("id").Where("task_list_template_id = ?", id)
		if err := tx.Where("task_template_id IN (?)", taskIDs).Delete(&domain.SubtaskTemplate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_list_template_id = ?", id).Delete(&domain.TaskTemplate{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.TaskListTemplate{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}
