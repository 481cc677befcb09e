package repository

import (
	"errors"
	"fmt"
	"shifttask-backend/internal/task/domain"
	"time"

	"gorm.io/gorm"
)

// gormTaskListRepository implements TaskListRepository using GORM
type gormTaskListRepository struct {
	db *gorm.DB
}

// NewGormTaskListRepository creates a new GORM-based TaskListRepository
func NewGormTaskListRepository(db *gorm.DB) TaskListRepository {
	return &gormTaskListRepository{db: db}
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC, created_at ASC")
		}).
		Preload("Items.Subtasks", bySequence)
}

// refreshCompletion recounts the list's items and stores the counters and score.
func refreshCompletion(tx *gorm.DB, listID string) (*domain.TaskList, error) {
	var total, done int64
	if err := tx.Model(&domain.TaskItem{}).Where("task_list_id = ?", listID).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&domain.TaskItem{}).Where("task_list_id = ? AND state = ?", listID, domain.ItemStateDone).Count(&done).Error; err != nil {
		return nil, err
	}
	err := tx.Model(&domain.TaskList{}).Where("id = ?", listID).Updates(map[string]interface{}{
		"total_tasks":      total,
		"completed_tasks":  done,
		"completion_score": domain.CompletionScore(int(done), int(total)),
		"updated_at":       time.Now().UTC(),
	}).Error
	if err != nil {
		return nil, err
	}
	var list domain.TaskList
	if err := tx.Where("id = ?", listID).First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *gormTaskListRepository) Create(list *domain.TaskList) error {
	list.RefreshCompletion()
	if err := r.db.Create(list).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &domain.AlreadyGeneratedError{TemplateID: list.TemplateID, ShiftID: list.ShiftID}
		}
		return fmt.Errorf("create task list: %w", err)
	}
	return nil
}

func (r *gormTaskListRepository) FindByID(id string) (*domain.TaskList, error) {
	var list domain.TaskList
	err := withItems(r.db).Where("id = ?", id).First(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task list %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &list, nil
}

func (r *gormTaskListRepository) FindByTemplateShift(templateID, shiftID string) (*domain.TaskList, error) {
	var list domain.TaskList
	err := r.db.Where("template_id = ? AND shift_id = ?", templateID, shiftID).First(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &list, nil
}

func (r *gormTaskListRepository) FindByEmployee(employeeID string, state *domain.ListState, limit, offset int) ([]*domain.TaskList, int64, error) {
	var lists []*domain.TaskList
	var total int64

	query := r.db.Model(&domain.TaskList{}).Where("employee_id = ?", employeeID)
	if state != nil {
		query = query.Where("state = ?", *state)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := withItems(query).
		Order("shift_start DESC").
		Limit(limit).
		Offset(offset).
		Find(&lists).Error
	return lists, total, err
}

func (r *gormTaskListRepository) UpdateState(id string, state domain.ListState) error {
	res := r.db.Model(&domain.TaskList{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task list %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *gormTaskListRepository) FindExpiredUnwarned(now time.Time, limit int) ([]*domain.TaskList, error) {
	var lists []*domain.TaskList
	err := withItems(r.db).
		Where("state = ? AND shift_end < ? AND completion_score < ? AND warning_sent = ?",
			domain.ListStateActive, now, 100, false).
		Order("shift_end ASC").
		Limit(limit).
		Find(&lists).Error
	return lists, err
}

func (r *gormTaskListRepository) MarkWarnedAndExpired(id string) error {
	return r.db.Model(&domain.TaskList{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"warning_sent": true,
			"state":        domain.ListStateExpired,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *gormTaskListRepository) FindHandoffCandidates(endedAfter, endedBefore time.Time, limit int) ([]*domain.TaskList, error) {
	var lists []*domain.TaskList
	err := withItems(r.db).
		Where("state = ? AND completion_score < ? AND shift_end > ? AND shift_end < ?",
			domain.ListStateActive, 100, endedAfter, endedBefore).
		Order("shift_end ASC").
		Limit(limit).
		Find(&lists).Error
	return lists, err
}

func (r *gormTaskListRepository) TransferItems(originID string, target *domain.TaskList, items []domain.TaskItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if target.ID == "" {
			if err := tx.Omit("Items").Create(target).Error; err != nil {
				return fmt.Errorf("create handoff target: %w", err)
			}
		}
		for k := range items {
			items[k].TaskListID = target.ID
			if err := tx.Create(&items[k]).Error; err != nil {
				return fmt.Errorf("copy item %q: %w", items[k].Name, err)
			}
		}
		refreshed, err := refreshCompletion(tx, target.ID)
		if err != nil {
			return err
		}
		target.TotalTasks = refreshed.TotalTasks
		target.CompletedTasks = refreshed.CompletedTasks
		target.CompletionScore = refreshed.CompletionScore
		target.State = refreshed.State

		return tx.Model(&domain.TaskList{}).Where("id = ?", originID).
			Updates(map[string]interface{}{
				"state":      domain.ListStateExpired,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (r *gormTaskListRepository) FindOverlapping(employeeID string, from, to time.Time) ([]*domain.TaskList, error) {
	var lists []*domain.TaskList
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return withItems(tx).
			Where("employee_id = ? AND shift_start <= ? AND shift_end >= ?", employeeID, to, from).
			Order("shift_start ASC").
			Find(&lists).Error
	})
	return lists, err
}

func (r *gormTaskListRepository) AverageScore(employeeID, locationID string) (float64, int64, error) {
	var row struct {
		Average float64
		Count   int64
	}
	query := r.db.Model(&domain.TaskList{}).
		Select("COALESCE(AVG(completion_score), 0) AS average, COUNT(*) AS count").
		Where("state IN ?", []domain.ListState{domain.ListStateActive, domain.ListStateDone, domain.ListStateExpired})
	if employeeID != "" {
		query = query.Where("employee_id = ?", employeeID)
	}
	if locationID != "" {
		query = query.Where("location_id = ?", locationID)
	}
	if err := query.Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Average, row.Count, nil
}
