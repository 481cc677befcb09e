package repository

import (
	"errors"
	"fmt"
	"shifttask-backend/internal/task/domain"
	"time"

	"gorm.io/gorm"
)

// gormTaskItemRepository implements TaskItemRepository using GORM
type gormTaskItemRepository struct {
	db *gorm.DB
}

// NewGormTaskItemRepository creates a new GORM-based TaskItemRepository
func NewGormTaskItemRepository(db *gorm.DB) TaskItemRepository {
	return &gormTaskItemRepository{db: db}
}

// activeLists restricts an item query to items whose list is active.
func (r *gormTaskItemRepository) activeLists(query *gorm.DB) *gorm.DB {
	lists := r.db.Model(&domain.TaskList{}).Select("id").Where("state = ?", domain.ListStateActive)
	return query.Where("task_list_id IN (?)", lists)
}

func (r *gormTaskItemRepository) FindByID(id string) (*domain.TaskItem, error) {
	var item domain.TaskItem
	err := r.db.Preload("Subtasks", bySequence).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task item %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &item, nil
}

// workerColumns are the item columns a worker action writes. Sent flags belong to the
// sweeps and are only written by markFlag and SaveReset.
var workerColumns = []string{
	"state", "completed_at",
	"proof_photo", "proof_numeric_value", "proof_text_note", "proof_signature",
	"staff_comment", "updated_at",
}

var sentColumns = []string{
	"reminder_sent", "pre_reminder_sent",
	"escalation_level_1_sent", "escalation_level_2_sent", "escalation_level_3_sent",
}

func (r *gormTaskItemRepository) Save(item *domain.TaskItem) (*domain.TaskList, error) {
	return r.save(item, workerColumns)
}

func (r *gormTaskItemRepository) SaveReset(item *domain.TaskItem) (*domain.TaskList, error) {
	columns := append(append([]string{}, workerColumns...), sentColumns...)
	return r.save(item, columns)
}

func (r *gormTaskItemRepository) save(item *domain.TaskItem, columns []string) (*domain.TaskList, error) {
	var list *domain.TaskList
	err := r.db.Transaction(func(tx *gorm.DB) error {
		item.UpdatedAt = time.Now().UTC()
		res := tx.Model(&domain.TaskItem{}).Where("id = ?", item.ID).Select(columns).Updates(item)
		if res.Error != nil {
			return fmt.Errorf("save task item %s: %w", item.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("task item %s: %w", item.ID, domain.ErrNotFound)
		}
		for _, s := range item.Subtasks {
			err := tx.Model(&domain.Subtask{}).
				Where("id = ? AND task_item_id = ?", s.ID, item.ID).
				Update("is_done", s.IsDone).Error
			if err != nil {
				return fmt.Errorf("save subtask %s: %w", s.ID, err)
			}
		}
		var err error
		list, err = refreshCompletion(tx, item.TaskListID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// page orders by (deadline, id) and resumes after the cursor, so a scan never
// revisits or skips rows while earlier rows change underneath it.
func page(query *gorm.DB, after *ItemCursor, limit int) *gorm.DB {
	if after != nil {
		query = query.Where("(deadline > ? OR (deadline = ? AND id > ?))", after.Deadline, after.Deadline, after.ID)
	}
	return query.Order("deadline ASC").Order("id ASC").Limit(limit)
}

func (r *gormTaskItemRepository) overdue(now time.Time) *gorm.DB {
	query := r.db.Preload("Subtasks", bySequence).
		Where("has_deadline = ? AND deadline IS NOT NULL AND deadline < ? AND state <> ?",
			true, now, domain.ItemStateDone)
	return r.activeLists(query)
}

func (r *gormTaskItemRepository) FindOverdueUnnotified(now time.Time, after *ItemCursor, limit int) ([]*domain.TaskItem, error) {
	var items []*domain.TaskItem
	query := r.overdue(now).Where("reminder_sent = ?", false)
	err := page(query, after, limit).Find(&items).Error
	return items, err
}

func (r *gormTaskItemRepository) FindEscalationCandidates(now time.Time, after *ItemCursor, limit int) ([]*domain.TaskItem, error) {
	var items []*domain.TaskItem
	query := r.overdue(now).
		Where("NOT (escalation_level_1_sent = ? AND escalation_level_2_sent = ? AND escalation_level_3_sent = ?)", true, true, true)
	err := page(query, after, limit).Find(&items).Error
	return items, err
}

func (r *gormTaskItemRepository) FindPreReminderCandidates(after *ItemCursor, limit int) ([]*domain.TaskItem, error) {
	var items []*domain.TaskItem
	query := r.db.
		Where("reminder_minutes_before > ? AND has_deadline = ? AND deadline IS NOT NULL AND state <> ? AND pre_reminder_sent = ?",
			0, true, domain.ItemStateDone, false)
	err := page(r.activeLists(query), after, limit).Find(&items).Error
	return items, err
}

func (r *gormTaskItemRepository) markFlag(id, column string) error {
	return r.db.Model(&domain.TaskItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       true,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *gormTaskItemRepository) MarkReminderSent(id string) error {
	return r.markFlag(id, "reminder_sent")
}

func (r *gormTaskItemRepository) MarkPreReminderSent(id string) error {
	return r.markFlag(id, "pre_reminder_sent")
}

func (r *gormTaskItemRepository) MarkEscalationSent(id string, level int) error {
	column, ok := domain.EscalationColumn(level)
	if !ok {
		return fmt.Errorf("escalation level %d: %w", level, domain.ErrInvalidInput)
	}
	return r.markFlag(id, column)
}
