package usecase

import (
	"fmt"
	"log"

	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
)

// ProofInput carries worker-supplied proof. Nil fields are left unchanged.
type ProofInput struct {
	PhotoRef     *string  `json:"proof_photo,omitempty"`
	NumericValue *float64 `json:"proof_numeric_value,omitempty"`
	TextNote     *string  `json:"proof_text_note,omitempty"`
	SignatureRef *string  `json:"proof_signature,omitempty"`
	StaffComment *string  `json:"staff_comment,omitempty"`
}

// ItemUsecase drives the per-item state machine. Actions on the same item are serialized.
type ItemUsecase struct {
	items repository.TaskItemRepository
	lists repository.TaskListRepository
	audit Auditor
	locks *keyedMutex
	now   Clock
}

// NewItemUsecase creates a new ItemUsecase
func NewItemUsecase(items repository.TaskItemRepository, lists repository.TaskListRepository, audit Auditor) *ItemUsecase {
	return &ItemUsecase{
		items: items,
		lists: lists,
		audit: audit,
		locks: newKeyedMutex(),
		now:   utcNow,
	}
}

func (u *ItemUsecase) SetClock(now Clock) {
	u.now = now
}

func (u *ItemUsecase) Get(itemID string) (*domain.TaskItem, error) {
	return u.items.FindByID(itemID)
}

// Start moves a todo item to in_progress. Items in any other state are returned unchanged.
func (u *ItemUsecase) Start(itemID string) (*domain.TaskItem, error) {
	unlock := u.locks.Lock(itemID)
	defer unlock()

	item, err := u.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	if item.State != domain.ItemStateTodo {
		return item, nil
	}
	item.State = domain.ItemStateInProgress
	if _, err := u.items.Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Complete runs the proof gate and marks the item done. When every item of the
// list is done the list follows.
func (u *ItemUsecase) Complete(itemID string) (*domain.TaskItem, error) {
	unlock := u.locks.Lock(itemID)
	defer unlock()

	item, err := u.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	if item.State == domain.ItemStateDone {
		return item, nil
	}
	if err := item.ValidateCompletion(); err != nil {
		return nil, err
	}

	now := u.now()
	item.State = domain.ItemStateDone
	item.CompletedAt = &now
	list, err := u.items.Save(item)
	if err != nil {
		return nil, err
	}

	if list.IsComplete() && list.State != domain.ListStateDone {
		if err := u.lists.UpdateState(list.ID, domain.ListStateDone); err != nil {
			return nil, err
		}
		u.note(auditTaskList, list.ID, "All tasks completed.")
	}
	return item, nil
}

// Reset returns the item to todo and clears proof, reminder and escalation state.
func (u *ItemUsecase) Reset(itemID string) (*domain.TaskItem, error) {
	unlock := u.locks.Lock(itemID)
	defer unlock()

	item, err := u.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	item.ResetProgress()
	if _, err := u.items.SaveReset(item); err != nil {
		return nil, err
	}
	u.note(auditTaskItem, item.ID, "Task reset to do.")
	return item, nil
}

// RecordProof stores proof references and values ahead of Complete.
func (u *ItemUsecase) RecordProof(itemID string, in ProofInput) (*domain.TaskItem, error) {
	unlock := u.locks.Lock(itemID)
	defer unlock()

	item, err := u.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	if in.PhotoRef != nil {
		item.ProofPhoto = *in.PhotoRef
	}
	if in.NumericValue != nil {
		item.ProofNumericValue = *in.NumericValue
	}
	if in.TextNote != nil {
		item.ProofTextNote = *in.TextNote
	}
	if in.SignatureRef != nil {
		item.ProofSignature = *in.SignatureRef
	}
	if in.StaffComment != nil {
		item.StaffComment = *in.StaffComment
	}
	if _, err := u.items.Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetSubtask checks or unchecks one checklist entry of the item.
func (u *ItemUsecase) SetSubtask(itemID, subtaskID string, done bool) (*domain.TaskItem, error) {
	unlock := u.locks.Lock(itemID)
	defer unlock()

	item, err := u.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	found := false
	for k := range item.Subtasks {
		if item.Subtasks[k].ID == subtaskID {
			item.Subtasks[k].IsDone = done
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("subtask %s of item %s: %w", subtaskID, itemID, domain.ErrNotFound)
	}
	if _, err := u.items.Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (u *ItemUsecase) note(resourceType, resourceID, body string) {
	if u.audit == nil {
		return
	}
	if err := u.audit.Note(resourceType, resourceID, body); err != nil {
		log.Printf("[TaskUsecase] Error writing audit note for %s %s: %v", resourceType, resourceID, err)
	}
}
