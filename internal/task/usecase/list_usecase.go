package usecase

import (
	"fmt"
	"log"

	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
)

// ListUsecase exposes task lists and the administrative list actions
type ListUsecase struct {
	lists     repository.TaskListRepository
	directory Directory
	audit     Auditor
}

// NewListUsecase creates a new ListUsecase
func NewListUsecase(lists repository.TaskListRepository, directory Directory, audit Auditor) *ListUsecase {
	return &ListUsecase{lists: lists, directory: directory, audit: audit}
}

func (u *ListUsecase) Get(listID string) (*domain.TaskList, error) {
	return u.lists.FindByID(listID)
}

// ListForEmployee returns the employee's lists, newest shift first, optionally filtered by state.
func (u *ListUsecase) ListForEmployee(employeeID, state string, limit, offset int) ([]*domain.TaskList, int64, error) {
	var filter *domain.ListState
	if state != "" {
		s := domain.ListState(state)
		switch s {
		case domain.ListStateDraft, domain.ListStateActive, domain.ListStateDone, domain.ListStateExpired:
		default:
			return nil, 0, fmt.Errorf("list state %q: %w", state, domain.ErrInvalidInput)
		}
		filter = &s
	}
	if limit <= 0 {
		limit = 50
	}
	return u.lists.FindByEmployee(employeeID, filter, limit, offset)
}

// MarkDone forces the list to done regardless of its items.
func (u *ListUsecase) MarkDone(listID, actor string) (*domain.TaskList, error) {
	return u.setState(listID, domain.ListStateDone, fmt.Sprintf("Marked done by %s.", actor))
}

// ResetToDraft moves the list back to draft.
func (u *ListUsecase) ResetToDraft(listID, actor string) (*domain.TaskList, error) {
	return u.setState(listID, domain.ListStateDraft, fmt.Sprintf("Reset to draft by %s.", actor))
}

func (u *ListUsecase) setState(listID string, state domain.ListState, note string) (*domain.TaskList, error) {
	if err := u.lists.UpdateState(listID, state); err != nil {
		return nil, err
	}
	if u.audit != nil {
		if err := u.audit.Note(auditTaskList, listID, note); err != nil {
			log.Printf("[TaskUsecase] Error writing audit note for list %s: %v", listID, err)
		}
	}
	return u.lists.FindByID(listID)
}

// Score is an employee's average completion next to the team average at their location
type Score struct {
	EmployeeID   string  `json:"employee_id"`
	Average      float64 `json:"avg_task_completion"`
	TotalLists   int64   `json:"total_task_lists"`
	TeamAverage  float64 `json:"team_avg_task_completion"`
	TeamLocation string  `json:"team_location_id,omitempty"`
}

// Score averages over active, done and expired lists. Without a known location the team is everyone.
func (u *ListUsecase) Score(employeeID string) (*Score, error) {
	avg, count, err := u.lists.AverageScore(employeeID, "")
	if err != nil {
		return nil, err
	}

	locationID := ""
	employee, err := u.directory.FindByID(employeeID)
	if err != nil {
		return nil, err
	}
	if employee != nil {
		locationID = employee.LocationID
	}
	teamAvg, _, err := u.lists.AverageScore("", locationID)
	if err != nil {
		return nil, err
	}

	return &Score{
		EmployeeID:   employeeID,
		Average:      avg,
		TotalLists:   count,
		TeamAverage:  teamAvg,
		TeamLocation: locationID,
	}, nil
}
