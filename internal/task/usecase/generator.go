package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	shiftdomain "shifttask-backend/internal/shift/domain"
	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
)

// Generator instantiates task lists from templates for shifts
type Generator struct {
	templates repository.TemplateRepository
	lists     repository.TaskListRepository
	shifts    ShiftSource
	directory Directory
	locks     *keyedMutex
}

// NewGenerator creates a new Generator
func NewGenerator(templates repository.TemplateRepository, lists repository.TaskListRepository, shifts ShiftSource, directory Directory) *Generator {
	return &Generator{
		templates: templates,
		lists:     lists,
		shifts:    shifts,
		directory: directory,
		locks:     newKeyedMutex(),
	}
}

// Generate creates the task list of templateID for shiftID.
func (g *Generator) Generate(templateID, shiftID string) (*domain.TaskList, error) {
	tpl, err := g.templates.FindByID(templateID)
	if err != nil {
		return nil, err
	}
	shift, err := g.shifts.FindByID(shiftID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, fmt.Errorf("shift %s: %w", shiftID, domain.ErrNotFound)
	}
	return g.generate(tpl, shift)
}

func (g *Generator) generate(tpl *domain.TaskListTemplate, shift *shiftdomain.Shift) (*domain.TaskList, error) {
	unlock := g.locks.Lock(tpl.ID + "/" + shift.ID)
	defer unlock()

	existing, err := g.lists.FindByTemplateShift(tpl.ID, shift.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.AlreadyGeneratedError{TemplateID: tpl.ID, ShiftID: shift.ID, ListID: existing.ID}
	}
	if len(tpl.TaskTemplates) == 0 {
		return nil, &domain.EmptyTemplateError{TemplateName: tpl.Name}
	}

	employeeName := ""
	if employee, err := g.directory.FindByID(shift.EmployeeID); err != nil {
		log.Printf("[Generator] Error loading employee %s: %v", shift.EmployeeID, err)
	} else if employee != nil {
		employeeName = employee.Name
	}

	start, end := shift.Start.UTC(), shift.End.UTC()
	list := &domain.TaskList{
		Name:           domain.ListDisplayName(tpl.Name, employeeName, start),
		TemplateID:     tpl.ID,
		ShiftID:        shift.ID,
		EmployeeID:     shift.EmployeeID,
		RoleID:         shift.RoleID,
		LocationID:     shift.LocationID,
		ShiftStart:     start,
		ShiftEnd:       end,
		CheckoutPolicy: tpl.CheckoutPolicy,
		Items:          BuildItems(tpl, start, end),
		State:          domain.ListStateActive,
	}
	if err := g.lists.Create(list); err != nil {
		var already *domain.AlreadyGeneratedError
		if errors.As(err, &already) {
			already.TemplateID, already.ShiftID = tpl.ID, shift.ID
		}
		return nil, err
	}

	log.Printf("[Generator] Generated task list %q (%d tasks) for shift %s", list.Name, len(list.Items), shift.ID)
	return list, nil
}

// BuildItems copies the template's tasks and checklists into fresh, unchecked items.
func BuildItems(tpl *domain.TaskListTemplate, shiftStart, shiftEnd time.Time) []domain.TaskItem {
	var items []domain.TaskItem
	for _, tt := range tpl.SortedTaskTemplates() {
		item := domain.TaskItem{
			Name:                  tt.Name,
			Instructions:          tt.Instructions,
			Sequence:              tt.Sequence,
			HasDeadline:           tt.HasDeadline,
			CompletionType:        tt.CompletionType,
			NumericLabel:          tt.NumericLabel,
			NumericMin:            tt.NumericMin,
			NumericMax:            tt.NumericMax,
			RequireProofPhoto:     tt.RequireProofPhoto,
			InstructionAttachment: tt.InstructionAttachment,
			InstructionFilename:   tt.InstructionFilename,
			ReminderMinutesBefore: tt.ReminderMinutesBefore,
			State:                 domain.ItemStateTodo,
		}
		if tt.HasDeadline {
			deadline := Deadline(shiftStart, shiftEnd, tt.RelativeDeadlineMinutes)
			item.Deadline = &deadline
		}
		for _, st := range tt.SortedSubtaskTemplates() {
			item.Subtasks = append(item.Subtasks, domain.Subtask{Name: st.Name, Sequence: st.Sequence})
		}
		items = append(items, item)
	}
	return items
}

// Deadline is shiftStart plus the offset, clamped to shiftEnd when one is known.
func Deadline(shiftStart, shiftEnd time.Time, offsetMinutes int) time.Time {
	deadline := shiftStart.Add(time.Duration(offsetMinutes) * time.Minute)
	if !shiftEnd.IsZero() && deadline.After(shiftEnd) {
		return shiftEnd
	}
	return deadline
}

// GenerateForShift creates one list per active template matching the shift's role and location.
// Unassigned or unpublished shifts are skipped; pairs that already have a list are left alone.
func (g *Generator) GenerateForShift(shift *shiftdomain.Shift) ([]*domain.TaskList, error) {
	if !shift.Assigned() || !shift.IsPublished() {
		return nil, nil
	}

	templates, err := g.templates.FindAll(true)
	if err != nil {
		return nil, err
	}

	var created []*domain.TaskList
	var errs []error
	for _, tpl := range templates {
		if !tpl.Matches(shift.RoleID, shift.LocationID) {
			continue
		}
		list, err := g.generate(tpl, shift)
		switch {
		case err == nil:
			created = append(created, list)
		case errors.Is(err, domain.ErrAlreadyGenerated):
		case errors.Is(err, domain.ErrEmptyTemplate):
			log.Printf("[Generator] Skipping template %s for shift %s: %v", tpl.ID, shift.ID, err)
		default:
			errs = append(errs, fmt.Errorf("template %s: %w", tpl.ID, err))
		}
	}
	return created, errors.Join(errs...)
}

// GenerateUpcoming generates lists for every published, assigned shift starting in [now, now+horizon].
func (g *Generator) GenerateUpcoming(ctx context.Context, now time.Time, horizon time.Duration) (int, error) {
	shifts, err := g.shifts.FindPublishedStartingBetween(now, now.Add(horizon))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, shift := range shifts {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		lists, err := g.GenerateForShift(shift)
		if err != nil {
			log.Printf("[Generator] Error generating lists for shift %s: %v", shift.ID, err)
		}
		created += len(lists)
	}
	log.Printf("[Generator] Auto-generated %d task lists from %d upcoming shifts", created, len(shifts))
	return created, nil
}
