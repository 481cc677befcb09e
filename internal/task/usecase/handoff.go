package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
)

// HandoffConfig bounds which lists are handed off and where they may go
type HandoffConfig struct {
	// Window is how far back a shift may have ended and still be handed off.
	Window time.Duration
	// Lookahead is how long after the shift end the next shift may start.
	Lookahead time.Duration
	// EarlyStart lets a next shift that starts slightly before the end qualify.
	EarlyStart time.Duration
	BatchSize  int
}

// DefaultHandoffConfig returns the standard 2h window, 4h lookahead and 15m early start.
func DefaultHandoffConfig() HandoffConfig {
	return HandoffConfig{
		Window:     2 * time.Hour,
		Lookahead:  4 * time.Hour,
		EarlyStart: 15 * time.Minute,
		BatchSize:  500,
	}
}

// HandoffEngine carries incomplete items of recently ended shifts to the next matching shift.
type HandoffEngine struct {
	templates repository.TemplateRepository
	lists     repository.TaskListRepository
	shifts    ShiftSource
	directory Directory
	audit     Auditor
	cfg       HandoffConfig
}

// NewHandoffEngine creates a new HandoffEngine
func NewHandoffEngine(templates repository.TemplateRepository, lists repository.TaskListRepository, shifts ShiftSource, directory Directory, audit Auditor, cfg HandoffConfig) *HandoffEngine {
	return &HandoffEngine{templates: templates, lists: lists, shifts: shifts, directory: directory, audit: audit, cfg: cfg}
}

// Run hands off every eligible list and returns the number of items carried over.
// A failing list is logged and skipped.
func (h *HandoffEngine) Run(ctx context.Context, now time.Time) (int, error) {
	candidates, err := h.lists.FindHandoffCandidates(now.Add(-h.cfg.Window), now, h.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	handedOff := 0
	for _, list := range candidates {
		if ctx.Err() != nil {
			return handedOff, ctx.Err()
		}
		n, err := h.handoff(list)
		if err != nil {
			log.Printf("[Handoff] Error handing off list %s: %v", list.ID, err)
			continue
		}
		handedOff += n
	}
	log.Printf("[Handoff] Handed off %d incomplete tasks to next shifts", handedOff)
	return handedOff, nil
}

func (h *HandoffEngine) handoff(origin *domain.TaskList) (int, error) {
	incomplete := origin.IncompleteItems()
	if len(incomplete) == 0 {
		return 0, nil
	}

	next, err := h.shifts.FindNextPublished(
		origin.RoleID, origin.LocationID,
		origin.ShiftEnd.Add(-h.cfg.EarlyStart), origin.ShiftEnd.Add(h.cfg.Lookahead),
		origin.ShiftID,
	)
	if err != nil {
		return 0, err
	}
	if next == nil {
		return 0, nil
	}

	target, err := h.lists.FindByTemplateShift(origin.TemplateID, next.ID)
	if err != nil {
		return 0, err
	}
	if target == nil {
		start := next.Start.UTC()
		target = &domain.TaskList{
			Name:           domain.ListDisplayName(h.templateName(origin.TemplateID), h.employeeName(next.EmployeeID), start),
			TemplateID:     origin.TemplateID,
			ShiftID:        next.ID,
			EmployeeID:     next.EmployeeID,
			RoleID:         next.RoleID,
			LocationID:     next.LocationID,
			ShiftStart:     start,
			ShiftEnd:       next.End.UTC(),
			CheckoutPolicy: origin.CheckoutPolicy,
			State:          domain.ListStateActive,
		}
	}

	comment := h.provenance(origin)
	copies := make([]domain.TaskItem, 0, len(incomplete))
	for _, item := range incomplete {
		copies = append(copies, HandoffCopy(item, comment))
	}

	if err := h.lists.TransferItems(origin.ID, target, copies); err != nil {
		return 0, err
	}

	if h.audit != nil {
		body := fmt.Sprintf("Handed off %d incomplete tasks to list %s.", len(copies), target.ID)
		if err := h.audit.Note(auditTaskList, origin.ID, body); err != nil {
			log.Printf("[Handoff] Error writing audit note for list %s: %v", origin.ID, err)
		}
	}
	log.Printf("[Handoff] List %s: %d tasks carried to shift %s (list %s)", origin.ID, len(copies), next.ID, target.ID)
	return len(copies), nil
}

// HandoffCopy builds the carried-over item: same proof configuration, no deadline,
// marked name and checklist progress kept.
func HandoffCopy(item domain.TaskItem, comment string) domain.TaskItem {
	name := item.Name
	if !item.IsHandoff() {
		name = domain.HandoffPrefix + name
	}
	copied := domain.TaskItem{
		Name:                  name,
		Instructions:          item.Instructions,
		Sequence:              item.Sequence,
		HasDeadline:           false,
		CompletionType:        item.CompletionType,
		NumericLabel:          item.NumericLabel,
		NumericMin:            item.NumericMin,
		NumericMax:            item.NumericMax,
		RequireProofPhoto:     item.RequireProofPhoto,
		InstructionAttachment: item.InstructionAttachment,
		InstructionFilename:   item.InstructionFilename,
		StaffComment:          comment,
		State:                 domain.ItemStateTodo,
	}
	for _, st := range item.Subtasks {
		copied.Subtasks = append(copied.Subtasks, domain.Subtask{
			Name:     st.Name,
			Sequence: st.Sequence,
			IsDone:   st.IsDone,
		})
	}
	return copied
}

func (h *HandoffEngine) provenance(origin *domain.TaskList) string {
	who := h.employeeName(origin.EmployeeID)
	if who == "" {
		who = "previous shift"
	}
	at := ""
	if !origin.ShiftStart.IsZero() {
		at = origin.ShiftStart.Format("15:04")
	}
	return fmt.Sprintf("Handed off from %s (%s shift).", who, at)
}

func (h *HandoffEngine) templateName(templateID string) string {
	tpl, err := h.templates.FindByID(templateID)
	if err != nil {
		log.Printf("[Handoff] Error loading template %s: %v", templateID, err)
		return ""
	}
	return tpl.Name
}

func (h *HandoffEngine) employeeName(employeeID string) string {
	employee, err := h.directory.FindByID(employeeID)
	if err != nil {
		log.Printf("[Handoff] Error loading employee %s: %v", employeeID, err)
		return ""
	}
	if employee == nil {
		return ""
	}
	return employee.Name
}
