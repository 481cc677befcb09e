package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"shifttask-backend/internal/shift/domain"
	taskdomain "shifttask-backend/internal/task/domain"
)

// ShiftStore is the write side of the shift mirror
type ShiftStore interface {
	Upsert(shift *domain.Shift) error
}

// ListGenerator creates the task lists of a published shift
type ListGenerator interface {
	GenerateForShift(shift *domain.Shift) ([]*taskdomain.TaskList, error)
}

// EventHandler mirrors shift events and triggers generation on publish.
// Both the Pub/Sub subscription and the webhook feed it.
type EventHandler struct {
	shifts    ShiftStore
	generator ListGenerator
}

func NewEventHandler(shifts ShiftStore, generator ListGenerator) *EventHandler {
	return &EventHandler{shifts: shifts, generator: generator}
}

// HandleEvent decodes one event payload. Malformed payloads wrap ErrInvalidInput.
func (h *EventHandler) HandleEvent(ctx context.Context, data []byte) error {
	var event domain.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode shift event: %w: %v", taskdomain.ErrInvalidInput, err)
	}
	if event.ID == "" {
		return fmt.Errorf("shift event without id: %w", taskdomain.ErrInvalidInput)
	}
	if !event.End.After(event.Start) {
		return fmt.Errorf("shift %s ends before it starts: %w", event.ID, taskdomain.ErrInvalidInput)
	}
	if event.State == "" {
		event.State = domain.StateDraft
	}

	shift := event.ToShift()
	shift.Start, shift.End = shift.Start.UTC(), shift.End.UTC()
	if err := h.shifts.Upsert(shift); err != nil {
		return err
	}

	if !shift.IsPublished() || !shift.Assigned() {
		return nil
	}
	lists, err := h.generator.GenerateForShift(shift)
	if len(lists) > 0 {
		log.Printf("[ShiftSubscriber] Shift %s published: generated %d task lists", shift.ID, len(lists))
	}
	return err
}
