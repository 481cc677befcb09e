package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyGenerated  = errors.New("task list already generated")
	ErrEmptyTemplate     = errors.New("template has no tasks")
	ErrProofRequired     = errors.New("proof required")
	ErrCheckoutBlocked   = errors.New("checkout blocked")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// AlreadyGeneratedError is returned when a list exists for the (template, shift) pair.
type AlreadyGeneratedError struct {
	TemplateID string
	ShiftID    string
	ListID     string
}

func (e *AlreadyGeneratedError) Error() string {
	return fmt.Sprintf("tasks already exist for template %s on shift %s (list %s)", e.TemplateID, e.ShiftID, e.ListID)
}

func (e *AlreadyGeneratedError) Unwrap() error { return ErrAlreadyGenerated }

// EmptyTemplateError is returned when a template has no task templates to instantiate.
type EmptyTemplateError struct {
	TemplateName string
}

func (e *EmptyTemplateError) Error() string {
	return fmt.Sprintf("template %q has no tasks defined", e.TemplateName)
}

func (e *EmptyTemplateError) Unwrap() error { return ErrEmptyTemplate }

// ProofCondition names the unmet completion requirement.
type ProofCondition string

const (
	ProofPhotoMissing        ProofCondition = "photo_missing"
	ProofBelowMinimum        ProofCondition = "below_minimum"
	ProofAboveMaximum        ProofCondition = "above_maximum"
	ProofTextMissing         ProofCondition = "text_missing"
	ProofSignatureMissing    ProofCondition = "signature_missing"
	ProofExtraPhotoMissing   ProofCondition = "additional_photo_missing"
	ProofChecklistIncomplete ProofCondition = "checklist_incomplete"
)

// ProofRequiredError is raised by the completion gate.
type ProofRequiredError struct {
	ItemName  string
	Condition ProofCondition
	Value     float64
	Bound     float64
}

func (e *ProofRequiredError) Error() string {
	switch e.Condition {
	case ProofPhotoMissing:
		return fmt.Sprintf("task %q requires a photo", e.ItemName)
	case ProofBelowMinimum:
		return fmt.Sprintf("value %.1f is below minimum %.1f for task %q", e.Value, e.Bound, e.ItemName)
	case ProofAboveMaximum:
		return fmt.Sprintf("value %.1f is above maximum %.1f for task %q", e.Value, e.Bound, e.ItemName)
	case ProofTextMissing:
		return fmt.Sprintf("task %q requires a text note", e.ItemName)
	case ProofSignatureMissing:
		return fmt.Sprintf("task %q requires a digital signature", e.ItemName)
	case ProofExtraPhotoMissing:
		return fmt.Sprintf("task %q also requires a photo", e.ItemName)
	case ProofChecklistIncomplete:
		return fmt.Sprintf("all checklist items must be completed for task %q", e.ItemName)
	}
	return fmt.Sprintf("task %q: %s", e.ItemName, e.Condition)
}

func (e *ProofRequiredError) Unwrap() error { return ErrProofRequired }

// maxBlockedNames caps the names rendered into the checkout message
const maxBlockedNames = 10

// CheckoutBlockedError lists the incomplete mandatory tasks that veto a clock-out.
type CheckoutBlockedError struct {
	TaskNames []string
}

func (e *CheckoutBlockedError) Error() string {
	names := e.TaskNames
	if len(names) > maxBlockedNames {
		names = names[:maxBlockedNames]
	}
	return "cannot clock out, the following mandatory tasks are incomplete: " + strings.Join(names, ", ")
}

func (e *CheckoutBlockedError) Unwrap() error { return ErrCheckoutBlocked }
