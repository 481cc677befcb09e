package usecase

import (
	"fmt"

	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
)

// TemplateUsecase manages task list templates and escalation rules
type TemplateUsecase struct {
	templates repository.TemplateRepository
	rules     repository.EscalationRuleRepository
}

// NewTemplateUsecase creates a new TemplateUsecase
func NewTemplateUsecase(templates repository.TemplateRepository, rules repository.EscalationRuleRepository) *TemplateUsecase {
	return &TemplateUsecase{templates: templates, rules: rules}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

// CreateTemplate validates and stores a template with its tasks and checklists.
func (u *TemplateUsecase) CreateTemplate(tpl *domain.TaskListTemplate) (*domain.TaskListTemplate, error) {
	if tpl.CheckoutPolicy == "" {
		tpl.CheckoutPolicy = domain.CheckoutPolicyWarn
	}
	for k := range tpl.TaskTemplates {
		if tpl.TaskTemplates[k].CompletionType == "" {
			tpl.TaskTemplates[k].CompletionType = domain.CompletionCheckbox
		}
	}
	if err := domain.Validate(tpl); err != nil {
		return nil, invalid(err)
	}
	if err := u.templates.Create(tpl); err != nil {
		return nil, err
	}
	return u.templates.FindByID(tpl.ID)
}

func (u *TemplateUsecase) GetTemplate(id string) (*domain.TaskListTemplate, error) {
	return u.templates.FindByID(id)
}

func (u *TemplateUsecase) ListTemplates(activeOnly bool) ([]*domain.TaskListTemplate, error) {
	return u.templates.FindAll(activeOnly)
}

func (u *TemplateUsecase) SetTemplateActive(id string, active bool) error {
	return u.templates.SetActive(id, active)
}

// DeleteTemplate removes the template with its task and subtask templates.
// Task lists already generated from it are kept.
func (u *TemplateUsecase) DeleteTemplate(id string) error {
	return u.templates.Delete(id)
}

// CreateRule validates and stores an escalation rule.
func (u *TemplateUsecase) CreateRule(rule *domain.EscalationRule) (*domain.EscalationRule, error) {
	if err := domain.Validate(rule); err != nil {
		return nil, invalid(err)
	}
	if err := u.rules.Create(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (u *TemplateUsecase) ListRules() ([]*domain.EscalationRule, error) {
	return u.rules.FindAll()
}

func (u *TemplateUsecase) DeleteRule(id string) error {
	return u.rules.Delete(id)
}
