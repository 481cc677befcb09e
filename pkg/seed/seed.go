// Package seed loads templates, escalation rules and directory records from YAML.
package seed

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	directorydomain "shifttask-backend/internal/directory/domain"
	"shifttask-backend/internal/task/domain"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the top-level seed document
type File struct {
	Departments     []Department `yaml:"departments" validate:"dive"`
	Employees       []Employee   `yaml:"employees" validate:"dive"`
	Templates       []Template   `yaml:"templates" validate:"dive"`
	EscalationRules []Rule       `yaml:"escalation_rules" validate:"dive"`
}

type Department struct {
	ID        string `yaml:"id" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
	ManagerID string `yaml:"manager_id"`
}

type Employee struct {
	ID           string `yaml:"id" validate:"required"`
	Name         string `yaml:"name" validate:"required"`
	UserID       string `yaml:"user_id"`
	WorkEmail    string `yaml:"work_email" validate:"omitempty,email"`
	WorkPhone    string `yaml:"work_phone"`
	DepartmentID string `yaml:"department_id"`
	ManagerID    string `yaml:"manager_id"`
	LocationID   string `yaml:"location_id"`
}

type Template struct {
	Name           string   `yaml:"name" validate:"required"`
	Description    string   `yaml:"description"`
	RoleIDs        []string `yaml:"role_ids"`
	LocationID     string   `yaml:"location_id"`
	CheckoutPolicy string   `yaml:"checkout_policy"`
	Active         *bool    `yaml:"active"`
	Tasks          []Task   `yaml:"tasks" validate:"required,min=1,dive"`
}

type Task struct {
	Name                    string   `yaml:"name" validate:"required"`
	Instructions            string   `yaml:"instructions"`
	Sequence                int      `yaml:"sequence"`
	HasDeadline             bool     `yaml:"has_deadline"`
	RelativeDeadlineMinutes int      `yaml:"relative_deadline_minutes"`
	ReminderMinutesBefore   int      `yaml:"reminder_minutes_before"`
	CompletionType          string   `yaml:"completion_type"`
	NumericLabel            string   `yaml:"numeric_label"`
	NumericMin              float64  `yaml:"numeric_min"`
	NumericMax              float64  `yaml:"numeric_max"`
	RequireProofPhoto       bool     `yaml:"require_proof_photo"`
	Subtasks                []string `yaml:"subtasks"`
}

type Rule struct {
	Level              int    `yaml:"level"`
	DelayMinutes       int    `yaml:"delay_minutes"`
	RecipientType      string `yaml:"recipient_type"`
	SpecificEmployeeID string `yaml:"specific_employee_id"`
	LocationID         string `yaml:"location_id"`
	SendEmail          bool   `yaml:"send_email"`
	SendSMS            bool   `yaml:"send_sms"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}
	return &f, nil
}

// LoadFile parses the seed file at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// TemplateStore creates templates and rules and lists the existing ones
type TemplateStore interface {
	ListTemplates(activeOnly bool) ([]*domain.TaskListTemplate, error)
	CreateTemplate(tpl *domain.TaskListTemplate) (*domain.TaskListTemplate, error)
	ListRules() ([]*domain.EscalationRule, error)
	CreateRule(rule *domain.EscalationRule) (*domain.EscalationRule, error)
}

// DirectoryStore upserts directory records
type DirectoryStore interface {
	UpsertEmployee(employee *directorydomain.Employee) error
	UpsertDepartment(department *directorydomain.Department) error
}

// Result counts what Apply wrote
type Result struct {
	Departments int
	Employees   int
	Templates   int
	Rules       int
}

// Apply writes the seed. Directory records are upserted; templates with an existing
// name and rules identical to an existing one are skipped, so reapplying is safe.
func (f *File) Apply(templates TemplateStore, directory DirectoryStore) (Result, error) {
	var res Result

	for _, d := range f.Departments {
		if err := directory.UpsertDepartment(&directorydomain.Department{ID: d.ID, Name: d.Name, ManagerID: d.ManagerID}); err != nil {
			return res, err
		}
		res.Departments++
	}
	for _, e := range f.Employees {
		err := directory.UpsertEmployee(&directorydomain.Employee{
			ID:           e.ID,
			Name:         e.Name,
			UserID:       e.UserID,
			WorkEmail:    e.WorkEmail,
			WorkPhone:    e.WorkPhone,
			DepartmentID: e.DepartmentID,
			ManagerID:    e.ManagerID,
			LocationID:   e.LocationID,
		})
		if err != nil {
			return res, err
		}
		res.Employees++
	}

	existing, err := templates.ListTemplates(false)
	if err != nil {
		return res, err
	}
	names := make(map[string]bool, len(existing))
	for _, tpl := range existing {
		names[tpl.Name] = true
	}
	for _, t := range f.Templates {
		if names[t.Name] {
			log.Printf("[Seed] Template %q already exists, skipping", t.Name)
			continue
		}
		if _, err := templates.CreateTemplate(t.toDomain()); err != nil {
			return res, fmt.Errorf("template %q: %w", t.Name, err)
		}
		names[t.Name] = true
		res.Templates++
	}

	rules, err := templates.ListRules()
	if err != nil {
		return res, err
	}
	for _, r := range f.EscalationRules {
		rule := r.toDomain()
		if hasRule(rules, rule) {
			continue
		}
		created, err := templates.CreateRule(rule)
		if err != nil {
			return res, fmt.Errorf("escalation rule level %d: %w", r.Level, err)
		}
		rules = append(rules, created)
		res.Rules++
	}
	return res, nil
}

func hasRule(rules []*domain.EscalationRule, r *domain.EscalationRule) bool {
	for _, x := range rules {
		if x.Level == r.Level && x.DelayMinutes == r.DelayMinutes && x.RecipientType == r.RecipientType &&
			x.SpecificEmployeeID == r.SpecificEmployeeID && x.LocationID == r.LocationID {
			return true
		}
	}
	return false
}

func (t Template) toDomain() *domain.TaskListTemplate {
	active := true
	if t.Active != nil {
		active = *t.Active
	}
	tpl := &domain.TaskListTemplate{
		Name:           t.Name,
		Description:    t.Description,
		RoleIDs:        t.RoleIDs,
		LocationID:     t.LocationID,
		CheckoutPolicy: domain.CheckoutPolicy(t.CheckoutPolicy),
		Active:         active,
	}
	for k, task := range t.Tasks {
		seq := task.Sequence
		if seq == 0 {
			seq = (k + 1) * 10
		}
		tt := domain.TaskTemplate{
			Name:                    task.Name,
			Instructions:            task.Instructions,
			Sequence:                seq,
			HasDeadline:             task.HasDeadline,
			RelativeDeadlineMinutes: task.RelativeDeadlineMinutes,
			ReminderMinutesBefore:   task.ReminderMinutesBefore,
			CompletionType:          domain.CompletionType(task.CompletionType),
			NumericLabel:            task.NumericLabel,
			NumericMin:              task.NumericMin,
			NumericMax:              task.NumericMax,
			RequireProofPhoto:       task.RequireProofPhoto,
		}
		for j, name := range task.Subtasks {
			tt.SubtaskTemplates = append(tt.SubtaskTemplates, domain.SubtaskTemplate{Name: name, Sequence: (j + 1) * 10})
		}
		tpl.TaskTemplates = append(tpl.TaskTemplates, tt)
	}
	return tpl
}

func (r Rule) toDomain() *domain.EscalationRule {
	return &domain.EscalationRule{
		Level:              r.Level,
		DelayMinutes:       r.DelayMinutes,
		RecipientType:      domain.RecipientType(r.RecipientType),
		SpecificEmployeeID: r.SpecificEmployeeID,
		LocationID:         r.LocationID,
		SendEmail:          r.SendEmail,
		SendSMS:            r.SendSMS,
		Active:             true,
	}
}
