package seed

import (
	"strings"
	"testing"

	directorydomain "shifttask-backend/internal/directory/domain"
	"shifttask-backend/internal/task/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
departments:
  - id: kitchen
    name: Kitchen
    manager_id: boss
employees:
  - id: boss
    name: Bo
    user_id: user-boss
    work_email: bo@example.com
  - id: emp-1
    name: Ana
    department_id: kitchen
templates:
  - name: Opening
    role_ids: [cook]
    checkout_policy: block
    tasks:
      - name: Unlock
        completion_type: checkbox
        has_deadline: true
        relative_deadline_minutes: 30
      - name: Fridge
        completion_type: numeric
        numeric_min: 0
        numeric_max: 5
        subtasks: [Walk-in, Bar]
escalation_rules:
  - level: 1
    delay_minutes: 0
    recipient_type: assignee
  - level: 2
    delay_minutes: 15
    recipient_type: department_manager
    send_email: true
`

type memTemplates struct {
	templates []*domain.TaskListTemplate
	rules     []*domain.EscalationRule
}

func (m *memTemplates) ListTemplates(bool) ([]*domain.TaskListTemplate, error) {
	return m.templates, nil
}

func (m *memTemplates) CreateTemplate(tpl *domain.TaskListTemplate) (*domain.TaskListTemplate, error) {
	if err := domain.Validate(tpl); err != nil {
		return nil, err
	}
	m.templates = append(m.templates, tpl)
	return tpl, nil
}

func (m *memTemplates) ListRules() ([]*domain.EscalationRule, error) {
	return m.rules, nil
}

func (m *memTemplates) CreateRule(rule *domain.EscalationRule) (*domain.EscalationRule, error) {
	m.rules = append(m.rules, rule)
	return rule, nil
}

type memDirectory struct {
	employees   map[string]*directorydomain.Employee
	departments map[string]*directorydomain.Department
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		employees:   map[string]*directorydomain.Employee{},
		departments: map[string]*directorydomain.Department{},
	}
}

func (m *memDirectory) UpsertEmployee(e *directorydomain.Employee) error {
	m.employees[e.ID] = e
	return nil
}

func (m *memDirectory) UpsertDepartment(d *directorydomain.Department) error {
	m.departments[d.ID] = d
	return nil
}

func TestParseAndApply(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	templates := &memTemplates{}
	directory := newMemDirectory()
	res, err := f.Apply(templates, directory)
	require.NoError(t, err)
	assert.Equal(t, Result{Departments: 1, Employees: 2, Templates: 1, Rules: 2}, res)

	require.Len(t, templates.templates, 1)
	tpl := templates.templates[0]
	assert.True(t, tpl.Active)
	assert.Equal(t, domain.CheckoutPolicyBlock, tpl.CheckoutPolicy)
	require.Len(t, tpl.TaskTemplates, 2)
	assert.Equal(t, 10, tpl.TaskTemplates[0].Sequence)
	assert.Equal(t, 20, tpl.TaskTemplates[1].Sequence)
	require.Len(t, tpl.TaskTemplates[1].SubtaskTemplates, 2)
	assert.Equal(t, "Bar", tpl.TaskTemplates[1].SubtaskTemplates[1].Name)

	assert.Equal(t, "kitchen", directory.employees["emp-1"].DepartmentID)
	assert.True(t, templates.rules[1].SendEmail)

	again, err := f.Apply(templates, directory)
	require.NoError(t, err)
	assert.Zero(t, again.Templates)
	assert.Zero(t, again.Rules)
	assert.Len(t, templates.rules, 2)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":       "templatez: []\n",
		"template no tasks": "templates:\n  - name: Empty\n",
		"bad email":         "employees:\n  - id: e\n    name: E\n    work_email: nope\n",
		"employee no id":    "employees:\n  - name: E\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Templates)
}

func TestExampleSeedFile(t *testing.T) {
	f, err := LoadFile("../../configs/seed.example.yaml")
	require.NoError(t, err)
	assert.Len(t, f.Templates, 2)
	assert.Len(t, f.EscalationRules, 3)
	assert.Len(t, f.Employees, 3)
}
