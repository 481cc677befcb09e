package usecase

import (
	"testing"
	"time"

	"shifttask-backend/internal/audit"
	directorydomain "shifttask-backend/internal/directory/domain"
	directoryrepo "shifttask-backend/internal/directory/repository"
	shiftdomain "shifttask-backend/internal/shift/domain"
	shiftrepo "shifttask-backend/internal/shift/repository"
	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
	"shifttask-backend/internal/testdb"

	"github.com/stretchr/testify/require"
)

var shiftStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type env struct {
	templates repository.TemplateRepository
	lists     repository.TaskListRepository
	items     repository.TaskItemRepository
	rules     repository.EscalationRuleRepository
	shifts    shiftrepo.ShiftRepository
	directory directoryrepo.EmployeeRepository
	audit     *audit.Log
}

func newEnv(t *testing.T) *env {
	db := testdb.Open(t,
		&domain.TaskListTemplate{}, &domain.TaskTemplate{}, &domain.SubtaskTemplate{},
		&domain.TaskList{}, &domain.TaskItem{}, &domain.Subtask{},
		&domain.EscalationRule{},
		&shiftdomain.Shift{},
		&directorydomain.Employee{}, &directorydomain.Department{},
		&audit.Note{},
	)
	return &env{
		templates: repository.NewGormTemplateRepository(db),
		lists:     repository.NewGormTaskListRepository(db),
		items:     repository.NewGormTaskItemRepository(db),
		rules:     repository.NewGormEscalationRuleRepository(db),
		shifts:    shiftrepo.NewGormShiftRepository(db),
		directory: directoryrepo.NewEmployeeRepository(db),
		audit:     audit.NewLog(db),
	}
}

func (e *env) template(t *testing.T, policy domain.CheckoutPolicy, tasks ...domain.TaskTemplate) *domain.TaskListTemplate {
	t.Helper()
	tpl := &domain.TaskListTemplate{
		Name:           "Opening",
		RoleIDs:        []string{"cook"},
		LocationID:     "loc-1",
		CheckoutPolicy: policy,
		Active:         true,
		TaskTemplates:  tasks,
	}
	require.NoError(t, e.templates.Create(tpl))
	loaded, err := e.templates.FindByID(tpl.ID)
	require.NoError(t, err)
	return loaded
}

func (e *env) shift(t *testing.T, id, employeeID string, start time.Time, hours int) *shiftdomain.Shift {
	t.Helper()
	s := &shiftdomain.Shift{
		ID:         id,
		EmployeeID: employeeID,
		RoleID:     "cook",
		LocationID: "loc-1",
		Start:      start,
		End:        start.Add(time.Duration(hours) * time.Hour),
		State:      shiftdomain.StatePublished,
	}
	require.NoError(t, e.shifts.Upsert(s))
	return s
}

func (e *env) employee(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, e.directory.UpsertEmployee(&directorydomain.Employee{ID: id, Name: name, UserID: "user-" + id, LocationID: "loc-1"}))
}

func (e *env) generator() *Generator {
	return NewGenerator(e.templates, e.lists, e.shifts, e.directory)
}

func checkbox(name string, seq int) domain.TaskTemplate {
	return domain.TaskTemplate{Name: name, Sequence: seq, CompletionType: domain.CompletionCheckbox}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
