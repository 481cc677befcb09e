package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shifttask-backend/internal/audit"
	directorydomain "shifttask-backend/internal/directory/domain"
	directoryrepo "shifttask-backend/internal/directory/repository"
	"shifttask-backend/internal/notification"
	shiftdomain "shifttask-backend/internal/shift/domain"
	shiftrepo "shifttask-backend/internal/shift/repository"
	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
	"shifttask-backend/internal/task/usecase"
	"shifttask-backend/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shiftStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type sent struct {
	to       notification.Recipient
	msg      notification.Message
	channels []notification.Channel
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []sent
}

func (n *recordingNotifier) Dispatch(_ context.Context, to notification.Recipient, msg notification.Message, channels ...notification.Channel) []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, sent{to: to, msg: msg, channels: channels})
	return nil
}

func (n *recordingNotifier) ofKind(kind notification.Kind) []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sent
	for _, c := range n.calls {
		if c.msg.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	templates repository.TemplateRepository
	lists     repository.TaskListRepository
	items     repository.TaskItemRepository
	rules     repository.EscalationRuleRepository
	shifts    shiftrepo.ShiftRepository
	directory directoryrepo.EmployeeRepository
	audit     *audit.Log
	notifier  *recordingNotifier
	sweeper   *Sweeper
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t,
		&domain.TaskListTemplate{}, &domain.TaskTemplate{}, &domain.SubtaskTemplate{},
		&domain.TaskList{}, &domain.TaskItem{}, &domain.Subtask{},
		&domain.EscalationRule{},
		&shiftdomain.Shift{},
		&directorydomain.Employee{}, &directorydomain.Department{},
		&audit.Note{},
	)
	f := &fixture{
		templates: repository.NewGormTemplateRepository(db),
		lists:     repository.NewGormTaskListRepository(db),
		items:     repository.NewGormTaskItemRepository(db),
		rules:     repository.NewGormEscalationRuleRepository(db),
		shifts:    shiftrepo.NewGormShiftRepository(db),
		directory: directoryrepo.NewEmployeeRepository(db),
		audit:     audit.NewLog(db),
		notifier:  &recordingNotifier{},
		now:       shiftStart,
	}
	f.sweeper = NewSweeper(f.lists, f.items, f.rules, f.directory, f.notifier)
	f.sweeper.SetClock(func() time.Time { return f.now })

	require.NoError(t, f.directory.UpsertDepartment(&directorydomain.Department{ID: "kitchen", Name: "Kitchen", ManagerID: "boss"}))
	for _, e := range []*directorydomain.Employee{
		{ID: "emp-1", Name: "Ana", UserID: "user-1", WorkEmail: "ana@example.com", DepartmentID: "kitchen", ManagerID: "lead", LocationID: "loc-1"},
		{ID: "lead", Name: "Lee", UserID: "user-lead"},
		{ID: "boss", Name: "Bo", UserID: "user-boss", WorkPhone: "+15550100"},
	} {
		require.NoError(t, f.directory.UpsertEmployee(e))
	}
	return f
}

func (f *fixture) at(minutes int) {
	f.now = shiftStart.Add(time.Duration(minutes) * time.Minute)
}

func (f *fixture) generate(t *testing.T, shiftID, employeeID string, start time.Time, tasks ...domain.TaskTemplate) *domain.TaskList {
	t.Helper()
	tpl := &domain.TaskListTemplate{
		Name: "Opening", CheckoutPolicy: domain.CheckoutPolicyWarn, Active: true, TaskTemplates: tasks,
	}
	existing, err := f.templates.FindAll(false)
	require.NoError(t, err)
	if len(existing) > 0 {
		tpl = existing[0]
	} else {
		require.NoError(t, f.templates.Create(tpl))
	}
	require.NoError(t, f.shifts.Upsert(&shiftdomain.Shift{
		ID: shiftID, EmployeeID: employeeID, RoleID: "cook", LocationID: "loc-1",
		Start: start, End: start.Add(8 * time.Hour), State: shiftdomain.StatePublished,
	}))
	list, err := usecase.NewGenerator(f.templates, f.lists, f.shifts, f.directory).Generate(tpl.ID, shiftID)
	require.NoError(t, err)
	loaded, err := f.lists.FindByID(list.ID)
	require.NoError(t, err)
	return loaded
}

func deadlineTask(name string, offset int) domain.TaskTemplate {
	return domain.TaskTemplate{
		Name: name, Sequence: 10, CompletionType: domain.CompletionCheckbox,
		HasDeadline: true, RelativeDeadlineMinutes: offset,
	}
}

func (f *fixture) rule(t *testing.T, level, delay int, recipient domain.RecipientType) {
	t.Helper()
	require.NoError(t, f.rules.Create(&domain.EscalationRule{
		Level: level, DelayMinutes: delay, RecipientType: recipient, Active: true,
	}))
}

func TestEscalationFiresEachElapsedLevelOnce(t *testing.T) {
	f := newFixture(t)
	f.rule(t, 1, 0, domain.RecipientAssignee)
	f.rule(t, 2, 15, domain.RecipientDepartmentManager)
	f.rule(t, 3, 30, domain.RecipientAssigneeManager)
	list := f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))

	f.at(50)
	n, err := f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	calls := f.notifier.ofKind(notification.KindEscalation)
	require.Len(t, calls, 2)
	assert.Equal(t, "user-1", calls[0].to.UserID)
	assert.Equal(t, "Escalation level 1: Unlock", calls[0].msg.Subject)
	assert.Equal(t, "user-boss", calls[1].to.UserID)
	assert.Equal(t, []notification.Channel{notification.ChannelInApp}, calls[1].channels)

	item, err := f.items.FindByID(list.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, item.EscalationLevel1Sent)
	assert.True(t, item.EscalationLevel2Sent)
	assert.False(t, item.EscalationLevel3Sent)

	n, err = f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.ofKind(notification.KindEscalation), 2)

	f.at(61)
	n, err = f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	calls = f.notifier.ofKind(notification.KindEscalation)
	require.Len(t, calls, 3)
	assert.Equal(t, "user-lead", calls[2].to.UserID)
}

func TestEscalationChannelsAndLocationScope(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.Create(&domain.EscalationRule{
		Level: 1, RecipientType: domain.RecipientSpecificEmployee, SpecificEmployeeID: "boss",
		SendEmail: true, SendSMS: true, Active: true,
	}))
	require.NoError(t, f.rules.Create(&domain.EscalationRule{
		Level: 2, RecipientType: domain.RecipientAssignee, LocationID: "loc-9", Active: true,
	}))
	require.NoError(t, f.rules.Create(&domain.EscalationRule{
		Level: 3, RecipientType: domain.RecipientAssignee, Active: false,
	}))
	f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))

	f.at(45)
	n, err := f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := f.notifier.ofKind(notification.KindEscalation)
	require.Len(t, calls, 1)
	assert.Equal(t, "user-boss", calls[0].to.UserID)
	assert.Equal(t, []notification.Channel{notification.ChannelInApp, notification.ChannelEmail, notification.ChannelSMS}, calls[0].channels)
}

func TestEscalationSkipsRecipientWithoutUser(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.directory.UpsertEmployee(&directorydomain.Employee{ID: "ghost", Name: "Ghost"}))
	require.NoError(t, f.rules.Create(&domain.EscalationRule{
		Level: 1, RecipientType: domain.RecipientSpecificEmployee, SpecificEmployeeID: "ghost", Active: true,
	}))
	list := f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))

	f.at(45)
	n, err := f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	item, err := f.items.FindByID(list.Items[0].ID)
	require.NoError(t, err)
	assert.False(t, item.EscalationLevel1Sent)
}

func TestWorkerSaveDoesNotReopenSentFlags(t *testing.T) {
	f := newFixture(t)
	f.rule(t, 1, 0, domain.RecipientAssignee)
	list := f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))

	stale, err := f.items.FindByID(list.Items[0].ID)
	require.NoError(t, err)

	f.at(45)
	report, err := f.sweeper.SweepOverdue(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report["overdue_notified"])
	assert.Equal(t, 1, report["escalations_sent"])

	stale.StaffComment = "waiting for keys"
	_, err = f.items.Save(stale)
	require.NoError(t, err)

	report, err = f.sweeper.SweepOverdue(t.Context())
	require.NoError(t, err)
	assert.Zero(t, report["overdue_notified"])
	assert.Zero(t, report["escalations_sent"])
	assert.Len(t, f.notifier.ofKind(notification.KindOverdue), 1)
	assert.Len(t, f.notifier.ofKind(notification.KindEscalation), 1)

	item, err := f.items.FindByID(stale.ID)
	require.NoError(t, err)
	assert.True(t, item.ReminderSent)
	assert.True(t, item.EscalationLevel1Sent)
	assert.Equal(t, "waiting for keys", item.StaffComment)
}

func TestSmallBatchesStillReachEveryEligibleItem(t *testing.T) {
	f := newFixture(t)
	f.sweeper.SetBatchSize(1)
	f.rule(t, 1, 10, domain.RecipientAssignee)

	early := deadlineTask("Unlock", 30)
	early.ReminderMinutesBefore = 5
	late := deadlineTask("Fridge", 40)
	late.Sequence = 20
	late.ReminderMinutesBefore = 30
	list := f.generate(t, "shift-1", "emp-1", shiftStart, early, late)

	f.at(15)
	n, err := f.sweeper.SendPreDeadlineReminders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	reminders := f.notifier.ofKind(notification.KindReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, list.Items[1].ID, reminders[0].msg.ResourceID)

	f.at(41)
	n, err = f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.at(55)
	n, err = f.sweeper.Escalate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, it := range list.Items {
		item, err := f.items.FindByID(it.ID)
		require.NoError(t, err)
		assert.True(t, item.EscalationLevel1Sent, item.Name)
	}
}

func TestOverdueNoticeSentOnce(t *testing.T) {
	f := newFixture(t)
	f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))
	f.generate(t, "shift-2", "", shiftStart, deadlineTask("Unlock", 30))

	f.at(20)
	n, err := f.sweeper.CheckOverdue(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.at(31)
	n, err = f.sweeper.CheckOverdue(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	calls := f.notifier.ofKind(notification.KindOverdue)
	require.Len(t, calls, 1)
	assert.Equal(t, "emp-1", calls[0].to.EmployeeID)
	assert.Equal(t, []notification.Channel{notification.ChannelInApp}, calls[0].channels)

	f.at(90)
	n, err = f.sweeper.CheckOverdue(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.ofKind(notification.KindOverdue), 1)
}

func TestPreDeadlineReminder(t *testing.T) {
	f := newFixture(t)
	task := deadlineTask("Unlock", 60)
	task.ReminderMinutesBefore = 15
	f.generate(t, "shift-1", "emp-1", shiftStart, task)

	f.at(40)
	n, err := f.sweeper.SendPreDeadlineReminders(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.at(46)
	n, err = f.sweeper.SendPreDeadlineReminders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := f.notifier.ofKind(notification.KindReminder)
	require.Len(t, calls, 1)
	assert.Equal(t, []notification.Channel{notification.ChannelInApp, notification.ChannelEmail}, calls[0].channels)

	f.at(50)
	n, err = f.sweeper.SendPreDeadlineReminders(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWarnExpiredOnce(t *testing.T) {
	f := newFixture(t)
	list := f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))

	f.at(8*60 - 1)
	n, err := f.sweeper.WarnExpired(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.at(8*60 + 1)
	n, err = f.sweeper.WarnExpired(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := f.notifier.ofKind(notification.KindListExpired)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].msg.Body, "0 of 1 tasks completed")
	assert.Contains(t, calls[0].msg.Body, "Incomplete: Unlock.")
	assert.Equal(t, []notification.Channel{notification.ChannelInApp, notification.ChannelEmail}, calls[0].channels)

	stored, err := f.lists.FindByID(list.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListStateExpired, stored.State)

	n, err = f.sweeper.WarnExpired(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.ofKind(notification.KindListExpired), 1)
}

func TestRunAllHandsOffBeforeExpiring(t *testing.T) {
	f := newFixture(t)
	origin := f.generate(t, "morning", "emp-1", shiftStart, deadlineTask("Unlock", 30))
	require.NoError(t, f.shifts.Upsert(&shiftdomain.Shift{
		ID: "evening", EmployeeID: "lead", RoleID: "cook", LocationID: "loc-1",
		Start: shiftStart.Add(8 * time.Hour), End: shiftStart.Add(16 * time.Hour), State: shiftdomain.StatePublished,
	}))
	f.sweeper.WithHandoff(usecase.NewHandoffEngine(f.templates, f.lists, f.shifts, f.directory, f.audit, usecase.DefaultHandoffConfig()))

	f.at(8*60 + 10)
	report, err := f.sweeper.Run(t.Context(), SweepAll)
	require.NoError(t, err)
	assert.Equal(t, 1, report["handed_off"])
	assert.Zero(t, report["expired"])
	assert.Zero(t, report["generated"])
	assert.Empty(t, f.notifier.ofKind(notification.KindListExpired))

	stored, err := f.lists.FindByID(origin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListStateExpired, stored.State)
	assert.False(t, stored.WarningSent)
}

func TestRunRejectsUnknownSweep(t *testing.T) {
	f := newFixture(t)
	report, err := f.sweeper.Run(t.Context(), "vacuum")
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrUnknownSweep))

	report, err = f.sweeper.Run(t.Context(), SweepHandoff)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"handed_off": 0}, report)
}

func TestAutogenSweep(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.templates.Create(&domain.TaskListTemplate{
		Name: "Opening", CheckoutPolicy: domain.CheckoutPolicyWarn, Active: true,
		TaskTemplates: []domain.TaskTemplate{deadlineTask("Unlock", 30)},
	}))
	require.NoError(t, f.shifts.Upsert(&shiftdomain.Shift{
		ID: "tomorrow", EmployeeID: "emp-1", RoleID: "cook", LocationID: "loc-1",
		Start: shiftStart.Add(20 * time.Hour), End: shiftStart.Add(28 * time.Hour), State: shiftdomain.StatePublished,
	}))
	f.sweeper.WithGenerator(usecase.NewGenerator(f.templates, f.lists, f.shifts, f.directory), 24*time.Hour)

	report, err := f.sweeper.Run(t.Context(), SweepAutogen)
	require.NoError(t, err)
	assert.Equal(t, 1, report["generated"])

	report, err = f.sweeper.Run(t.Context(), SweepAutogen)
	require.NoError(t, err)
	assert.Zero(t, report["generated"])
}

func TestSchedulerRunOnce(t *testing.T) {
	f := newFixture(t)
	f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))
	f.at(31)

	s := NewScheduler(f.sweeper, "")
	report, err := s.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report["overdue_notified"])
}

type blockingNotifier struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) Dispatch(context.Context, notification.Recipient, notification.Message, ...notification.Channel) []error {
	n.once.Do(func() { close(n.entered) })
	<-n.release
	return nil
}

func TestSchedulerStopWaitsForInitialRun(t *testing.T) {
	f := newFixture(t)
	list := f.generate(t, "shift-1", "emp-1", shiftStart, deadlineTask("Unlock", 30))
	f.at(31)

	notifier := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	sweeper := NewSweeper(f.lists, f.items, f.rules, f.directory, notifier)
	sweeper.SetClock(func() time.Time { return f.now })

	s := NewScheduler(sweeper, "@every 1h")
	require.NoError(t, s.Start())
	<-notifier.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the initial sweep was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(notifier.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the initial sweep finished")
	}

	item, err := f.items.FindByID(list.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, item.ReminderSent)
}
