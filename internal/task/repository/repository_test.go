package repository

import (
	"errors"
	"testing"
	"time"

	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var shiftStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *gorm.DB {
	return testdb.Open(t,
		&domain.TaskListTemplate{}, &domain.TaskTemplate{}, &domain.SubtaskTemplate{},
		&domain.TaskList{}, &domain.TaskItem{}, &domain.Subtask{},
		&domain.EscalationRule{},
	)
}

func minutes(n int) *time.Time {
	t := shiftStart.Add(time.Duration(n) * time.Minute)
	return &t
}

func newList(shiftID string, items ...domain.TaskItem) *domain.TaskList {
	return &domain.TaskList{
		Name:           "Opening",
		TemplateID:     "tpl-1",
		ShiftID:        shiftID,
		EmployeeID:     "emp-1",
		LocationID:     "loc-1",
		ShiftStart:     shiftStart,
		ShiftEnd:       shiftStart.Add(8 * time.Hour),
		CheckoutPolicy: domain.CheckoutPolicyBlock,
		State:          domain.ListStateActive,
		Items:          items,
	}
}

func TestTaskListCreateComputesCountersAndRejectsDuplicates(t *testing.T) {
	lists := NewGormTaskListRepository(openDB(t))

	list := newList("shift-1",
		domain.TaskItem{Name: "Unlock", Sequence: 10, CompletionType: domain.CompletionCheckbox},
		domain.TaskItem{Name: "Count till", Sequence: 20, CompletionType: domain.CompletionNumeric,
			Subtasks: []domain.Subtask{{Name: "Coins", Sequence: 10}, {Name: "Notes", Sequence: 20}}},
	)
	require.NoError(t, lists.Create(list))
	assert.Equal(t, 2, list.TotalTasks)
	assert.Zero(t, list.CompletionScore)

	loaded, err := lists.FindByID(list.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "Unlock", loaded.Items[0].Name)
	assert.Equal(t, []string{"Coins", "Notes"}, []string{loaded.Items[1].Subtasks[0].Name, loaded.Items[1].Subtasks[1].Name})

	err = lists.Create(newList("shift-1", domain.TaskItem{Name: "Again", CompletionType: domain.CompletionCheckbox}))
	assert.ErrorIs(t, err, domain.ErrAlreadyGenerated)

	found, err := lists.FindByTemplateShift("tpl-1", "shift-1")
	require.NoError(t, err)
	assert.Equal(t, list.ID, found.ID)

	missing, err := lists.FindByTemplateShift("tpl-1", "shift-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = lists.FindByID("nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestItemSaveRecomputesListCompletion(t *testing.T) {
	db := openDB(t)
	lists := NewGormTaskListRepository(db)
	items := NewGormTaskItemRepository(db)

	list := newList("shift-1",
		domain.TaskItem{Name: "a", Sequence: 10, CompletionType: domain.CompletionCheckbox},
		domain.TaskItem{Name: "b", Sequence: 20, CompletionType: domain.CompletionCheckbox,
			Subtasks: []domain.Subtask{{Name: "b1"}}},
	)
	require.NoError(t, lists.Create(list))

	item, err := items.FindByID(list.Items[1].ID)
	require.NoError(t, err)
	item.Subtasks[0].IsDone = true
	item.State = domain.ItemStateDone
	item.CompletedAt = minutes(30)

	refreshed, err := items.Save(item)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.TotalTasks)
	assert.Equal(t, 1, refreshed.CompletedTasks)
	assert.InDelta(t, 50, refreshed.CompletionScore, 0.001)

	reloaded, err := items.FindByID(item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Subtasks[0].IsDone)
	assert.Equal(t, domain.ItemStateDone, reloaded.State)
}

func TestItemSaveKeepsSentFlagsSetMeanwhile(t *testing.T) {
	db := openDB(t)
	lists := NewGormTaskListRepository(db)
	items := NewGormTaskItemRepository(db)

	list := newList("shift-1",
		domain.TaskItem{Name: "Unlock", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(30)},
	)
	require.NoError(t, lists.Create(list))

	stale, err := items.FindByID(list.Items[0].ID)
	require.NoError(t, err)

	require.NoError(t, items.MarkReminderSent(stale.ID))
	require.NoError(t, items.MarkPreReminderSent(stale.ID))
	require.NoError(t, items.MarkEscalationSent(stale.ID, 1))

	stale.StaffComment = "fridge door stuck"
	stale.State = domain.ItemStateInProgress
	_, err = items.Save(stale)
	require.NoError(t, err)

	reloaded, err := items.FindByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, "fridge door stuck", reloaded.StaffComment)
	assert.Equal(t, domain.ItemStateInProgress, reloaded.State)
	assert.True(t, reloaded.ReminderSent)
	assert.True(t, reloaded.PreReminderSent)
	assert.True(t, reloaded.EscalationLevel1Sent)

	reloaded.ResetProgress()
	_, err = items.SaveReset(reloaded)
	require.NoError(t, err)

	cleared, err := items.FindByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStateTodo, cleared.State)
	assert.False(t, cleared.ReminderSent)
	assert.False(t, cleared.PreReminderSent)
	assert.False(t, cleared.EscalationLevel1Sent)

	_, err = items.Save(&domain.TaskItem{ID: "missing", TaskListID: list.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverdueQueriesOnlySeeActiveLists(t *testing.T) {
	db := openDB(t)
	lists := NewGormTaskListRepository(db)
	items := NewGormTaskItemRepository(db)

	active := newList("shift-1",
		domain.TaskItem{Name: "late", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(30)},
		domain.TaskItem{Name: "later", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(120)},
		domain.TaskItem{Name: "done", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(10), State: domain.ItemStateDone},
		domain.TaskItem{Name: "open", CompletionType: domain.CompletionCheckbox},
	)
	require.NoError(t, lists.Create(active))

	draft := newList("shift-2",
		domain.TaskItem{Name: "draft late", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(5)},
	)
	draft.State = domain.ListStateDraft
	require.NoError(t, lists.Create(draft))

	now := *minutes(60)
	overdue, err := items.FindEscalationCandidates(now, nil, 100)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].Name)

	unnotified, err := items.FindOverdueUnnotified(now, nil, 100)
	require.NoError(t, err)
	require.Len(t, unnotified, 1)

	require.NoError(t, items.MarkReminderSent(overdue[0].ID))
	unnotified, err = items.FindOverdueUnnotified(now, nil, 100)
	require.NoError(t, err)
	assert.Empty(t, unnotified)

	require.NoError(t, items.MarkEscalationSent(overdue[0].ID, 2))
	item, err := items.FindByID(overdue[0].ID)
	require.NoError(t, err)
	assert.True(t, item.EscalationLevel2Sent)
	assert.False(t, item.EscalationLevel1Sent)

	assert.ErrorIs(t, items.MarkEscalationSent(item.ID, 4), domain.ErrInvalidInput)

	require.NoError(t, items.MarkEscalationSent(item.ID, 1))
	require.NoError(t, items.MarkEscalationSent(item.ID, 3))
	overdue, err = items.FindEscalationCandidates(now, nil, 100)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestSweepQueriesPageByCursor(t *testing.T) {
	db := openDB(t)
	lists := NewGormTaskListRepository(db)
	items := NewGormTaskItemRepository(db)

	list := newList("shift-1",
		domain.TaskItem{Name: "a", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(10)},
		domain.TaskItem{Name: "b", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(20)},
		domain.TaskItem{Name: "c", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(20)},
		domain.TaskItem{Name: "d", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(30)},
	)
	require.NoError(t, lists.Create(list))

	now := *minutes(60)
	var seen []string
	var after *ItemCursor
	for {
		page, err := items.FindOverdueUnnotified(now, after, 2)
		require.NoError(t, err)
		for _, item := range page {
			seen = append(seen, item.Name)
		}
		if len(page) < 2 {
			break
		}
		after = NextCursor(page)
	}
	require.Len(t, seen, 4)
	assert.Equal(t, "a", seen[0])
	assert.ElementsMatch(t, []string{"b", "c"}, seen[1:3])
	assert.Equal(t, "d", seen[3])

	assert.Nil(t, NextCursor(nil))
}

func TestPreReminderCandidates(t *testing.T) {
	db := openDB(t)
	lists := NewGormTaskListRepository(db)
	items := NewGormTaskItemRepository(db)

	require.NoError(t, lists.Create(newList("shift-1",
		domain.TaskItem{Name: "remind", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(60), ReminderMinutesBefore: 15},
		domain.TaskItem{Name: "silent", CompletionType: domain.CompletionCheckbox, HasDeadline: true, Deadline: minutes(60)},
	)))

	candidates, err := items.FindPreReminderCandidates(nil, 100)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "remind", candidates[0].Name)

	require.NoError(t, items.MarkPreReminderSent(candidates[0].ID))
	candidates, err = items.FindPreReminderCandidates(nil, 100)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExpiredUnwarned(t *testing.T) {
	lists := NewGormTaskListRepository(openDB(t))

	list := newList("shift-1", domain.TaskItem{Name: "a", CompletionType: domain.CompletionCheckbox})
	require.NoError(t, lists.Create(list))

	found, err := lists.FindExpiredUnwarned(shiftStart.Add(7*time.Hour), 100)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = lists.FindExpiredUnwarned(shiftStart.Add(9*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, lists.MarkWarnedAndExpired(list.ID))
	found, err = lists.FindExpiredUnwarned(shiftStart.Add(9*time.Hour), 100)
	require.NoError(t, err)
	assert.Empty(t, found)

	loaded, err := lists.FindByID(list.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListStateExpired, loaded.State)
	assert.True(t, loaded.WarningSent)
}

func TestTransferItemsCreatesTargetAndExpiresOrigin(t *testing.T) {
	lists := NewGormTaskListRepository(openDB(t))

	origin := newList("shift-1", domain.TaskItem{Name: "a", CompletionType: domain.CompletionCheckbox})
	require.NoError(t, lists.Create(origin))

	target := newList("shift-2")
	target.ShiftStart = shiftStart.Add(8 * time.Hour)
	target.ShiftEnd = shiftStart.Add(16 * time.Hour)
	copies := []domain.TaskItem{
		{Name: domain.HandoffPrefix + "a", CompletionType: domain.CompletionCheckbox, Subtasks: []domain.Subtask{{Name: "x", IsDone: true}}},
	}
	require.NoError(t, lists.TransferItems(origin.ID, target, copies))
	require.NotEmpty(t, target.ID)
	assert.Equal(t, 1, target.TotalTasks)

	loaded, err := lists.FindByID(target.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.True(t, loaded.Items[0].IsHandoff())
	require.Len(t, loaded.Items[0].Subtasks, 1)
	assert.True(t, loaded.Items[0].Subtasks[0].IsDone)

	expired, err := lists.FindByID(origin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListStateExpired, expired.State)
}

func TestFindOverlappingAndAverageScore(t *testing.T) {
	db := openDB(t)
	lists := NewGormTaskListRepository(db)

	morning := newList("shift-1", domain.TaskItem{Name: "a", CompletionType: domain.CompletionCheckbox, State: domain.ItemStateDone})
	require.NoError(t, lists.Create(morning))

	evening := newList("shift-2",
		domain.TaskItem{Name: "a", CompletionType: domain.CompletionCheckbox},
		domain.TaskItem{Name: "b", CompletionType: domain.CompletionCheckbox, State: domain.ItemStateDone},
	)
	evening.ShiftStart = shiftStart.Add(10 * time.Hour)
	evening.ShiftEnd = shiftStart.Add(14 * time.Hour)
	evening.LocationID = "loc-2"
	require.NoError(t, lists.Create(evening))

	draft := newList("shift-3")
	draft.State = domain.ListStateDraft
	draft.EmployeeID = "emp-2"
	require.NoError(t, lists.Create(draft))

	found, err := lists.FindOverlapping("emp-1", shiftStart.Add(-30*time.Minute), shiftStart.Add(8*time.Hour+30*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, morning.ID, found[0].ID)

	avg, count, err := lists.AverageScore("emp-1", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.InDelta(t, 75, avg, 0.001)

	avg, count, err = lists.AverageScore("", "loc-2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.InDelta(t, 50, avg, 0.001)

	avg, count, err = lists.AverageScore("emp-2", "")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, avg)
}

func TestTemplateRepository(t *testing.T) {
	templates := NewGormTemplateRepository(openDB(t))

	tpl := &domain.TaskListTemplate{
		Name:           "Closing",
		RoleIDs:        []string{"cook"},
		CheckoutPolicy: domain.CheckoutPolicyWarn,
		Active:         true,
		TaskTemplates: []domain.TaskTemplate{
			{Name: "Mop", Sequence: 20, CompletionType: domain.CompletionCheckbox},
			{Name: "Fridge", Sequence: 10, CompletionType: domain.CompletionNumeric,
				SubtaskTemplates: []domain.SubtaskTemplate{{Name: "Walk-in", Sequence: 20}, {Name: "Bar", Sequence: 10}}},
		},
	}
	require.NoError(t, templates.Create(tpl))

	loaded, err := templates.FindByID(tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cook"}, []string(loaded.RoleIDs))
	require.Len(t, loaded.TaskTemplates, 2)
	assert.Equal(t, "Fridge", loaded.TaskTemplates[0].Name)
	assert.Equal(t, "Bar", loaded.TaskTemplates[0].SubtaskTemplates[0].Name)

	require.NoError(t, templates.SetActive(tpl.ID, false))
	active, err := templates.FindAll(true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := templates.FindAll(false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, templates.Delete(tpl.ID))
	_, err = templates.FindByID(tpl.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, templates.Delete(tpl.ID), domain.ErrNotFound)
	assert.ErrorIs(t, templates.SetActive("missing", true), domain.ErrNotFound)
}

func TestEscalationRuleRepository(t *testing.T) {
	rules := NewGormEscalationRuleRepository(openDB(t))

	for _, r := range []*domain.EscalationRule{
		{Level: 3, DelayMinutes: 30, RecipientType: domain.RecipientAssigneeManager, Active: true},
		{Level: 1, DelayMinutes: 0, RecipientType: domain.RecipientAssignee, Active: true},
		{Level: 2, DelayMinutes: 15, RecipientType: domain.RecipientDepartmentManager, Active: false},
	} {
		require.NoError(t, rules.Create(r))
	}

	active, err := rules.FindActive()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, 1, active[0].Level)
	assert.Equal(t, 3, active[1].Level)

	all, err := rules.FindAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, rules.Delete(all[0].ID))
	assert.ErrorIs(t, rules.Delete(all[0].ID), domain.ErrNotFound)
}
