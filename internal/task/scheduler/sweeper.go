package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	directorydomain "shifttask-backend/internal/directory/domain"
	"shifttask-backend/internal/notification"
	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
	"shifttask-backend/internal/task/usecase"
)

// Sweep names accepted by Run
const (
	SweepOverdue = "overdue"
	SweepExpiry  = "expiry"
	SweepHandoff = "handoff"
	SweepAutogen = "autogen"
	SweepAll     = "all"
)

// ErrUnknownSweep is returned by Run for a name outside the sweep set.
var ErrUnknownSweep = errors.New("unknown sweep")

// DefaultBatchSize is how many records a sweep loads per page.
const DefaultBatchSize = 500

// Sweeper holds the periodic rules. It keeps no state between runs; every rule
// reads a fresh now and relies on the persisted sent flags.
type Sweeper struct {
	lists     repository.TaskListRepository
	items     repository.TaskItemRepository
	rules     repository.EscalationRuleRepository
	directory usecase.Directory
	notifier  usecase.Notifier

	handoff   *usecase.HandoffEngine
	generator *usecase.Generator
	horizon   time.Duration

	batchSize int
	now       usecase.Clock
}

// NewSweeper creates a new Sweeper
func NewSweeper(
	lists repository.TaskListRepository,
	items repository.TaskItemRepository,
	rules repository.EscalationRuleRepository,
	directory usecase.Directory,
	notifier usecase.Notifier,
) *Sweeper {
	return &Sweeper{
		lists:     lists,
		items:     items,
		rules:     rules,
		directory: directory,
		notifier:  notifier,
		batchSize: DefaultBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithHandoff enables the handoff sweep.
func (s *Sweeper) WithHandoff(engine *usecase.HandoffEngine) *Sweeper {
	s.handoff = engine
	return s
}

// WithGenerator enables the auto-generate sweep over shifts starting within horizon.
func (s *Sweeper) WithGenerator(generator *usecase.Generator, horizon time.Duration) *Sweeper {
	s.generator = generator
	s.horizon = horizon
	return s
}

func (s *Sweeper) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

func (s *Sweeper) SetClock(now usecase.Clock) {
	s.now = now
}

// Run executes one named sweep and returns the number of records acted on per rule.
func (s *Sweeper) Run(ctx context.Context, name string) (map[string]int, error) {
	switch name {
	case SweepOverdue:
		return s.SweepOverdue(ctx)
	case SweepExpiry:
		n, err := s.WarnExpired(ctx)
		return map[string]int{"expired": n}, err
	case SweepHandoff:
		n, err := s.Handoff(ctx)
		return map[string]int{"handed_off": n}, err
	case SweepAutogen:
		n, err := s.AutoGenerate(ctx)
		return map[string]int{"generated": n}, err
	case SweepAll:
		return s.RunAll(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSweep, name)
}

// RunAll runs every rule once. Handoff goes before expiry so lists that can be
// carried over are not closed by the warning first.
func (s *Sweeper) RunAll(ctx context.Context) (map[string]int, error) {
	report, err := s.SweepOverdue(ctx)
	if err != nil {
		log.Printf("[TaskScheduler] Overdue sweep failed: %v", err)
	}
	if report == nil {
		report = map[string]int{}
	}
	var errs []error
	errs = append(errs, err)

	steps := []struct {
		key string
		run func(context.Context) (int, error)
	}{
		{"handed_off", s.Handoff},
		{"expired", s.WarnExpired},
		{"generated", s.AutoGenerate},
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := step.run(ctx)
		if err != nil {
			log.Printf("[TaskScheduler] %s sweep failed: %v", step.key, err)
			errs = append(errs, err)
		}
		report[step.key] = n
	}
	return report, errors.Join(errs...)
}

// SweepOverdue runs the overdue notification, pre-deadline reminder and escalation rules.
func (s *Sweeper) SweepOverdue(ctx context.Context) (map[string]int, error) {
	report := map[string]int{}
	var errs []error

	n, err := s.CheckOverdue(ctx)
	report["overdue_notified"] = n
	errs = append(errs, err)

	n, err = s.SendPreDeadlineReminders(ctx)
	report["reminders_sent"] = n
	errs = append(errs, err)

	n, err = s.Escalate(ctx)
	report["escalations_sent"] = n
	errs = append(errs, err)

	return report, errors.Join(errs...)
}

// listCache avoids reloading the same list for every item of one sweep.
type listCache struct {
	lists repository.TaskListRepository
	byID  map[string]*domain.TaskList
}

func (s *Sweeper) newListCache() *listCache {
	return &listCache{lists: s.lists, byID: make(map[string]*domain.TaskList)}
}

func (c *listCache) get(id string) (*domain.TaskList, error) {
	if list, ok := c.byID[id]; ok {
		return list, nil
	}
	list, err := c.lists.FindByID(id)
	if err != nil {
		return nil, err
	}
	c.byID[id] = list
	return list, nil
}

// itemPage fetches one page of a deadline-ordered item query.
type itemPage func(after *repository.ItemCursor, limit int) ([]*domain.TaskItem, error)

// scan visits every row of fetch, batchSize rows at a time. Rows a rule cannot act on
// stay behind the cursor, so they never keep later rows out of the sweep.
func (s *Sweeper) scan(ctx context.Context, fetch itemPage, visit func(*domain.TaskItem)) error {
	var after *repository.ItemCursor
	for {
		page, err := fetch(after, s.batchSize)
		if err != nil {
			return err
		}
		for _, item := range page {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			visit(item)
		}
		if len(page) < s.batchSize {
			return nil
		}
		if after = repository.NextCursor(page); after == nil {
			return nil
		}
	}
}

// CheckOverdue notifies the assignee once per overdue item.
func (s *Sweeper) CheckOverdue(ctx context.Context) (int, error) {
	now := s.now()
	cache := s.newListCache()
	notified := 0
	fetch := func(after *repository.ItemCursor, limit int) ([]*domain.TaskItem, error) {
		return s.items.FindOverdueUnnotified(now, after, limit)
	}
	err := s.scan(ctx, fetch, func(item *domain.TaskItem) {
		list, err := cache.get(item.TaskListID)
		if err != nil {
			log.Printf("[TaskScheduler] Error loading list %s of task %s: %v", item.TaskListID, item.ID, err)
			return
		}

		assignee, err := s.directory.FindByID(list.EmployeeID)
		if err != nil {
			log.Printf("[TaskScheduler] Error loading assignee %s of task %s: %v", list.EmployeeID, item.ID, err)
			return
		}
		if assignee != nil {
			s.notifier.Dispatch(ctx, notification.FromEmployee(assignee), overdueMessage(item, list, now), notification.ChannelInApp)
		} else {
			log.Printf("[TaskScheduler] Task %s has no assignee, marking overdue notice as sent", item.ID)
		}

		if err := s.items.MarkReminderSent(item.ID); err != nil {
			log.Printf("[TaskScheduler] Error marking overdue notice sent for task %s: %v", item.ID, err)
			return
		}
		notified++
	})
	if err != nil {
		return notified, fmt.Errorf("overdue notices: %w", err)
	}
	if notified > 0 {
		log.Printf("[TaskScheduler] Sent %d overdue notices", notified)
	}
	return notified, nil
}

// SendPreDeadlineReminders fires the configured reminder before each deadline,
// on every channel the assignee can be reached on.
func (s *Sweeper) SendPreDeadlineReminders(ctx context.Context) (int, error) {
	now := s.now()
	cache := s.newListCache()
	sent := 0
	err := s.scan(ctx, s.items.FindPreReminderCandidates, func(item *domain.TaskItem) {
		if !item.PreReminderDue(now) {
			return
		}
		list, err := cache.get(item.TaskListID)
		if err != nil {
			log.Printf("[TaskScheduler] Error loading list %s of task %s: %v", item.TaskListID, item.ID, err)
			return
		}

		assignee, err := s.directory.FindByID(list.EmployeeID)
		if err != nil {
			log.Printf("[TaskScheduler] Error loading assignee %s of task %s: %v", list.EmployeeID, item.ID, err)
			return
		}
		if assignee != nil {
			to := notification.FromEmployee(assignee)
			s.notifier.Dispatch(ctx, to, reminderMessage(item, now), reachable(to)...)
		}

		if err := s.items.MarkPreReminderSent(item.ID); err != nil {
			log.Printf("[TaskScheduler] Error marking reminder sent for task %s: %v", item.ID, err)
			return
		}
		sent++
	})
	if err != nil {
		return sent, fmt.Errorf("pre-deadline reminders: %w", err)
	}
	if sent > 0 {
		log.Printf("[TaskScheduler] Sent %d pre-deadline reminders", sent)
	}
	return sent, nil
}

// Escalate fires each active rule whose delay has elapsed for an overdue item,
// at most once per level and item. Levels fire independently of each other.
func (s *Sweeper) Escalate(ctx context.Context) (int, error) {
	now := s.now()
	all, err := s.rules.FindActive()
	if err != nil {
		return 0, fmt.Errorf("find escalation rules: %w", err)
	}
	var rules []*domain.EscalationRule
	for _, rule := range all {
		if rule.Level >= 1 && rule.Level <= domain.MaxEscalationLevel {
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		return 0, nil
	}
	domain.SortRules(rules)

	cache := s.newListCache()
	fired := 0
	fetch := func(after *repository.ItemCursor, limit int) ([]*domain.TaskItem, error) {
		return s.items.FindEscalationCandidates(now, after, limit)
	}
	err = s.scan(ctx, fetch, func(item *domain.TaskItem) {
		list, err := cache.get(item.TaskListID)
		if err != nil {
			log.Printf("[TaskScheduler] Error loading list %s of task %s: %v", item.TaskListID, item.ID, err)
			return
		}
		if list.State != domain.ListStateActive {
			return
		}
		fired += s.escalateItem(ctx, item, list, rules, now)
	})
	if err != nil {
		return fired, fmt.Errorf("escalations: %w", err)
	}
	if fired > 0 {
		log.Printf("[TaskScheduler] Sent %d escalations", fired)
	}
	return fired, nil
}

func (s *Sweeper) escalateItem(ctx context.Context, item *domain.TaskItem, list *domain.TaskList, rules []*domain.EscalationRule, now time.Time) int {
	minutes := item.MinutesOverdue(now)
	fired := 0
	for _, rule := range rules {
		if !rule.AppliesTo(list.LocationID) {
			continue
		}
		if sent, ok := item.EscalationSent(rule.Level); !ok || sent {
			continue
		}
		if minutes < float64(rule.DelayMinutes) {
			continue
		}

		recipient, err := s.resolveRecipient(rule, list.EmployeeID)
		if err != nil {
			log.Printf("[TaskScheduler] Error resolving level %d recipient for task %s: %v", rule.Level, item.ID, err)
			continue
		}
		if recipient == nil || recipient.UserID == "" {
			continue
		}

		channels := []notification.Channel{notification.ChannelInApp}
		if rule.SendEmail {
			channels = append(channels, notification.ChannelEmail)
		}
		if rule.SendSMS {
			channels = append(channels, notification.ChannelSMS)
		}
		s.notifier.Dispatch(ctx, notification.FromEmployee(recipient), escalationMessage(item, list, rule, minutes), channels...)

		if err := s.items.MarkEscalationSent(item.ID, rule.Level); err != nil {
			log.Printf("[TaskScheduler] Error marking level %d sent for task %s: %v", rule.Level, item.ID, err)
			continue
		}
		item.MarkEscalationSent(rule.Level)
		fired++
	}
	return fired
}

func (s *Sweeper) resolveRecipient(rule *domain.EscalationRule, assigneeID string) (*directorydomain.Employee, error) {
	switch rule.RecipientType {
	case domain.RecipientAssignee:
		return s.directory.FindByID(assigneeID)
	case domain.RecipientDepartmentManager:
		return s.directory.FindDepartmentManager(assigneeID)
	case domain.RecipientAssigneeManager:
		return s.directory.FindManager(assigneeID)
	case domain.RecipientSpecificEmployee:
		return s.directory.FindByID(rule.SpecificEmployeeID)
	}
	return nil, nil
}

// WarnExpired sends the end-of-shift summary for unfinished lists and closes them.
func (s *Sweeper) WarnExpired(ctx context.Context) (int, error) {
	now := s.now()
	lists, err := s.lists.FindExpiredUnwarned(now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("find expired lists: %w", err)
	}

	expired := 0
	for _, list := range lists {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		assignee, err := s.directory.FindByID(list.EmployeeID)
		if err != nil {
			log.Printf("[TaskScheduler] Error loading assignee %s of list %s: %v", list.EmployeeID, list.ID, err)
			continue
		}
		if assignee != nil {
			s.notifier.Dispatch(ctx, notification.FromEmployee(assignee), expiredMessage(list), notification.ChannelInApp, notification.ChannelEmail)
		}

		if err := s.lists.MarkWarnedAndExpired(list.ID); err != nil {
			log.Printf("[TaskScheduler] Error expiring list %s: %v", list.ID, err)
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("[TaskScheduler] Expired %d incomplete task lists", expired)
	}
	return expired, nil
}

// Handoff delegates to the handoff engine when one is configured.
func (s *Sweeper) Handoff(ctx context.Context) (int, error) {
	if s.handoff == nil {
		return 0, nil
	}
	return s.handoff.Run(ctx, s.now())
}

// AutoGenerate delegates to the generator when one is configured.
func (s *Sweeper) AutoGenerate(ctx context.Context) (int, error) {
	if s.generator == nil || s.horizon <= 0 {
		return 0, nil
	}
	return s.generator.GenerateUpcoming(ctx, s.now(), s.horizon)
}

// reachable lists the channels the recipient has a handle for.
func reachable(to notification.Recipient) []notification.Channel {
	var channels []notification.Channel
	if to.UserID != "" {
		channels = append(channels, notification.ChannelInApp)
	}
	if to.Email != "" {
		channels = append(channels, notification.ChannelEmail)
	}
	if to.Phone != "" {
		channels = append(channels, notification.ChannelSMS)
	}
	return channels
}

func overdueMessage(item *domain.TaskItem, list *domain.TaskList, now time.Time) notification.Message {
	return notification.Message{
		Kind:       notification.KindOverdue,
		ResourceID: item.ID,
		Subject:    "Overdue task: " + item.Name,
		Body: fmt.Sprintf("Task %q in %s was due at %s. %s.",
			item.Name, list.Name, item.Deadline.Format("15:04"), item.TimeRemaining(now)),
	}
}

func reminderMessage(item *domain.TaskItem, now time.Time) notification.Message {
	return notification.Message{
		Kind:       notification.KindReminder,
		ResourceID: item.ID,
		Subject:    "Reminder: " + item.Name,
		Body:       fmt.Sprintf("Task %q is due at %s (%s).", item.Name, item.Deadline.Format("15:04"), item.TimeRemaining(now)),
	}
}

func escalationMessage(item *domain.TaskItem, list *domain.TaskList, rule *domain.EscalationRule, minutes float64) notification.Message {
	return notification.Message{
		Kind:       notification.KindEscalation,
		ResourceID: item.ID,
		Subject:    fmt.Sprintf("Escalation level %d: %s", rule.Level, item.Name),
		Body: fmt.Sprintf("Task %q in %s is %d minutes overdue.",
			item.Name, list.Name, int(minutes)),
	}
}

func expiredMessage(list *domain.TaskList) notification.Message {
	body := fmt.Sprintf("Your shift ended with %d of %d tasks completed (%.0f%%).",
		list.CompletedTasks, list.TotalTasks, list.CompletionScore)
	if names := list.IncompleteNames(); len(names) > 0 {
		body += " Incomplete: " + strings.Join(names, ", ") + "."
	}
	return notification.Message{
		Kind:       notification.KindListExpired,
		ResourceID: list.ID,
		Subject:    "Incomplete task list: " + list.Name,
		Body:       body,
	}
}
