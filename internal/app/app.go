package app

import (
	"context"
	"log"

	"shifttask-backend/internal/audit"
	"shifttask-backend/internal/auth"
	directorydomain "shifttask-backend/internal/directory/domain"
	directoryrepo "shifttask-backend/internal/directory/repository"
	"shifttask-backend/internal/notification"
	shiftdomain "shifttask-backend/internal/shift/domain"
	shiftrepo "shifttask-backend/internal/shift/repository"
	"shifttask-backend/internal/shift/subscriber"
	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/repository"
	"shifttask-backend/internal/task/scheduler"
	"shifttask-backend/internal/task/usecase"
	"shifttask-backend/pkg/config"
	"shifttask-backend/pkg/database"
	"shifttask-backend/pkg/fcm"
	"shifttask-backend/pkg/mailer"
	"shifttask-backend/pkg/sms"

	"gorm.io/gorm"
)

// App holds the wired components shared by the API server and the CLI
type App struct {
	Config *config.Config
	DB     *gorm.DB

	TemplateRepo repository.TemplateRepository
	ListRepo     repository.TaskListRepository
	ItemRepo     repository.TaskItemRepository
	RuleRepo     repository.EscalationRuleRepository
	Shifts       shiftrepo.ShiftRepository
	Employees    directoryrepo.EmployeeRepository
	PushTokens   directoryrepo.PushTokenRepository
	Activities   notification.ActivityRepository
	Audit        *audit.Log

	Notifier    *notification.Dispatcher
	Templates   *usecase.TemplateUsecase
	Generator   *usecase.Generator
	Lists       *usecase.ListUsecase
	Items       *usecase.ItemUsecase
	Handoff     *usecase.HandoffEngine
	Checkout    *usecase.CheckoutGate
	Sweeper     *scheduler.Sweeper
	ShiftEvents *subscriber.EventHandler
	Tokens      *auth.TokenService
}

// Models lists every persisted type, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.TaskListTemplate{}, &domain.TaskTemplate{}, &domain.SubtaskTemplate{},
		&domain.TaskList{}, &domain.TaskItem{}, &domain.Subtask{},
		&domain.EscalationRule{},
		&shiftdomain.Shift{},
		&directorydomain.Employee{}, &directorydomain.Department{}, &directorydomain.PushToken{},
		&notification.Activity{},
		&audit.Note{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Open connects to the configured database, migrates it and wires the components.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return New(cfg, db, senders(ctx, cfg, db)...), nil
}

// New wires the components over an open database. Tests pass recording senders.
func New(cfg *config.Config, db *gorm.DB, senders ...notification.Sender) *App {
	a := &App{
		Config:       cfg,
		DB:           db,
		TemplateRepo: repository.NewGormTemplateRepository(db),
		ListRepo:     repository.NewGormTaskListRepository(db),
		ItemRepo:     repository.NewGormTaskItemRepository(db),
		RuleRepo:     repository.NewGormEscalationRuleRepository(db),
		Shifts:       shiftrepo.NewGormShiftRepository(db),
		Employees:    directoryrepo.NewEmployeeRepository(db),
		PushTokens:   directoryrepo.NewPushTokenRepository(db),
		Activities:   notification.NewGormActivityRepository(db),
		Audit:        audit.NewLog(db),
		Tokens:       auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry),
	}

	a.Notifier = notification.NewDispatcher(senders...)
	a.Templates = usecase.NewTemplateUsecase(a.TemplateRepo, a.RuleRepo)
	a.Generator = usecase.NewGenerator(a.TemplateRepo, a.ListRepo, a.Shifts, a.Employees)
	a.Lists = usecase.NewListUsecase(a.ListRepo, a.Employees, a.Audit)
	a.Items = usecase.NewItemUsecase(a.ItemRepo, a.ListRepo, a.Audit)
	a.Handoff = usecase.NewHandoffEngine(a.TemplateRepo, a.ListRepo, a.Shifts, a.Employees, a.Audit, usecase.HandoffConfig{
		Window:     cfg.HandoffWindow,
		Lookahead:  cfg.HandoffLookahead,
		EarlyStart: cfg.HandoffEarlyStart,
		BatchSize:  cfg.SweepBatchSize,
	})
	a.Checkout = usecase.NewCheckoutGate(a.ListRepo, a.Audit, cfg.CheckoutBuffer)
	a.ShiftEvents = subscriber.NewEventHandler(a.Shifts, a.Generator)

	a.Sweeper = scheduler.NewSweeper(a.ListRepo, a.ItemRepo, a.RuleRepo, a.Employees, a.Notifier).
		WithHandoff(a.Handoff).
		WithGenerator(a.Generator, cfg.AutogenHorizon)
	a.Sweeper.SetBatchSize(cfg.SweepBatchSize)
	return a
}

// senders builds the configured notification channels. Unconfigured ones are left out
// and the dispatcher logs when a message asks for them.
func senders(ctx context.Context, cfg *config.Config, db *gorm.DB) []notification.Sender {
	activities := notification.NewGormActivityRepository(db)
	tokens := directoryrepo.NewPushTokenRepository(db)

	var inApp *notification.InAppSender
	if cfg.FirebaseCredentials != "" {
		client, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			inApp = notification.NewInAppSender(activities, nil, nil)
		} else {
			inApp = notification.NewInAppSender(activities, tokens, client)
		}
	} else {
		log.Printf("[WARN] No Firebase credentials configured, push notifications disabled")
		inApp = notification.NewInAppSender(activities, nil, nil)
	}
	out := []notification.Sender{inApp}

	mailCfg := mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		TLS:      cfg.SMTPTLS,
	}
	if mailCfg.Enabled() {
		out = append(out, notification.NewEmailSender(mailer.NewClient(mailCfg)))
	} else {
		log.Printf("[WARN] SMTP not configured, email notifications disabled")
	}

	if cfg.SMSGatewayURL != "" {
		out = append(out, notification.NewSMSSender(sms.NewClient(cfg.SMSGatewayURL, cfg.SMSAPIKey, cfg.SMSSender)))
	} else {
		log.Printf("[WARN] SMS gateway not configured, SMS notifications disabled")
	}
	return out
}

// NewScheduler builds the cron scheduler over the app's sweeper.
func (a *App) NewScheduler() *scheduler.Scheduler {
	return scheduler.NewScheduler(a.Sweeper, a.Config.SweepSchedule)
}

// StartSubscriber starts the Pub/Sub shift subscription when a project is configured.
// It returns nil when Pub/Sub is disabled.
func (a *App) StartSubscriber(ctx context.Context) *subscriber.Subscriber {
	if a.Config.GoogleProjectID == "" {
		log.Printf("[WARN] GoogleProjectID not configured, shift subscription disabled")
		return nil
	}
	sub, err := subscriber.NewSubscriber(ctx, a.Config.GoogleProjectID, a.Config.ShiftPubSubTopic, a.Config.GoogleCredentials, a.ShiftEvents)
	if err != nil {
		log.Printf("[ERROR] Failed to initialize shift subscriber: %v", err)
		return nil
	}
	go sub.Start(ctx)
	return sub
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
