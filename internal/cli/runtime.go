package cli

import (
	"database/sql"
	"fmt"

	"finance_automation/internal/app"
	"finance_automation/internal/clock"
	"finance_automation/internal/domain/push"
	"finance_automation/internal/infra/cache"
	"finance_automation/internal/infra/config"
	idb "finance_automation/internal/infra/database"
	"finance_automation/internal/infra/lease"
	"finance_automation/internal/infra/logger"
	"finance_automation/internal/infra/scheduler"
	"finance_automation/internal/infra/telegram"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// runtime owns every long-lived resource of a serve or run invocation.
type runtime struct {
	cfg       *config.AppConfig
	db        *sql.DB
	redis     *redis.Client
	settings  *cache.SettingsCache
	scheduler *scheduler.NotificationScheduler
	log       *logrus.Entry
}

func newRuntime(cfg *config.AppConfig) (rt *runtime, err error) {
	rt = &runtime{cfg: cfg, log: logger.Component("main")}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.db, err = idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	rt.log.Info("Database connection established successfully.")

	financeRepo := idb.NewPostgresFinanceRepository(rt.db)
	eventRepo := idb.NewPostgresEventRepository(rt.db)
	notificationRepo := idb.NewPostgresNotificationRepository(rt.db)
	userRepo := idb.NewPostgresUserRepository(rt.db)

	zones, err := clock.NewZones(cfg.DefaultTimeZone)
	if err != nil {
		return nil, err
	}

	rt.settings, err = cache.NewSettingsCache(app.NewRepositorySettings(notificationRepo), cfg.SettingsTTL.Duration())
	if err != nil {
		return nil, err
	}

	pushClient, err := newPushClient(cfg, rt.log)
	if err != nil {
		return nil, err
	}
	dispatcher := app.NewNotificationDispatcher(pushClient, notificationRepo, logger.Component("dispatcher"))

	svc := &services{
		recurrence: app.NewRecurrenceService(financeRepo, clock.SystemClock{}, logger.Component("recurrence")),
		reminders: app.NewReminderService(eventRepo, userRepo, notificationRepo, rt.settings, dispatcher,
			zones, clock.SystemClock{}, logger.Component("reminders")),
		rollover: app.NewRolloverService(eventRepo, rt.settings, zones, clock.SystemClock{}, logger.Component("rollover")),
	}

	var jobLease scheduler.Lease
	if cfg.RedisURL != "" {
		rt.redis, err = lease.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		jobLease = lease.NewRedisLease(rt.redis)
		rt.log.Info("Redis job lease enabled.")
	}
	guard := scheduler.NewGuard(jobLease, cfg.LeaseTTL.Duration(), logger.Component("guard"))

	rt.scheduler = scheduler.NewNotificationScheduler(guard, cfg.JobTimeout.Duration(), logger.Component("scheduler"))
	if err := registerJobs(rt.scheduler, cfg, svc); err != nil {
		return nil, err
	}
	return rt, nil
}

func registerJobs(s *scheduler.NotificationScheduler, cfg *config.AppConfig, svc *services) error {
	for _, spec := range jobSpecs(cfg, svc) {
		if err := s.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func newPushClient(cfg *config.AppConfig, log *logrus.Entry) (push.Client, error) {
	if cfg.TelegramToken == "" {
		log.Warn("TELEGRAM_TOKEN is not set. Push notifications will only be logged.")
		return telegram.NewLogClient(logger.Component("push")), nil
	}
	bot, err := telegram.NewBot(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	return telegram.NewTelebotAdapter(bot), nil
}

func (rt *runtime) Close() {
	if rt.settings != nil {
		rt.settings.Close()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}
