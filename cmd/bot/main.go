package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"github.com/Proton-105/anime-bot/internal/access"
	"github.com/Proton-105/anime-bot/internal/bot"
	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/broadcast"
	"github.com/Proton-105/anime-bot/internal/catalog"
	"github.com/Proton-105/anime-bot/internal/database"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/health"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/idempotency"
	"github.com/Proton-105/anime-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/anime-bot/internal/jobs/handlers"
	"github.com/Proton-105/anime-bot/internal/ledger"
	"github.com/Proton-105/anime-bot/internal/lifecycle"
	"github.com/Proton-105/anime-bot/internal/middleware"
	"github.com/Proton-105/anime-bot/internal/ratelimit"
	"github.com/Proton-105/anime-bot/internal/repository"
	"github.com/Proton-105/anime-bot/internal/settings"
	"github.com/Proton-105/anime-bot/internal/state"
	"github.com/Proton-105/anime-bot/internal/user"
	"github.com/Proton-105/anime-bot/pkg/config"
	"github.com/Proton-105/anime-bot/pkg/graceful"
	"github.com/Proton-105/anime-bot/pkg/logger"
	"github.com/Proton-105/anime-bot/pkg/metrics"
	"github.com/Proton-105/anime-bot/pkg/redis"
)

const (
	rateLimitCleanupInterval   = time.Minute
	rateLimitMaxAge            = time.Hour
	idempotencyCleanupInterval = time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "anime-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.InitSentry(*cfg); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer sentry.Flush(2 * time.Second)

	log, level := logger.New(*cfg)
	slog.SetDefault(log)

	config.Watch(v, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
		log.Info("config reloaded", slog.String("log_level", next.Logger.Level))
	}, func(err error) {
		log.Warn("ignoring invalid config change", slog.Any("error", err))
	})

	log.Info("starting anime bot",
		slog.String("mode", cfg.Bot.Mode),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("ops_addr", cfg.Server.Port),
	)

	shutdown := lifecycle.NewShutdown(log)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	shutdown.Close("database", db)

	if err := database.NewMigrator(db, log).ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
		_ = shutdown.Execute(context.Background())
		return fmt.Errorf("apply migrations: %w", err)
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}
	shutdown.Close("redis", rdb)

	texts, err := i18n.LoadFromDir(cfg.I18n.Dir, cfg.I18n.DefaultLang)
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}

	admins := access.NewRegistry(rdb.Client, cfg.Admin.PrimaryID, log)
	if err := admins.Seed(ctx, cfg.Admin.Seed); err != nil {
		_ = shutdown.Execute(context.Background())
		return fmt.Errorf("seed admins: %w", err)
	}

	users := user.NewService(repository.NewUserRepository(db, log), log)
	catalogService := catalog.NewService(
		repository.NewTitleRepository(db, log),
		repository.NewEpisodeRepository(db, log),
		log,
		catalog.Options{
			SearchLimit: cfg.Catalog.SearchLimit,
			BrowseLimit: cfg.Catalog.BrowseLimit,
			PageSize:    cfg.Catalog.PageSize,
		},
	)
	ledgerService := ledger.NewService(
		repository.NewLedgerRepository(db, log),
		admins,
		ledger.Options{BasePrice: cfg.Ledger.VIPPrice, PlanDays: cfg.Ledger.PlanDays},
		log,
	)
	toggles := settings.NewToggles(rdb.Client, log)

	stateStorage := state.NewRedisStorage(rdb.Client, log, cfg.State.SessionTTL)
	fsm := state.NewStateMachineWithLockTTL(stateStorage, log, rdb.Client, cfg.State.LockTTL)
	state.RegisterTransitionRecorder(metrics.RecordStateTransition)

	memoryLimiter := ratelimit.NewMemoryLimiter()
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Client, log), memoryLimiter, log)
	rateLimit := middleware.NewRateLimitMiddleware(
		limiter,
		ratelimit.NewRules(cfg.RateLimit),
		bot.RateLimitClassifier(admins),
		bot.RateLimitMessage(texts),
		log,
	)

	tb, err := bot.NewTelebot(*cfg)
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}
	sender := bot.NewSender(tb)

	b, err := bot.New(tb, handlers.Deps{
		Users:     users,
		Catalog:   catalogService,
		Ledger:    ledgerService,
		Admins:    admins,
		Toggles:   toggles,
		FSM:       fsm,
		Fanout:    broadcast.NewFanout(sender, cfg.Broadcast.Interval, cfg.Broadcast.Burst, log),
		I18n:      texts,
		Validator: state.Validator{MaxClipSeconds: cfg.Catalog.MaxClipSecs},
		Currency:  cfg.Ledger.Currency,
		StartedAt: time.Now(),
		Log:       log,
	}, bot.Options{
		Errors:      apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Idempotency: idempotency.NewManager(idempotency.NewRedisStore(rdb.Client, log), log),
		RateLimit:   rateLimit,
	})
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}

	go state.NewCleaner(stateStorage, log, cfg.State.SessionTTL, cfg.State.CleanupInterval).Run(ctx)
	go metrics.NewStateCollector(fsm).Run(ctx)
	go ratelimit.NewCleaner(rdb.Client, log, rateLimitCleanupInterval, rateLimitMaxAge).WithMemory(memoryLimiter).Run(ctx)
	go idempotency.NewCleaner(rdb.Client, log, idempotencyCleanupInterval, middleware.UpdateTTL).Run(ctx)

	if cfg.Jobs.Enabled {
		if err := startJobs(cfg, rdb.QueueOpt(), ledgerService, sender, texts, shutdown, log); err != nil {
			_ = shutdown.Execute(context.Background())
			return err
		}
	}

	checker := health.NewChecker(log)
	checker.Register("database", health.Database(db))
	checker.Register("redis", health.Redis(rdb))
	checker.Register("telegram", health.Telegram(tb))

	ops := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           health.NewRouter(checker, log),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)
	go func() {
		if err := ops.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server stopped", slog.Any("error", err))
		}
	}()

	go b.Start()
	shutdown.Register("telegram bot", func(context.Context) error {
		b.Stop()
		return nil
	})

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func startJobs(
	cfg *config.Config,
	redisOpt asynq.RedisClientOpt,
	ledgerService *ledger.Service,
	sender *bot.Sender,
	texts *i18n.Manager,
	shutdown *lifecycle.Shutdown,
	log *slog.Logger,
) error {
	queue := jobs.NewManager(redisOpt, log)
	shutdown.Close("jobs queue", queue)

	worker := jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeExpirySweep, jobhandlers.NewExpirySweepHandler(ledgerService, queue, log))
	worker.RegisterHandler(jobs.TaskTypeExpiryNotice, jobhandlers.NewExpiryNoticeHandler(sender, texts.Default().T("messages.vip_expired"), log))

	scheduler := jobs.NewScheduler(redisOpt, cfg.Jobs.ExpirySweepCron, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return fmt.Errorf("register scheduled tasks: %w", err)
	}

	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()
	scheduler.Run()

	shutdown.Register("jobs", func(context.Context) error {
		scheduler.Shutdown()
		worker.Shutdown()
		return nil
	})

	return nil
}
