package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crm_assistant_backend/internal/chat"
	"crm_assistant_backend/internal/crm"
	"crm_assistant_backend/internal/events"
	apphttp "crm_assistant_backend/internal/http"
	"crm_assistant_backend/internal/http/router"
	"crm_assistant_backend/internal/scheduler"
	"crm_assistant_backend/migrations"
	"crm_assistant_backend/platform/ai/gateway"
	"crm_assistant_backend/platform/config"
	"crm_assistant_backend/platform/db"
	"crm_assistant_backend/platform/frdate"
	"crm_assistant_backend/platform/logger"
	"crm_assistant_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		panic("invalid timezone " + cfg.Timezone + ": " + err.Error())
	}

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.Migrate(cfg.DatabaseURL, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	dates := frdate.NewParser(loc)

	// Reminder scheduling is optional; without Redis the reminders stay
	// queryable but are never pushed.
	if reminderClient, err := scheduler.NewClient(cfg); err != nil {
		log.Warn("reminder scheduling disabled", "reason", err.Error())
	} else {
		defer reminderClient.Close()
		reminderClient.SubscribeReminders(eventBus, log)
		log.Info("reminder scheduling enabled", "queue", cfg.QueueName)
	}

	crmModule := crm.NewModule(pool, val, log, dates, eventBus)

	gw := gateway.NewClient(gateway.Config{
		APIKey:  cfg.GatewayAPIKey,
		BaseURL: cfg.GatewayBaseURL,
		Model:   cfg.GatewayModel,
	})
	chatModule, err := chat.NewModule(gw, crmModule.Service(), val, log)
	if err != nil {
		log.Error("failed to initialize chat module", "error", err)
		panic("failed to initialize chat module: " + err.Error())
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			crmModule,
			chatModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Warn(name+" failed, retrying", "attempt", attempt, "error", lastErr.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
