package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/benbjohnson/clock"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models/config"
	"rallypoint-bot/internal/notify"
	"rallypoint-bot/internal/repository/event"
	"rallypoint-bot/internal/repository/reminder"
	"rallypoint-bot/internal/repository/rsvp"
	"rallypoint-bot/internal/repository/template"
	"rallypoint-bot/internal/scheduler"
	event_service "rallypoint-bot/internal/service/event"
	reminder_service "rallypoint-bot/internal/service/reminder"
	rsvp_service "rallypoint-bot/internal/service/rsvp"
	"rallypoint-bot/internal/web"
	database "rallypoint-bot/pkg"

	"github.com/jmoiron/sqlx"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newClock,
			database.NewPostgres,
			template.NewTemplateRepository,
			event.NewEventRepository,
			reminder.NewReminderRepository,
			rsvp.NewRSVPRepository,
			notify.NewTelegramNotifier,
			reminder_service.NewReminderService,
			event_service.NewEventService,
			rsvp_service.NewRSVPService,
			scheduler.New,
			web.NewHandler,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(registerHooks),
	)
	app.Run()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newClock() clock.Clock {
	return clock.New()
}

func registerHooks(
	lc fx.Lifecycle,
	db *sqlx.DB,
	sched *scheduler.Scheduler,
	handler *web.Handler,
	cfg *config.Config,
	log *zap.Logger,
) {
	server := &http.Server{Addr: cfg.HTTPListen, Handler: handler.Router()}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := database.Migrate(db); err != nil {
				return err
			}
			if err := sched.Start(); err != nil {
				return err
			}
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("started", zap.String("listen", cfg.HTTPListen), zap.String("environment", cfg.Environment))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop()
			if err := server.Shutdown(ctx); err != nil {
				return err
			}
			return db.Close()
		},
	})
}
