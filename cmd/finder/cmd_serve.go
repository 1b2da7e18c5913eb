package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/listeverything/finder/internal/alerting"
	"github.com/listeverything/finder/internal/api"
	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/datastore"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
	"github.com/listeverything/finder/internal/notification"
	"github.com/listeverything/finder/internal/observability"
	"github.com/listeverything/finder/internal/searches"
	"github.com/listeverything/finder/internal/world"
)

const (
	senderTimeout   = 10 * time.Second
	snapshotTimeout = 10 * time.Second
)

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the alert scheduler and HTTP API",
		Long: `Run the alert scheduler against the world file and serve the HTTP API.
The host clock advances one tick every server.tick_interval; alerts are
checked every alerts.period_ticks. SIGUSR1 toggles pause.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			log, closer, err := newLogger(settings)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, settings, log)
		},
	}
}

func serve(ctx context.Context, settings *conf.Settings, log logger.Logger) error {
	w, err := openWorld(settings)
	if err != nil {
		return err
	}

	db, err := datastore.Open(settings.Database, debug)
	if err != nil {
		return err
	}
	defer func() {
		if err := datastore.Close(db); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	ev := filter.NewEvaluator(world.Sources(), log)
	ev.GodMode = settings.GodMode
	ev.Metrics = metrics

	// Alert delivery runs on the event bus, off the tick path.
	bell := notification.NewService(nil)
	senders, closeSenders := buildSenders(settings, log)
	defer closeSenders()

	dispatcher := alerting.NewActionDispatcher(bell, alerting.Templates{
		Title:   settings.Alerts.TitleTemplate,
		Message: settings.Alerts.MessageTemplate,
	}, log, senders...)
	bus := alerting.NewAlertEventBus()
	defer bus.Stop()
	bus.Subscribe(dispatcher.Dispatch)

	policy := alerting.PauseFreeze
	if settings.Alerts.PausePolicy == conf.PausePolicyContinue {
		policy = alerting.PauseContinue
	}
	alertRepo := repository.NewAlertRepository(db)
	sched := alerting.NewScheduler(ev, w,
		alerting.WithPeriod(settings.Alerts.PeriodTicks),
		alerting.WithPausePolicy(policy),
		alerting.WithMaxCulprits(settings.Alerts.MaxCulprits),
		alerting.WithRepository(alertRepo),
		alerting.WithLogger(log),
		alerting.WithMetrics(metrics),
		alerting.WithAction(func(r alerting.Report) { bus.Publish(r.Event()) }),
	)
	defer sched.Stop()

	if err := sched.Restore(ctx); err != nil {
		return err
	}
	w.OnMapRemoved(func(key string) {
		if n := sched.RemoveContext(key); n > 0 {
			log.Info("alerts removed with map", logger.String("map", key), logger.Int("count", n))
		}
	})
	sched.StartHistoryCleanup(settings.Alerts.HistoryRetentionDays)

	ctrl := api.New(&api.Options{
		Evaluator:     ev,
		Contexts:      w,
		Searches:      searches.NewLibrary(repository.NewSearchRepository(db), nil, log),
		Scheduler:     sched,
		AlertRepo:     alertRepo,
		Notifications: bell,
		Metrics:       metrics.Handler(),
		GodMode:       settings.GodMode,
		Logger:        log,
	})

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ctrl.Start(runCtx, settings.Server.Listen)
		stopRun()
	}()

	runClock(runCtx, sched, settings.Server.TickInterval.Std(), log)

	snapCtx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := sched.Snapshot(snapCtx); err != nil {
		log.Error("failed to snapshot alerts", logger.Error(err))
	}

	if err := <-serverErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// runClock advances the host tick until ctx is done. SIGUSR1 toggles pause.
func runClock(ctx context.Context, sched *alerting.Scheduler, interval time.Duration, log logger.Logger) {
	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, syscall.SIGUSR1)
	defer signal.Stop(pauseCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var now int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-pauseCh:
			paused := !sched.Paused()
			sched.SetPaused(now, paused)
			log.Info("scheduler pause toggled", logger.Bool("paused", paused), logger.Int64("tick", now))
		case <-ticker.C:
			now++
			sched.Tick(now)
		}
	}
}

// buildSenders creates the external alert targets from settings.
func buildSenders(settings *conf.Settings, log logger.Logger) ([]alerting.Sender, func()) {
	var senders []alerting.Sender
	closeFn := func() {}

	if len(settings.Alerts.Targets) > 0 {
		p := notification.NewShoutrrrProvider("targets", true, settings.Alerts.Targets, senderTimeout)
		if err := p.ValidateConfig(); err != nil {
			log.Error("alert targets disabled", logger.Error(err))
		} else {
			senders = append(senders, p)
		}
	}
	if settings.Alerts.MQTT.Enabled {
		pub := notification.NewMQTTPublisher(settings.Alerts.MQTT, log)
		senders = append(senders, pub)
		closeFn = pub.Close
	}
	return senders, closeFn
}
