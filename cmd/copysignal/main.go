package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alejandrodnm/copysignal/config"
	"github.com/alejandrodnm/copysignal/internal/adapters/notify"
	"github.com/alejandrodnm/copysignal/internal/adapters/polymarket"
	"github.com/alejandrodnm/copysignal/internal/adapters/storage"
	"github.com/alejandrodnm/copysignal/internal/leaderboard"
	"github.com/alejandrodnm/copysignal/internal/livepicks"
	"github.com/alejandrodnm/copysignal/internal/metrics"
	"github.com/alejandrodnm/copysignal/internal/ports"
	"github.com/alejandrodnm/copysignal/internal/publisher"
	"github.com/alejandrodnm/copysignal/internal/scheduler"
	"github.com/alejandrodnm/copysignal/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file (optional)")
	once := flag.Bool("once", false, "run one pipeline pass and exit")
	daily := flag.Bool("daily", false, "run the daily job (summary + leaderboard) once and exit")
	seed := flag.String("seed", "", "comma-separated proxy addresses to add and seed")
	status := flag.Bool("status", false, "print tracked wallets and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	app, err := wire(cfg, store)
	if err != nil {
		slog.Error("failed to wire services", "err", err)
		os.Exit(1)
	}

	switch {
	case *status:
		wallets, err := store.ListWallets(ctx)
		if err != nil {
			slog.Error("failed to list wallets", "err", err)
			os.Exit(1)
		}
		notify.PrintWallets(os.Stdout, wallets)
		return

	case *seed != "":
		rep, err := app.ingestor.Seed(ctx, strings.Split(*seed, ","))
		if err != nil {
			slog.Error("seed failed", "err", err)
			os.Exit(1)
		}
		slog.Info("seed complete", "inserted", rep.Inserted, "seeded", rep.Seeded)
		return

	case *daily:
		if err := app.daily.Run(ctx); err != nil {
			slog.Error("daily job failed", "err", err)
			os.Exit(1)
		}
		return

	case *once:
		if _, err := app.scheduler.Tick(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	slog.Info("copysignal starting",
		"config", *configPath,
		"interval", cfg.PollInterval(),
		"workers", cfg.Scheduler.Workers,
		"timezone", cfg.Scheduler.Timezone,
		"telegram", cfg.TelegramEnabled(),
		"reprocess", cfg.Scheduler.Reprocess,
		"force_send", cfg.Signals.ForceSend,
	)

	if err := run(ctx, cfg, store, app); err != nil {
		slog.Error("copysignal exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("copysignal stopped cleanly")
}

// services agrupa los componentes ya cableados.
type services struct {
	scheduler *scheduler.Scheduler
	ingestor  *leaderboard.Ingestor
	daily     *scheduler.DailyJob
}

func wire(cfg *config.Config, store *storage.SQLStorage) (*services, error) {
	client := polymarket.NewClient(polymarket.Options{
		DataBase:   cfg.API.DataBase,
		TradesBase: cfg.API.TradesBase,
		EventsBase: cfg.API.EventsBase,
		Timeout:    cfg.HTTPTimeout(),
		Retries:    cfg.API.Retries,
	})

	var chat ports.ChatPublisher = notify.NewConsole()
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(notify.TelegramOptions{
			Token:  cfg.Telegram.BotToken,
			ChatID: cfg.Telegram.ChatID,
		})
		if err != nil {
			return nil, err
		}
		chat = tg
	} else {
		slog.Warn("telegram not configured, publishing to console")
	}

	reconciler := tracker.NewReconciler(tracker.Config{WinRateThreshold: cfg.Signals.WinRateThreshold}, client, store, store)
	builder := livepicks.NewBuilder(cfg.Signals.WinRateThreshold, store, store, store)
	evaluator := metrics.NewEvaluator(metrics.Config{
		LosingStreakThreshold: cfg.Signals.LosingStreakThreshold,
		WinRateThreshold:      cfg.Signals.WinRateThreshold,
	}, store, store)
	pub := publisher.New(publisher.Config{
		MinWallets: cfg.Signals.MinWalletsForSignal,
		Ladder:     cfg.Ladder(),
		ForceSend:  cfg.Signals.ForceSend,
		NotesSlug:  cfg.Signals.NotesSlug,
	}, store, store, store, chat)

	pipeline := scheduler.NewPipeline(scheduler.PipelineConfig{
		Workers:   cfg.Scheduler.Workers,
		Reprocess: cfg.Scheduler.Reprocess,
	}, store, reconciler, tracker.NewBackfiller(client, store), builder, evaluator, pub)

	ingestor := leaderboard.NewIngestor(leaderboard.Config{
		Categories: cfg.Leaderboard.Categories,
		Periods:    cfg.Leaderboard.Periods,
		Limit:      cfg.Leaderboard.Limit,
		PnLMin:     cfg.Leaderboard.PnLMin,
		VolMult:    cfg.Leaderboard.VolMult,
	}, client, store, reconciler)

	return &services{
		scheduler: scheduler.New(cfg.PollInterval(), pipeline),
		ingestor:  ingestor,
		daily:     scheduler.NewDailyJob(publisher.NewSummarizer(store, chat, cfg.Location()), ingestor),
	}, nil
}

// run arranca el servidor de salud, los jobs cron y el loop hasta recibir una señal.
func run(ctx context.Context, cfg *config.Config, store *storage.SQLStorage, app *services) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           scheduler.NewHealthRouter(store),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("health server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server failed", "err", err)
		}
	}()

	runner := scheduler.NewCronRunner(context.WithoutCancel(ctx), cfg.Location())
	if _, err := runner.Add(cfg.Scheduler.DailyCron, "daily", app.daily.Run); err != nil {
		return err
	}
	if _, err := runner.Add("@every 60s", "heartbeat", func(context.Context) error {
		app.scheduler.Heartbeat()
		return nil
	}); err != nil {
		return err
	}
	runner.Start()

	err := app.scheduler.Run(ctx)

	runner.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("health server shutdown", "err", serr)
	}
	return err
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
