package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mikailyan/moscow-zoo-bot/internal/app"
	"github.com/mikailyan/moscow-zoo-bot/internal/assets"
	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/config"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/memory"
	redisstore "github.com/mikailyan/moscow-zoo-bot/internal/infra/redis"
	"github.com/mikailyan/moscow-zoo-bot/internal/scoring"
	"github.com/mikailyan/moscow-zoo-bot/internal/telemetry"
	transport "github.com/mikailyan/moscow-zoo-bot/internal/transport/http"
	"github.com/mikailyan/moscow-zoo-bot/internal/transport/telegram"
)

const (
	serviceName = "moscow-zoo-bot"

	telegramRequestTimeout = 15 * time.Second
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	cat, err := openCatalog(ctx, cfg, pool)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "catalog", cat.ID(), "questions", cat.Len(), "source", cfg.Catalog.Source)

	grace := config.TTLDuration(cfg.Sessions.CompletedGrace, app.DefaultCompletedGrace)
	idle := config.TTLDuration(cfg.Sessions.IdleTimeout, 0)
	sweepEvery := config.TTLDuration(cfg.Sessions.SweepInterval, time.Minute)

	var store app.SessionRepository = memory.NewSessionStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		markerTTL := idle
		if markerTTL <= 0 {
			markerTTL = config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
		}
		redisSessions := redisstore.NewSessionStore(client, markerTTL, grace, logger)
		defer redisSessions.Close()
		store = redisSessions
	}

	seed, err := scoring.NewSeed()
	if err != nil {
		return err
	}
	engine := app.NewQuizEngine(cat, store, scoring.NewRandom(seed),
		app.WithLogger(logger),
		app.WithCompletedGrace(grace),
		app.WithIdleTimeout(idle),
	)
	images := assets.NewImageStore(cfg.Assets.ImagesDir)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewMux(transport.NewWSHandler(engine, cat, images, logger), images.Dir()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return engine.RunJanitor(gctx, sweepEvery)
	})

	if cfg.Telegram.Token != "" {
		if err := startTelegram(gctx, g, cfg, engine, cat, images, logger); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
	} else {
		logger.Warn("telegram token not set, bot disabled")
	}

	return g.Wait()
}

func startTelegram(ctx context.Context, g *errgroup.Group, cfg config.Config, engine *app.QuizEngine, cat *catalog.Catalog, images *assets.ImageStore, logger *slog.Logger) error {
	// Long polling holds requests open for the poll timeout, so it gets its own client.
	pollTimeout := time.Duration(cfg.Telegram.PollTimeout)*time.Second + telegramRequestTimeout
	poller, err := newTelegramClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, pollTimeout)
	if err != nil {
		return err
	}
	sender, err := newTelegramClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, telegramRequestTimeout)
	if err != nil {
		return err
	}
	poller.Debug = debug
	sender.Debug = debug
	logger.Info("telegram bot authorized", "username", poller.Self.UserName)

	bot := telegram.NewBot(sender, engine, cat, images, telegram.Config{GuardianshipURL: cfg.Telegram.GuardianshipURL}, logger)
	updates := telegram.Updates(poller, cfg.Telegram.PollTimeout, *cfg.Telegram.SkipPending, logger)
	g.Go(func() error {
		return bot.Run(ctx, updates)
	})
	g.Go(func() error {
		<-ctx.Done()
		poller.StopReceivingUpdates()
		return nil
	})
	return nil
}

// newTelegramClient authorizes token against endpoint with every request bounded by timeout.
func newTelegramClient(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}
	return api, nil
}
