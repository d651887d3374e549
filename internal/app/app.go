package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/quizbot/internal/config"
	"github.com/gokatarajesh/quizbot/internal/logging"
	"github.com/gokatarajesh/quizbot/internal/metrics"
	"github.com/gokatarajesh/quizbot/internal/question"
	"github.com/gokatarajesh/quizbot/internal/server"
	"github.com/gokatarajesh/quizbot/internal/session"
	"github.com/gokatarajesh/quizbot/internal/transport/telegram"
	wstransport "github.com/gokatarajesh/quizbot/internal/transport/ws"
	"github.com/gokatarajesh/quizbot/pkg/http/ws"
)

// Application aggregates shared infrastructure (bank source, cache, session
// engine, transports, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	redis    *redis.Client
	http     *http.Server
	hub      *ws.Hub
	sessions *session.Service

	warmer    *question.Warmer
	bot       *telegram.Handler
	bgCancels []context.CancelFunc
}

// Options overrides infrastructure for tests.
type Options struct {
	Registerer prometheus.Registerer
}

// New wires the bank source, optional Redis cache, session engine and the
// configured transport.
func New(ctx context.Context, cfg *config.App, opts Options) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Str("transport", cfg.Transport).Msg("starting application bootstrap")

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	dir := question.NewDirSource(cfg.Quiz.BankDir)
	var source question.Source = dir

	var redisClient *redis.Client
	var warmer *question.Warmer
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable; bank cache will degrade to disk reads")
		}
		cached := question.NewCachedSource(dir, question.NewCache(redisClient, cfg.Redis.BankTTL), logger)
		source = cached
		warmer = question.NewWarmer(cached, cfg.Redis.WarmInterval, logger)
	}

	loader := question.NewLoader(source, logger, question.LoaderOptions{})
	sessionOpts := session.ServiceOptions{
		TransitionDelay: cfg.Quiz.TransitionDelay,
		Observer:        metrics.NewSessions(reg),
	}
	hub := ws.NewHub(logger)

	var (
		sessions  *session.Service
		bot       *telegram.Handler
		wsHandler http.HandlerFunc
	)
	switch cfg.Transport {
	case config.TransportTelegram:
		api, err := telegram.NewBotAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorised")

		client := telegram.NewClient(api, logger)
		sessions = session.NewService(loader, client, sessionOpts, logger)
		bot = telegram.NewHandler(api, client, sessions, source, telegram.HandlerOptions{
			TimerChoices:  cfg.Quiz.TimerChoices,
			UpdateTimeout: cfg.Telegram.UpdateTimeout,
		}, logger)
	case config.TransportWebSocket:
		transport := wstransport.NewTransport(hub)
		sessions = session.NewService(loader, transport, sessionOpts, logger)
		handler := wstransport.NewHandler(sessions, source, hub, transport, wstransport.HandlerOptions{
			DefaultTimeout: cfg.Quiz.DefaultTimeout,
			AllowedOrigins: cfg.WSAllowedOrigins,
		}, logger)
		wsHandler = handler.HandleWebSocket
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		redis:     redisClient,
		http:      server.NewHTTPServer(cfg, logger, redisClient, source, wsHandler),
		hub:       hub,
		sessions:  sessions,
		warmer:    warmer,
		bot:       bot,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and background workers and waits for a
// termination signal, a worker failure or ctx cancellation.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	workers := a.startBackgroundWorkers(ctx)
	go func() {
		if err := workers.Wait(); err != nil {
			errCh <- err
		}
	}()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error().Err(runErr).Msg("component failed")
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if err := a.sessions.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("session shutdown error")
	}

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	a.hub.CloseAll()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
}

func (a *Application) startBackgroundWorkers(ctx context.Context) *errgroup.Group {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	g, gctx := errgroup.WithContext(bgCtx)

	if a.warmer != nil {
		g.Go(func() error {
			if err := a.warmer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("bank warmer stopped")
			}
			return nil
		})
	}

	if a.bot != nil {
		g.Go(func() error {
			err := a.bot.Run(gctx)
			if gctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("update channel closed")
			}
			return fmt.Errorf("telegram update loop: %w", err)
		})
	}

	return g
}
