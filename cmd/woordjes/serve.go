package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"woordjes/internal/amqp"
	"woordjes/internal/auth"
	"woordjes/internal/cache"
	"woordjes/internal/cli"
	"woordjes/internal/game"
	apphttp "woordjes/internal/http"
	"woordjes/internal/log"
	"woordjes/internal/middleware/ratelimit"
	"woordjes/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, repo, err := bootstrap(cmd.Context(), log.ComponentApp)
	if err != nil {
		return err
	}
	defer repo.Close()

	// Without a broker the worker's export sweep picks sessions up later.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, session events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			events = client
		}
	}

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.SessionTTL)
	engine := game.NewEngine(0, cfg.GameTTL)
	leaderboard := services.NewLeaderboardService(repo, logger)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	caches.Register("games", engine.Cache())
	caches.Register("leaderboard", leaderboard.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerMinute = cfg.RateLimitRPM

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts: services.NewAccountService(repo, tokens, logger),
		Games: services.NewGameService(services.GameDeps{
			Engine:      engine,
			Words:       repo,
			Progress:    repo,
			Sessions:    repo,
			Events:      events,
			Leaderboard: leaderboard,
			RoundSize:   cfg.RoundSize,
			Logger:      logger,
		}),
		Leaderboard: leaderboard,
		Progress:    services.NewProgressService(repo, logger),
		Medals:      services.NewMedalService(repo, repo, events, logger),
		Issues:      services.NewIssueService(repo, logger),
		Tokens:      tokens,
		Cookies:     auth.Cookies{Secure: cfg.CookieSecure},
		Ready:       repo.Ping,
		Caches:      caches,
		RateLimit:   limits,
		Logger:      logger,

		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting woordjes server", "port", cfg.Port, "backend", cfg.DataBackend, "round_size", cfg.RoundSize)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return err
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
	return nil
}
