package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fluow/panel-server/internal/chatwoot"
	"github.com/fluow/panel-server/internal/config"
	"github.com/fluow/panel-server/internal/evolution"
	"github.com/fluow/panel-server/internal/handler"
	"github.com/fluow/panel-server/internal/jobs"
	"github.com/fluow/panel-server/internal/middleware"
	"github.com/fluow/panel-server/internal/redis"
	"github.com/fluow/panel-server/internal/service"
	"github.com/fluow/panel-server/internal/store"
)

func main() {
	godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	st := store.New(cfg.DBPath)
	if _, err := st.Read(); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open config store")
	}
	log.Info().Str("path", cfg.DBPath).Msg("config store ready")

	evoClient := evolution.NewClient(cfg.EvolutionAPIURL, cfg.EvolutionAPIKey, cfg.UpstreamTimeout())
	chatwootClient := chatwoot.NewClient(cfg.UpstreamTimeout())

	instanceService := service.NewInstanceService(st, evoClient, chatwootClient)
	configService := service.NewConfigService(st, evoClient, chatwootClient)
	apiKeyService := service.NewAPIKeyService(st)
	supportService := service.NewSupportService(st, chatwootClient)

	var limiter middleware.Limiter
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected, using shared rate limiter")
		limiter = middleware.NewRedisRateLimiter(redisClient.Client)
	} else {
		log.Info().Msg("no REDIS_URL, using in-memory rate limiter")
		limiter = middleware.NewRateLimiter()
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.MasterAPIKey, apiKeyService)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, config.DefaultRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	instanceHandler := handler.NewInstanceHandler(instanceService)
	configHandler := handler.NewConfigHandler(configService)
	chatwootHandler := handler.NewChatwootHandler(configService, supportService)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService)
	systemHandler := handler.NewSystemHandler(supportService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(middleware.CORS)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"name":      "fluow-panel-server",
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Mount("/instance", instanceHandler.Routes())
		r.Mount("/webhook", configHandler.WebhookRoutes())
		r.Mount("/openai", configHandler.OpenAIRoutes())
		r.Mount("/gemini", configHandler.GeminiRoutes())
		r.Mount("/chatwoot", chatwootHandler.Routes())
		r.Mount("/api-keys", apiKeyHandler.Routes())
		r.Mount("/system", systemHandler.Routes())
	})

	if interval := cfg.SyncInterval(); interval > 0 {
		syncJob := jobs.NewSyncJob(instanceService, interval)
		syncJob.Start()
		defer syncJob.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
