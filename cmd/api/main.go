// Package main is the entrypoint for the linkhub auth API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/linkhub/linkhub/internal/auth"
	"github.com/linkhub/linkhub/internal/cache"
	"github.com/linkhub/linkhub/internal/config"
	"github.com/linkhub/linkhub/internal/handler"
	"github.com/linkhub/linkhub/internal/metrics"
	"github.com/linkhub/linkhub/internal/repository"
	"github.com/linkhub/linkhub/internal/server"
	"github.com/linkhub/linkhub/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	recorder := metrics.NewPrometheus()

	// Initialize user store
	store, storeDep, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		os.Exit(1)
	}

	// Initialize cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.WithProfileTTL(cfg.ProfileCacheTTL))
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			closeStore()
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, rate limiting and profile cache disabled")
	}

	// Initialize services
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time:    cfg.Argon2Time,
		Memory:  cfg.Argon2MemoryKB,
		Threads: cfg.Argon2Threads,
	})

	deps := service.AuthDeps{
		Store:  store,
		Hasher: hasher,
		Tokens: tokens,
		Policy: service.PasswordPolicy{
			MinLength:     cfg.PasswordMinLength,
			MaxLength:     cfg.PasswordMaxLength,
			RequireLetter: cfg.PasswordRequireLetter,
			RequireDigit:  cfg.PasswordRequireDigit,
		},
		Logger:  logger,
		Metrics: recorder,
	}
	// Assigned only when set so a nil *cache.Cache never becomes a non-nil interface.
	redisDep := handler.Dependency{Name: "redis"}
	routerCfg := handler.RouterConfig{
		Logger:           logger,
		Metrics:          recorder,
		MetricsHandler:   recorder.Handler(),
		RateLimitEnabled: cfg.RateLimitAuthEnabled,
		LoginLimit: handler.RouteLimit{
			PerMinute: cfg.RateLimitLoginPerMinute,
			Burst:     cfg.RateLimitLoginBurst,
		},
		RegisterLimit: handler.RouteLimit{
			PerMinute: cfg.RateLimitRegisterPerMinute,
			Burst:     cfg.RateLimitRegisterBurst,
		},
		IsDevelopment:      cfg.IsDevelopment(),
		AllowedOrigins:     cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}
	if cacheClient != nil {
		deps.Profiles = cacheClient
		redisDep.Checker = cacheClient
		routerCfg.Limiter = cacheClient
	}

	authService, err := service.NewAuthService(deps)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	// Initialize handlers and router
	routerCfg.Auth = handler.NewAuthHandler(authService, logger)
	routerCfg.Authenticator = authService
	routerCfg.Health = handler.NewHealthHandler(logger, storeDep, redisDep)
	r := handler.NewRouter(routerCfg)

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("store", func(context.Context) error {
		closeStore()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"token_ttl", tokens.TTL().String(),
		slog.Group("argon2id",
			"time", hasher.Params().Time,
			"memory_kb", hasher.Params().Memory,
			"threads", hasher.Params().Threads,
		),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore selects the user store for cfg.StoreDriver. Errors are logged here
// with secrets redacted.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.UserStore, handler.Dependency, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory user store, users are lost on restart")
		store := repository.NewMemoryStore()
		return store, handler.Dependency{Name: "memory", Checker: store}, func() {}, nil
	}

	if cfg.AutoMigrate {
		version, err := repository.Migrate(cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, handler.Dependency{}, nil, err
		}
		logger.Info("migrations applied", "version", version)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, handler.Dependency{}, nil, err
	}
	logger.Info("connected to database")

	return repo, handler.Dependency{Name: "postgres", Checker: repo}, repo.Close, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	q := parsed.Query()
	if q.Has("password") {
		q.Set("password", "redacted")
		parsed.RawQuery = q.Encode()
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
