// Command server starts the ClipTide API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cliptide/internal/api"
	"cliptide/internal/auth"
	"cliptide/internal/observability/logging"
	"cliptide/internal/observability/metrics"
	"cliptide/internal/server"
	"cliptide/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "refresh token store driver (memory or postgres)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the refresh token store")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between sweeps of expired refresh tokens")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	accessSecret := flag.String("access-token-secret", "", "HMAC secret for access tokens")
	refreshSecret := flag.String("refresh-token-secret", "", "HMAC secret for refresh tokens")
	accessTTL := flag.Duration("access-token-ttl", 0, "lifetime of issued access tokens")
	refreshTTL := flag.Duration("refresh-token-ttl", 0, "lifetime of issued refresh tokens")
	cookieSecure := flag.Bool("cookie-secure", false, "always mark session cookies Secure")
	assetBaseURL := flag.String("asset-base-url", "", "base URL for serving stored media assets")
	assetSigningSecret := flag.String("asset-signing-secret", "", "HMAC secret for signed asset URLs")
	assetURLTTL := flag.Duration("asset-url-ttl", 0, "lifetime of signed asset URLs")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum credential attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting credential attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	studioOrigins := flag.String("studio-origins", "", "comma separated origins allowed for the creator studio")
	viewerOrigins := flag.String("viewer-origins", "", "comma separated origins allowed for the viewer frontend")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CLIPTIDE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CLIPTIDE_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("CLIPTIDE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("CLIPTIDE_ADDR"))

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:    firstNonEmpty(*accessSecret, os.Getenv("CLIPTIDE_ACCESS_TOKEN_SECRET")),
		RefreshSecret:   firstNonEmpty(*refreshSecret, os.Getenv("CLIPTIDE_REFRESH_TOKEN_SECRET")),
		AccessTokenTTL:  resolveDuration(*accessTTL, "CLIPTIDE_ACCESS_TOKEN_TTL", 0),
		RefreshTokenTTL: resolveDuration(*refreshTTL, "CLIPTIDE_REFRESH_TOKEN_TTL", 0),
	})
	if err != nil {
		logger.Error("invalid token configuration", "error", err)
		os.Exit(1)
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("CLIPTIDE_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" && driver != "postgres" {
		logger.Error("production mode requires the postgres datastore driver", "driver", driver)
		os.Exit(1)
	}

	var (
		store              storage.Repository
		storagePostgresDSN string
	)
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("CLIPTIDE_DATA"))
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		storagePostgresDSN = postgresDefaultDSN
		if storagePostgresDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.PostgresOption
		maxConns := resolveInt(*postgresMaxConns, "CLIPTIDE_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "CLIPTIDE_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "CLIPTIDE_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "CLIPTIDE_POSTGRES_MAX_CONN_IDLE", 0)
		healthInterval := resolveDuration(*postgresHealthInterval, "CLIPTIDE_POSTGRES_HEALTH_INTERVAL", 0)
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "CLIPTIDE_POSTGRES_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("CLIPTIDE_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(storagePostgresDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionConfig, err := resolveSessionStoreConfig(
		*sessionStoreDriver,
		os.Getenv("CLIPTIDE_SESSION_STORE"),
		driver,
		storagePostgresDSN,
		*sessionPostgresDSN,
		os.Getenv("CLIPTIDE_SESSION_POSTGRES_DSN"),
	)
	if err != nil {
		logger.Error("failed to resolve session store", "error", err)
		os.Exit(1)
	}

	var (
		tokenStore       auth.RefreshTokenStore
		sessionCloser    func(context.Context) error
		stopSessionPurge = func() {}
	)
	switch sessionConfig.Driver {
	case "memory":
		tokenStore = auth.NewMemoryRefreshTokenStore()
	case "postgres":
		pgStore, err := auth.NewPostgresRefreshTokenStore(sessionConfig.DSN)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		tokenStore = pgStore
		sessionCloser = pgStore.Close
		purgeInterval := resolveDuration(*sessionPurgeInterval, "CLIPTIDE_SESSION_PURGE_INTERVAL", time.Hour)
		stopSessionPurge = startSessionPurgeWorker(context.Background(), logging.WithComponent(logger, "session-purge"), pgStore, purgeInterval)
	default:
		logger.Error("unsupported session store driver", "driver", sessionConfig.Driver)
		os.Exit(1)
	}

	resolver := func(ctx context.Context, id string) (auth.Identity, bool) {
		user, ok := store.GetUser(id)
		if !ok {
			return auth.Identity{}, false
		}
		return auth.Identity{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		}, true
	}
	sessions, err := auth.NewManager(issuer, resolver, auth.WithRefreshTokenStore(tokenStore))
	if err != nil {
		logger.Error("failed to initialise session manager", "error", err)
		os.Exit(1)
	}

	assets, err := storage.NewAssetHost(storage.AssetHostConfig{
		BaseURL:       firstNonEmpty(*assetBaseURL, os.Getenv("CLIPTIDE_ASSET_BASE_URL")),
		SigningSecret: firstNonEmpty(*assetSigningSecret, os.Getenv("CLIPTIDE_ASSET_SIGNING_SECRET")),
		URLTTL:        resolveDuration(*assetURLTTL, "CLIPTIDE_ASSET_URL_TTL", 0),
	})
	if err != nil {
		logger.Error("invalid asset host configuration", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, sessions)
	handler.Assets = assets
	cookiePolicy := api.DefaultSessionCookiePolicy()
	if resolveBool(*cookieSecure, "CLIPTIDE_COOKIE_SECURE") || serverMode == "production" {
		cookiePolicy.SecureMode = api.SessionCookieSecureAlways
	}
	handler.SessionCookiePolicy = cookiePolicy

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "CLIPTIDE_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "CLIPTIDE_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "CLIPTIDE_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "CLIPTIDE_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("CLIPTIDE_RATE_REDIS_ADDR")),
		RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("CLIPTIDE_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*redisTimeout, "CLIPTIDE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, server.Config{
		Addr:      listenAddr,
		TLS:       server.TLSConfig{CertFile: firstNonEmpty(*tlsCert, os.Getenv("CLIPTIDE_TLS_CERT")), KeyFile: firstNonEmpty(*tlsKey, os.Getenv("CLIPTIDE_TLS_KEY"))},
		RateLimit: rateCfg,
		CORS: server.CORSConfig{
			StudioOrigins: splitAndTrim(firstNonEmpty(*studioOrigins, os.Getenv("CLIPTIDE_STUDIO_ORIGINS"))),
			ViewerOrigins: splitAndTrim(firstNonEmpty(*viewerOrigins, os.Getenv("CLIPTIDE_VIEWER_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("ClipTide API listening", "addr", listenAddr, "mode", serverMode, "storage", driver, "sessions", sessionConfig.Driver)
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	stopSessionPurge()

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	if sessionCloser != nil {
		if err := sessionCloser(ctx); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type sessionStoreConfig struct {
	Driver string
	DSN    string
}

func resolveSessionStoreConfig(flagDriver, envDriver, storageDriver, storageDSN, flagDSN, envDSN string) (sessionStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(flagDriver))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envDriver))
	}

	sessionDSN := strings.TrimSpace(firstNonEmpty(flagDSN, envDSN))
	if driver == "" {
		switch {
		case sessionDSN != "":
			driver = "postgres"
		case storageDriver == "postgres":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "", "memory":
		return sessionStoreConfig{Driver: "memory"}, nil
	case "postgres":
		if sessionDSN == "" {
			sessionDSN = strings.TrimSpace(storageDSN)
		}
		if sessionDSN == "" {
			return sessionStoreConfig{}, errors.New("postgres session store selected without DSN")
		}
		return sessionStoreConfig{Driver: "postgres", DSN: sessionDSN}, nil
	default:
		return sessionStoreConfig{}, errors.New("unsupported session store driver " + strconv.Quote(driver))
	}
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("CLIPTIDE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
