package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/session-service/internal/assets"
	"github.com/pribylovaa/session-service/internal/assets/cloudinary"
	"github.com/pribylovaa/session-service/internal/assets/minio"
	"github.com/pribylovaa/session-service/internal/config"
	sshttp "github.com/pribylovaa/session-service/internal/http"
	"github.com/pribylovaa/session-service/internal/http/handlers"
	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/observability"
	"github.com/pribylovaa/session-service/internal/password"
	"github.com/pribylovaa/session-service/internal/ratelimit"
	"github.com/pribylovaa/session-service/internal/service"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/storage/mongo"
	"github.com/pribylovaa/session-service/internal/storage/postgres"
	"github.com/pribylovaa/session-service/internal/tokens"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// connectTimeout — таймаут подключения к внешним зависимостям на старте.
const connectTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting session-service", "env", cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := observability.InitSentry(cfg.Sentry, cfg.Env); err != nil {
		log.Warn("sentry_init_failed", slog.String("err", err.Error()))
	}
	defer observability.FlushSentry()

	// Хранилище.
	st, err := openStorage(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("storage_connected", slog.String("driver", cfg.Storage.Driver))

	// Загрузка изображений.
	uploader, err := newUploader(rootCtx, cfg)
	if err != nil {
		return err
	}
	log.Info("assets_initialized", slog.String("driver", cfg.Assets.Driver))

	// Лимитер попыток входа.
	limiter, closeLimiter, err := newLimiter(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	m := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(
		st,
		uploader,
		tokens.New(cfg.Auth),
		password.New(cfg.Auth.BcryptCost),
		m,
		cfg.Auth,
	)
	log.Info("service_initialized")

	apiHandler := sshttp.NewRouter(svc, sshttp.Options{
		Logger:       log,
		Timeout:      cfg.Timeouts.Service,
		BasePath:     cfg.HTTP.BasePath,
		Metrics:      m,
		LoginLimiter: limiter,
		TrustProxy:   cfg.HTTP.TrustProxy,
		Handlers: handlers.Options{
			Cookies:         cfg.Cookies,
			AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
			MaxUploadBytes:  cfg.Assets.MaxSizeBytes,
		},
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", httpAddr, err)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	return serveErr
}

// openStorage подключает хранилище по storage.driver. Для postgres
// предварительно накатываются миграции (если не отключены).
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Storage.Driver {
	case config.StorageDriverMongo:
		st, err := mongo.New(ctx, cfg.Mongo.URL, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		return st, nil
	default:
		if !cfg.DB.SkipMigrations {
			if err := postgres.Migrate(ctx, cfg.DB.DatabaseURL); err != nil {
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
		}

		st, err := postgres.New(ctx, cfg.DB.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return st, nil
	}
}

// newUploader создаёт загрузчик изображений по assets.driver.
func newUploader(ctx context.Context, cfg *config.Config) (assets.Uploader, error) {
	limits := assets.Limits{
		MaxSizeBytes:        cfg.Assets.MaxSizeBytes,
		AllowedContentTypes: cfg.Assets.AllowedContentTypes,
	}

	switch cfg.Assets.Driver {
	case config.AssetsDriverCloudinary:
		up, err := cloudinary.New(cfg.Cloudinary.URL, cfg.Cloudinary.Folder, limits)
		if err != nil {
			return nil, fmt.Errorf("cloudinary init: %w", err)
		}
		return up, nil
	default:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		up, err := minio.New(ctx, cfg.S3, limits)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return up, nil
	}
}

// newLimiter создаёт лимитер попыток входа: Redis, если задан redis_url,
// иначе в памяти. login_attempts <= 0 отключает лимит (nil).
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	noop := func() {}

	if cfg.RateLimit.LoginAttempts <= 0 {
		return nil, noop, nil
	}

	if cfg.Redis.RedisURL == "" {
		return ratelimit.NewMemory(cfg.RateLimit.LoginAttempts, cfg.RateLimit.Window), noop, nil
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	rl, err := ratelimit.NewRedis(ctx, cfg.Redis.RedisURL, cfg.RateLimit.LoginAttempts, cfg.RateLimit.Window)
	if err != nil {
		return nil, noop, fmt.Errorf("redis connect: %w", err)
	}

	return rl, func() { _ = rl.Close() }, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
