package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Application
	applicationPort "github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/application/usecase"

	// Domain
	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"

	// Infrastructure
	"github.com/dreschagin/kvm-streamer-api/internal/infrastructure/cache/memory"
	"github.com/dreschagin/kvm-streamer-api/internal/infrastructure/imaging"
	natsInfra "github.com/dreschagin/kvm-streamer-api/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/kvm-streamer-api/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/kvm-streamer-api/internal/infrastructure/ocr/tesseract"
	promInfra "github.com/dreschagin/kvm-streamer-api/internal/infrastructure/observability/prometheus"
	memoryRetention "github.com/dreschagin/kvm-streamer-api/internal/infrastructure/retention/memory"
	redisRetention "github.com/dreschagin/kvm-streamer-api/internal/infrastructure/retention/redis"
	s3storage "github.com/dreschagin/kvm-streamer-api/internal/infrastructure/storage/s3"
	"github.com/dreschagin/kvm-streamer-api/internal/infrastructure/streamer"
	"github.com/dreschagin/kvm-streamer-api/internal/infrastructure/workerpool"

	// Interfaces
	httpInterface "github.com/dreschagin/kvm-streamer-api/internal/interfaces/http"
	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/handler"
	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/kvm-streamer-api/pkg/config"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.Logging.Level)
	log.Info("Starting KVM Streamer API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Хранилище сохраненного кадра
	var retention applicationPort.SnapshotRetention
	switch cfg.Retention.Backend {
	case config.RetentionRedis:
		redisImpl, initErr := redisRetention.NewRetention(redisRetention.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Key:          cfg.Redis.Key,
			TTL:          cfg.Retention.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if initErr != nil {
			log.Error("Failed to connect to Redis", initErr)
			os.Exit(1)
		}
		defer redisImpl.Close()
		retention = redisImpl
		log.Info("Redis retention initialized", "addr", cfg.Redis.Host+":"+cfg.Redis.Port)
	default:
		retention = memoryRetention.NewRetention()
		log.Info("In-memory retention initialized")
	}

	// 4. Dependency Injection - Infrastructure Layer

	source, err := streamer.NewClient(streamer.Options{
		URL:     cfg.Streamer.URL,
		Timeout: cfg.Streamer.Timeout,
	}, retention, log)
	if err != nil {
		log.Error("Failed to create streamer client", err)
		os.Exit(1)
	}
	log.Info("Streamer client initialized", "url", cfg.Streamer.URL)

	extractor := tesseract.NewExtractor(tesseract.Options{
		Enabled:       cfg.OCR.Enabled,
		DefaultLangs:  cfg.OCR.DefaultLangs,
		MaxConcurrent: cfg.OCR.MaxConcurrent,
	}, log)
	if !cfg.OCR.Enabled {
		log.Warn("OCR is disabled")
	}

	// WebSocket Hub
	hub := wsInfra.NewHub(log)

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := promInfra.New(registry)

	instrumentation := httpInterface.Instrumentation{
		OnAuthFailure:   metrics.IncAuthFailures,
		OnRateLimitDrop: metrics.IncRateLimitDropped,
	}
	if cfg.Metrics.Enabled {
		instrumentation.Middleware = metrics.Middleware
		instrumentation.Handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		log.Warn("Prometheus metrics endpoint is disabled")
	}

	// S3 архив сохраненных кадров
	var archive applicationPort.SnapshotArchive
	if cfg.S3.Enabled {
		archiveImpl, initErr := s3storage.NewSnapshotArchive(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize snapshot archive", initErr)
			os.Exit(1)
		}
		archive = archiveImpl
		log.Info("S3 snapshot archive initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 snapshot archive is disabled")
	}

	// NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewPublisher(natsInfra.Options{
			URL:      cfg.NATS.URL,
			Stream:   cfg.NATS.Stream,
			Subjects: []string{"streamer.>"},
		}, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 5. Dependency Injection - Domain Layer
	sizer := service.NewPreviewSizer()

	// 6. Dependency Injection - Application Layer (Use Cases)

	previews := usecase.NewPreviewGenerator(
		memory.NewPreviewCache(),
		imaging.NewJPEGResizer(sizer),
		workerpool.New(cfg.Preview.Workers),
		sizer,
		metrics,
		log,
	)

	sideEffects := usecase.NewSnapshotSideEffects(
		archive,        // Can be nil if S3 disabled
		eventPublisher, // Can be nil if NATS disabled
		usecase.SnapshotSideEffectsConfig{KeyPrefix: cfg.S3.KeyPrefix},
		log,
	)

	getStateUC := usecase.NewGetStreamerStateUseCase(source, log)
	takeSnapshotUC := usecase.NewTakeSnapshotUseCase(source, extractor, previews, sideEffects, metrics, log)
	removeSnapshotUC := usecase.NewRemoveSnapshotUseCase(source, sideEffects, log)
	getOCRInfoUC := usecase.NewGetOCRInfoUseCase(extractor, log)
	watchStateUC := usecase.NewWatchStreamerStateUseCase(source, hub, log)

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	streamerHandler := handler.NewStreamerAPIHandler(getStateUC, takeSnapshotUC, removeSnapshotUC, getOCRInfoUC, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
		OnFailure:   metrics.IncAuthFailures,
	}, log)

	var rateLimiter *middleware.IPRateLimiter
	if cfg.Security.RateLimitRPS > 0 {
		rateLimiter = middleware.NewIPRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
		if err := rateLimiter.TrustProxies(cfg.Security.TrustedProxies); err != nil {
			log.Error("Invalid RATE_LIMIT_TRUSTED_PROXIES", err)
			os.Exit(1)
		}
		go rateLimiter.Run(ctx)
		log.Info("Snapshot rate limit enabled", "rps", cfg.Security.RateLimitRPS, "burst", cfg.Security.RateLimitBurst)
	}

	// Router
	router := httpInterface.NewRouter(
		streamerHandler,
		websocketHandler,
		rateLimiter,
		instrumentation,
		cfg.Security,
		log,
	)

	// 8. Запускаем фоновые процессы

	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	go watchStateUC.Run(ctx, cfg.Streamer.StatePollInterval)

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем hub, watcher и очистку rate limiter
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Дожидаемся выгрузки кадров и публикации событий
	sideEffects.Wait()
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Error("Failed to close NATS publisher", err)
		}
	}

	log.Info("Server stopped gracefully")
}
