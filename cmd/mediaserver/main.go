package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pionwebrtc "github.com/pion/webrtc/v3"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/internal/core/services"
	"github.com/Muab01/samVR/internal/core/venue"
	httphandlers "github.com/Muab01/samVR/internal/handlers/http"
	infbackup "github.com/Muab01/samVR/internal/infrastructure/backup"
	"github.com/Muab01/samVR/internal/infrastructure/distributed"
	"github.com/Muab01/samVR/internal/infrastructure/middleware"
	"github.com/Muab01/samVR/internal/infrastructure/monitoring"
	"github.com/Muab01/samVR/internal/infrastructure/repositories/memory"
	redisrepo "github.com/Muab01/samVR/internal/infrastructure/repositories/redis"
	signalws "github.com/Muab01/samVR/internal/infrastructure/signal"
	"github.com/Muab01/samVR/internal/infrastructure/webrtc"
	"github.com/Muab01/samVR/pkg/backup"
	"github.com/Muab01/samVR/pkg/config"
	"github.com/Muab01/samVR/pkg/logger"
	"github.com/Muab01/samVR/pkg/tracing"
)

// version is stamped into snapshot archives; overridable at build time
// via -ldflags.
var version = "dev"

func main() {
	startTime := time.Now()

	// Load configuration from the first path that exists
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}
	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format).Sugar()
	defer log.Sync()

	log.Infow("Starting samVR media server",
		"address", cfg.Server.Address,
		"redis_enabled", cfg.Redis.Enabled,
	)

	// Tracing (inert when disabled)
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("Failed to initialize tracing", "error", err)
	}

	// Media engine
	engineConfig := webrtc.Config{
		PLIInterval: 3 * time.Second,
	}
	engineConfig.PortRange.Min = cfg.Media.PortRange.Min
	engineConfig.PortRange.Max = cfg.Media.PortRange.Max
	if len(cfg.Media.ICEServers) > 0 {
		for _, s := range cfg.Media.ICEServers {
			engineConfig.ICEServers = append(engineConfig.ICEServers, pionwebrtc.ICEServer{
				URLs:       s.URLs,
				Username:   s.Username,
				Credential: s.Credential,
			})
		}
	} else {
		engineConfig.ICEServers = []pionwebrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
	}
	engine, err := webrtc.NewEngine(engineConfig, log)
	if err != nil {
		log.Fatalw("Failed to initialize media engine", "error", err)
	}

	// Repositories: Redis when enabled, in-memory otherwise
	var (
		venueRepo   ports.VenueRepository
		cameraRepo  ports.CameraRepository
		userRepo    ports.UserRepository
		redisClient *goredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisrepo.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
		if err != nil {
			log.Fatalw("Failed to connect to Redis", "error", err, "address", cfg.Redis.Address)
		}
		venueRepo = redisrepo.NewVenueRepository(redisClient)
		cameraRepo = redisrepo.NewCameraRepository(redisClient)
		userRepo = redisrepo.NewUserRepository(redisClient)
		log.Infow("Using Redis repositories", "address", cfg.Redis.Address)
	} else {
		venueRepo = memory.NewVenueRepository()
		cameraRepo = memory.NewCameraRepository()
		userRepo = memory.NewUserRepository()
		log.Info("Using in-memory repositories")
	}

	// Monitoring
	collector := monitoring.NewPrometheusCollector()
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRepositoryCheck(venueRepo, 30*time.Second, 5*time.Second)
	if redisClient != nil {
		healthChecker.AddRedisCheck(redisClient, 30*time.Second, 5*time.Second)
	}
	healthChecker.AddReadinessCheck(redisClient, venueRepo, 15*time.Second, 2*time.Second)

	// Multi-instance coordination (requires Redis)
	instanceID := uuid.New().String()
	var eventBus *distributed.EventBus
	var directory *distributed.VenueDirectory
	var coordinator ports.VenueCoordinator
	coordCtx, coordCancel := context.WithCancel(context.Background())
	defer coordCancel()
	if redisClient != nil {
		eventBus = distributed.NewEventBus(redisClient, instanceID, log)
		directory = distributed.NewVenueDirectory(redisClient, instanceID, log)
		coordinator = distributed.NewClusterCoordinator(directory, eventBus)
		if err := eventBus.Subscribe(coordCtx, func(event *distributed.Event) error {
			log.Debugw("Cluster event",
				"type", event.Type,
				"instance", event.InstanceID,
				"venue", event.VenueID,
			)
			return nil
		}); err != nil {
			log.Warnw("Failed to subscribe to cluster events", "error", err)
		}
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					directory.RefreshClaims(coordCtx)
				case <-coordCtx.Done():
					return
				}
			}
		}()
		log.Infow("Cluster coordination enabled", "instance_id", instanceID)
	}

	// Core services
	registry := venue.NewRegistry(venue.RegistryConfig{
		Engine:                 engine,
		VenueRepo:              venueRepo,
		CameraRepo:             cameraRepo,
		Logger:                 log,
		Metrics:                collector,
		Coordinator:            coordinator,
		TransformFlushInterval: cfg.VrSpace.TransformFlushInterval,
		MaxIncomingBitrate:     cfg.Media.MaxIncomingBitrate,
	})
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, userRepo)

	// Signaling server
	signalServer := signalws.NewServer(registry, authService, signalws.Config{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		SendBuffer:        cfg.Signal.SendBuffer,
		AllowedOrigins:    cfg.Auth.AllowedOrigins,
		MessagesPerSecond: cfg.RateLimiting.MessagesPerSecond,
		MessageBurst:      cfg.RateLimiting.MessageBurst,
	}, log)
	signalServer.SetMetrics(collector)

	// Scheduled record snapshots
	var backupScheduler *infbackup.Scheduler
	if cfg.Backup.Enabled {
		storage, err := backup.NewFileStorage(cfg.Backup.Directory)
		if err != nil {
			log.Fatalw("Failed to initialize backup storage", "error", err, "directory", cfg.Backup.Directory)
		}
		backupScheduler = infbackup.NewScheduler(
			backup.NewService(storage, version),
			venueRepo,
			cameraRepo,
			infbackup.Config{
				Interval:      cfg.Backup.Interval,
				RetentionDays: cfg.Backup.RetentionDays,
			},
			log,
		)
	}

	if backupScheduler != nil {
		go backupScheduler.Start(coordCtx)
		log.Infow("Scheduled backups enabled",
			"interval", cfg.Backup.Interval,
			"directory", cfg.Backup.Directory,
		)
	}

	// HTTP surface
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	httphandlers.NewAuthHandler(authService).SetupRoutes(router)
	httphandlers.NewVenueHandler(registry, cameraRepo, authService).SetupRoutes(router)

	router.GET(cfg.Signal.Path, func(c *gin.Context) {
		signalServer.HandleWebSocket(c.Writer, c.Request)
	})

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		status := healthChecker.CheckAll(ctx)
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if !healthChecker.IsReady(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Prometheus metrics on a separate port
	if cfg.Monitoring.PrometheusEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
			log.Infow("Prometheus metrics enabled", "address", addr)
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				log.Errorw("Metrics server failed", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down samVR media server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}

	coordCancel()
	if directory != nil {
		if err := directory.ReleaseAll(shutdownCtx); err != nil {
			log.Errorw("Error releasing venue claims", "error", err)
		}
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Errorw("Error closing event bus", "error", err)
		}
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Errorw("Error closing Redis client", "error", err)
		}
	}

	log.Info("samVR media server stopped")
}
