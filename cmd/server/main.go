package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/application/accounting"
	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/infrastructure/auth"
	"github.com/poserp/accounting/internal/infrastructure/config"
	"github.com/poserp/accounting/internal/infrastructure/event"
	"github.com/poserp/accounting/internal/infrastructure/logger"
	"github.com/poserp/accounting/internal/infrastructure/persistence"
	"github.com/poserp/accounting/internal/infrastructure/telemetry"
	"github.com/poserp/accounting/internal/interfaces/http/handler"
	"github.com/poserp/accounting/internal/interfaces/http/middleware"
	"github.com/poserp/accounting/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting accounting pipeline",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Database connection with zap-backed gorm logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := telemetry.RegisterDBTracing(db.DB, tp.IsEnabled(), log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Sequence numbers come from redis when available, otherwise from the
	// sequence_counters table
	var sequences ledger.SequenceAllocator
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		sequences = persistence.NewRedisSequenceAllocator(redisClient)
		log.Info("Redis sequence allocator enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		sequences = persistence.NewGormSequenceAllocator(db.DB)
	}

	// Event bus
	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Persistence layer
	store := persistence.NewGormEntityStore(db.DB, log)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB, store)
	journalRepo := persistence.NewGormJournalRepository(db.DB, store)

	// Accounting pipeline
	chart := ledger.DefaultChartOfAccounts()
	classifier := accounting.NewClassifier(chart, ledger.DefaultPatterns(), log)
	builder := accounting.NewJournalBuilder(journalRepo, sequences, chart, log)
	orchestrator := accounting.NewOrchestrator(
		classifier,
		builder,
		transactionRepo,
		journalRepo,
		sequences,
		store,
		cfg.Pipeline.Currency,
		decimal.NewFromFloat(cfg.Pipeline.RefundApprovalLimit),
		log,
	)
	publisher := accounting.NewEventPublisher(orchestrator, bus, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if tp.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	engine.GET("/healthz", handler.NewHealthHandler(db).Healthz)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddleware(jwtService))
	r.Register(handler.NewAccountingHandler(publisher, journalRepo, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
