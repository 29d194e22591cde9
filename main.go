// Package main provides the main entry point for the clipr link shortening service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipr-app/clipr/app/handlers"
	"github.com/clipr-app/clipr/app/middleware"
	"github.com/clipr-app/clipr/app/pipeline"
	"github.com/clipr-app/clipr/app/router"
	"github.com/clipr-app/clipr/app/services"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/clipr-app/clipr/config"
	"github.com/clipr-app/clipr/migrations"
	"github.com/clipr-app/clipr/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.Config
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting clipr application...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers; the click pipeline drains before exit
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger through lumberjack when file
// output is configured.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		return
	}
	log.SetOutput(rotator)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	// TranslateError lets repositories detect duplicate keys portably.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.Run(sqlDB); err != nil {
		return nil, err
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.Password,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, the click pipeline and
// handlers together.
func initializeApplication(cfg *config.Config) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		cancel := startCacheHealthMonitor(context.Background(), redisClient, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Repositories
	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	credRepo := repository.NewAPICredentialRepository(db)

	// Services
	var cacheService *services.RedisCacheService
	if redisClient != nil {
		cacheService = services.NewRedisCacheService(redisClient, cfg.Cache.LinkTTL)
	}

	geoService, err := services.NewGeoIPService(cfg.GeoIP.DBPath)
	if err != nil {
		return nil, err
	}
	if geoService != nil {
		stopFuncs = append(stopFuncs, func() { _ = geoService.Close() })
	}

	// Click pipeline
	var geo services.GeoResolver
	if geoService != nil {
		geo = geoService
	}
	clickPipeline := pipeline.NewClickPipeline(clickRepo, linkRepo, geo, pipeline.Config{
		QueueSize:      cfg.Clickstream.QueueSize,
		Workers:        cfg.Clickstream.Workers,
		UAMaxLen:       cfg.Clickstream.UAMaxLen,
		ReferrerMaxLen: cfg.Clickstream.ReferrerMaxLen,
	})
	clickPipeline.Start()
	stopFuncs = append(stopFuncs, clickPipeline.Stop)

	// Business flows
	var linkCache businessflow.LinkCache
	var statsCache businessflow.StatsCache
	if cacheService != nil {
		linkCache = cacheService
		statsCache = cacheService
	}
	visitFlow := businessflow.NewVisitFlow(linkRepo, linkCache, clickPipeline)
	shortenFlow := businessflow.NewShortenFlow(linkRepo, linkCache, cfg.Shortener.Domain, cfg.Shortener.CodeLength, cfg.Shortener.CodeMaxAttempts)
	analyticsFlow := businessflow.NewAnalyticsFlow(linkRepo, clickRepo, statsCache)
	transferFlow := businessflow.NewTransferFlow(linkRepo, clickRepo, shortenFlow)
	credentialFlow := businessflow.NewCredentialFlow(credRepo)

	// Handlers and middleware
	redirectHandler := handlers.NewRedirectHandler(visitFlow, analyticsFlow, cfg.Shortener.Domain)
	linkHandler := handlers.NewLinkHandler(shortenFlow, transferFlow)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsFlow)
	credentialHandler := handlers.NewCredentialHandler(credentialFlow)
	authMiddleware := middleware.NewAuthMiddleware(credentialFlow)

	dbPing := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	appRouter := router.NewFiberRouter(cfg, redirectHandler, linkHandler, analyticsHandler, credentialHandler, authMiddleware, dbPing)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
