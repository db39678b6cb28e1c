package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"catalog-builder-service/internal/api"
	"catalog-builder-service/internal/auth"
	"catalog-builder-service/internal/blob"
	"catalog-builder-service/internal/cache"
	"catalog-builder-service/internal/config"
	"catalog-builder-service/internal/logging"
	"catalog-builder-service/internal/metrics"
	"catalog-builder-service/internal/store"
	"catalog-builder-service/internal/store/migrations"
	"catalog-builder-service/internal/storefront"
)

const defaultAppName = "CatalogBuilderService"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}

	logger, err := logging.Install(logging.Options{
		Production: cfg.IsProduction(),
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("FATAL: Error initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting service", zap.String("app", defaultAppName), zap.String("env", cfg.AppEnv), zap.String("log_level", cfg.LogLevel))

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("failed to initialize database connection", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancelPing()
	if err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	if cfg.Postgres.MigrateOnStart {
		if err := store.ApplyMigrations(context.Background(), db, migrations.Files); err != nil {
			logger.Fatal("failed to apply migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
	}

	m := metrics.Registry(cfg.MetricsNS)
	dbStore := store.NewPostgresStore(db, m)

	// --- Page Cache ---
	var pageCache cache.PageCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		redisCache := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.TLS,
		})
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable at startup, pages will be rebuilt until it recovers", zap.Error(err))
		}
		cancelPing()
		pageCache = redisCache
	} else {
		logger.Info("REDIS_ADDR not set, public page cache disabled")
	}

	// --- Blob Storage ---
	var blobs blob.Store = blob.Unconfigured{}
	if cld, err := blob.NewCloudinary(cfg.Cloudinary.URL); err == nil {
		blobs = cld
	} else {
		logger.Warn("image uploads disabled", zap.Error(err))
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		logger.Fatal("failed to initialize token verifier", zap.Error(err))
	}
	pages := storefront.NewService(dbStore, pageCache, m, cfg.Redis.PageTTL, cfg.PublicBaseURL)

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(api.Deps{
		Businesses:   dbStore,
		Products:     dbStore,
		Catalogs:     dbStore,
		Accounts:     dbStore,
		Pages:        pages,
		Cache:        pageCache,
		Blobs:        blobs,
		UploadPolicy: blob.Policy{MaxBytes: cfg.Uploads.MaxBytes(), Buckets: cfg.Uploads.Buckets},
		Metrics:      m,
		Authenticate: verifier.Middleware,
	})
	grpcAPIHandler := api.NewGRPCHandler(pages)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, m)
	registerHealthCheck(httpRouter, logger, dbStore, pageCache)
	httpRouter.Handle("/metrics", promhttp.Handler())
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe error", zap.Error(err))
		}
		logger.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(logger, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Fatal("failed to listen for gRPC", zap.String("port", cfg.GrpcServer.Port), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatal("gRPC server Serve error", zap.Error(err))
		}
		logger.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, dbStore, pageCache, shutdownComplete)

	<-shutdownComplete
	logger.Info("service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux, logger *zap.Logger, m *metrics.Metrics) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger, m))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
}

type pinger interface {
	Ping(ctx context.Context) error
}

func registerHealthCheck(router *chi.Mux, logger *zap.Logger, db pinger, pageCache pinger) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		check := func(name string, p pinger) string {
			if err := p.Ping(ctx); err != nil {
				logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
				return "unhealthy"
			}
			return "healthy"
		}
		dbStatus := check("database", db)
		cacheStatus := check("cache", pageCache)

		status := "healthy"
		code := http.StatusOK
		if dbStatus != "healthy" {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		} else if cacheStatus != "healthy" {
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      status,
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
			"cache":       cacheStatus,
		})
	})
	logger.Info("HTTP health check registered", zap.String("path", healthPath))
}

func setupGRPCServer(logger *zap.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(api.UnaryLoggingInterceptor(logger)))

	api.RegisterPublicCatalogServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	reflection.Register(s)
	logger.Info("gRPC services registered", zap.String("service", api.PublicCatalogServiceDesc.ServiceName))

	return s
}

func waitForShutdown(
	logger *zap.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dbStore *store.PostgresStore,
	pageCache cache.PageCache,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info("received signal, starting graceful shutdown", zap.String("signal", receivedSignal.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}

	if err := pageCache.Close(); err != nil {
		logger.Warn("error closing page cache", zap.Error(err))
	}
	if err := dbStore.Close(); err != nil {
		logger.Warn("error closing database connection", zap.Error(err))
	}
	logger.Info("graceful shutdown sequence completed")
}
