package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"marketplace-service/internal/api"
	"marketplace-service/internal/config"
	"marketplace-service/internal/logging"
	"marketplace-service/internal/media"
	"marketplace-service/internal/service"
	"marketplace-service/internal/store"
)

const defaultAppName = "marketplace"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("error loading configuration", "err", err)
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, defaultAppName)
	logger.Info("configuration loaded", "app_env", cfg.AppEnv, "log_level", cfg.LogLevel)

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("failed to initialize database connection", "err", err)
	}
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatal("failed to ping database", "err", err)
	}
	if cfg.MigrateOnStart {
		if err := store.Migrate(pingCtx, db); err != nil {
			logger.Fatal("failed to apply schema", "err", err)
		}
		logger.Info("database schema applied")
	}
	dbStore := store.NewPostgresStore(db)
	logger.Info("database connection established")

	// --- Media & Services ---
	mediaStore, err := newMediaStore(cfg.Media)
	if err != nil {
		logger.Fatal("failed to initialize media store", "backend", cfg.Media.Backend, "err", err)
	}
	accounts := service.NewAccountService(dbStore, mediaStore)
	catalog := service.NewCatalogService(dbStore, mediaStore)
	messaging := service.NewMessagingService(dbStore)

	// --- Setup & Start HTTP Server ---
	httpAPIHandler := api.NewHTTPHandler(accounts, catalog, messaging, newSessionStore(cfg.Session), api.HandlerOptions{
		SessionName:    cfg.Session.Name,
		MaxUploadBytes: cfg.HttpServer.MaxUploadBytes,
		Ping: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return dbStore.Ping(ctx)
		},
	})
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, cfg.HttpServer.RequestTimeout)
	if cfg.Media.Backend == config.MediaBackendLocal {
		serveLocalMedia(httpRouter, cfg.Media)
	}
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Info("HTTP server listening", "port", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe error", "err", err)
		}
		logger.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(logger, api.NewGRPCHandler(accounts, messaging))
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Fatal("failed to listen for gRPC", "port", cfg.GrpcServer.Port, "err", err)
	}

	go func() {
		logger.Info("gRPC server listening", "port", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatal("gRPC server Serve error", "err", err)
		}
		logger.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, dbStore, shutdownComplete)

	<-shutdownComplete
	logger.Info("service shutdown sequence finished")
}

func newMediaStore(cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Backend {
	case config.MediaBackendCloudinary:
		return media.NewCloudinaryStore(cfg.CloudinaryURL)
	default:
		return media.NewLocalStore(cfg.LocalDir, cfg.PublicPrefix)
	}
}

func newSessionStore(cfg config.SessionConfig) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger, timeout time.Duration) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(timeout))
	logger.Debug("base HTTP middleware registered")
}

// serveLocalMedia exposes files written by the local media store.
func serveLocalMedia(router *chi.Mux, cfg config.MediaConfig) {
	prefix := strings.TrimSuffix(cfg.PublicPrefix, "/")
	fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.LocalDir)))
	router.Get(prefix+"/*", fileServer.ServeHTTP)
}

func setupGRPCServer(logger *log.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer()

	api.RegisterMessagingServer(s, grpcAPIHandler)
	logger.Debug("messaging gRPC service registered")

	healthServer := health.NewServer()
	healthServer.SetServingStatus("marketplace.v1.Messaging", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, healthServer)

	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)

	return s
}

func waitForShutdown(
	logger *log.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dbStore *store.PostgresStore,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info("starting graceful shutdown", "signal", receivedSignal.String())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server graceful shutdown failed", "err", err)
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server graceful shutdown timed out, forcing stop", "err", shutdownCtx.Err())
		grpcServer.Stop()
	}

	if err := dbStore.Close(); err != nil {
		logger.Warn("error closing database connection", "err", err)
	}

	logger.Info("graceful shutdown sequence completed")
}
