package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "medrent-backend/internal/api/grpc"
	httpapi "medrent-backend/internal/api/http"
	"medrent-backend/internal/config"
	"medrent-backend/internal/events"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository/postgres"
	"medrent-backend/internal/security"
	"medrent-backend/internal/service"
	"medrent-backend/internal/storage"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()
	logger.Info("Starting MedRent Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("Failed to apply migrations", "error", err)
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize Storage Service
	logger.Info("Using local receipt storage", "upload_dir", cfg.Storage.UploadDir)
	receiptStorage, err := storage.NewLocalStorageService(cfg.Storage.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	policy := storage.ReceiptPolicy{MaxBytes: cfg.MaxUploadBytes(), AllowedTypes: cfg.Storage.AllowedTypes}

	// Initialize notification channels
	var emailSvc service.EmailService
	if cfg.EmailEnabled() {
		emailSvc = service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Warn("SendGrid API key not set, emails will only be logged")
		emailSvc = service.NewLogEmailService()
	}

	pushSvc := service.NewNoopPushService()
	if cfg.Firebase.Enabled {
		pushSvc, err = service.NewPushService(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize push notifications", "error", err)
			log.Fatalf("Failed to initialize push notifications: %v", err)
		}
	}

	var publisher interface {
		service.EventPublisher
		Close() error
	} = events.NoopPublisher{}
	if cfg.EventsEnabled() {
		producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Error("Failed to initialize Kafka producer", "error", err)
			log.Fatalf("Failed to initialize Kafka producer: %v", err)
		}
		publisher = producer
	}
	defer publisher.Close()

	// Initialize Services
	notifier := service.NewOrderNotifier(store.UserRepository, emailSvc, pushSvc, publisher)
	authSvc := service.NewAuthService(store.UserRepository, store.OrderRepository, tokenManager)
	equipmentSvc := service.NewEquipmentService(store.EquipmentRepository, store.OrderRepository)
	favoriteSvc := service.NewFavoriteService(store.FavoriteRepository, store.EquipmentRepository)
	orderSvc := service.NewOrderService(store.OrderRepository, store.EquipmentRepository, receiptStorage, policy, notifier)

	// HTTP API
	router := httpapi.NewRouter(httpapi.Services{
		Auth:      authSvc,
		Equipment: equipmentSvc,
		Orders:    orderSvc,
		Favorites: favoriteSvc,
	}, tokenManager, httpapi.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Ready:          func(r *http.Request) error { return store.Ping(r.Context()) },
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health
	health := grpcapi.NewHealthServer(store, 10*time.Second)
	grpcListener, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC health server listening", "address", grpcListener.Addr().String())
		return health.Server().Serve(grpcListener)
	})

	g.Go(func() error {
		health.Watch(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		health.Server().GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("Waiting for pending notifications...")
	notifier.Wait()
	if err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}
