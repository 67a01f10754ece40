package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stockops/inventory-service/config"
	"github.com/stockops/inventory-service/internal/auth"
	"github.com/stockops/inventory-service/pkg/broker"
	"github.com/stockops/inventory-service/pkg/cache"
	"github.com/stockops/inventory-service/pkg/database/postgres"
	"github.com/stockops/inventory-service/pkg/logger"
	"github.com/stockops/inventory-service/pkg/search"

	ledgerH "github.com/stockops/inventory-service/internal/ledger/handler"
	ledgerListenerPkg "github.com/stockops/inventory-service/internal/ledger/listener"
	ledgerRepoPkg "github.com/stockops/inventory-service/internal/ledger/repository"
	ledgerUCPkg "github.com/stockops/inventory-service/internal/ledger/usecase"

	prodRepoPkg "github.com/stockops/inventory-service/internal/product/repository"

	poH "github.com/stockops/inventory-service/internal/purchaseorder/handler"
	poRepoPkg "github.com/stockops/inventory-service/internal/purchaseorder/repository"
	poUCPkg "github.com/stockops/inventory-service/internal/purchaseorder/usecase"

	qcH "github.com/stockops/inventory-service/internal/qualitycontrol/handler"
	qcRepoPkg "github.com/stockops/inventory-service/internal/qualitycontrol/repository"
	qcUCPkg "github.com/stockops/inventory-service/internal/qualitycontrol/usecase"

	trfH "github.com/stockops/inventory-service/internal/transfer/handler"
	trfRepoPkg "github.com/stockops/inventory-service/internal/transfer/repository"
	trfUCPkg "github.com/stockops/inventory-service/internal/transfer/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     false,
		DisableStacktrace: false,
	}

	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	ledgerRepo := ledgerRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	trfRepo := trfRepoPkg.NewPGRepository(db)
	qcRepo := qcRepoPkg.NewPGRepository(db)
	poRepo := poRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 5.8 Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch (search features limited)", zap.Error(err))
		esClient = nil
	} else {
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 6. Initialize UseCases
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(ledgerRepo, redisClient, appLogger)
	trfUC := trfUCPkg.NewTransferUseCase(trfRepo, prodRepo, redisClient, appLogger)
	qcUC := qcUCPkg.NewQualityControlUseCase(qcRepo, prodRepo, redisClient, esClient, appLogger)
	poUC := poUCPkg.NewPurchaseOrderUseCase(poRepo, appLogger)

	// 6.5 Initialize Listeners
	saleListener := ledgerListenerPkg.NewSaleListener(kafkaConsumer, ledgerUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go saleListener.Start(ctx)

	// 7. Initialize Handlers + Router
	if cfg.Server.AppEnv != "dev" && cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), auth.Middleware())

	api := router.Group("/api/v1")
	ledgerH.NewLedgerHandler(ledgerUC, appLogger).Register(api)
	trfH.NewTransferHandler(trfUC, appLogger).Register(api)
	qcH.NewQualityControlHandler(qcUC, appLogger).Register(api)
	poH.NewPurchaseOrderHandler(poUC, appLogger).Register(api)

	// 8. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	appLogger.Info("Server stopped")
}
