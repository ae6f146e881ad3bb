package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecetin/order-fulfillment/internal/adapter/handler"
	"github.com/ecetin/order-fulfillment/internal/adapter/storage"
	"github.com/ecetin/order-fulfillment/internal/config"
	"github.com/ecetin/order-fulfillment/internal/core/service"
	"github.com/ecetin/order-fulfillment/internal/port"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connection pool
	pool, err := storage.NewPool(ctx, cfg.DBPath, cfg.PoolSize, cfg.BusyTimeout(), cfg.AcquireTimeout())
	if err != nil {
		logger.Fatal("failed to open connection pool", zap.Error(err))
	}
	logger.Info("connection pool ready",
		zap.String("db_path", cfg.DBPath), zap.Int("size", pool.Size()))

	store := storage.NewStore(storage.NewExecutor(pool))

	if err := store.InitSchema(ctx); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}
	if cfg.SeedOnStartup {
		if err := store.SeedProducts(ctx); err != nil {
			logger.Fatal("failed to seed products", zap.Error(err))
		}
		if err := store.SeedCustomers(ctx); err != nil {
			logger.Fatal("failed to seed customers", zap.Error(err))
		}
		logger.Info("seeded demo data")
	}

	// Optional Redis stock gate
	var gate port.StockGate
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		gate = storage.NewRedisGate(rdb)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	orders := service.NewOrderService(store, gate, cfg.MaxConcurrentOrders, logger)
	if err := orders.SyncGateStock(ctx); err != nil {
		logger.Fatal("failed to sync stock gate", zap.Error(err))
	}

	// HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(orders).Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	pool.Close()
	logger.Info("connections closed")
}
