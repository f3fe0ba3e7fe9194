package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ProductCatalog/internal/cache"
	"ProductCatalog/internal/catalogrpc"
	"ProductCatalog/internal/gateway"
	"ProductCatalog/internal/hashstore"
	"ProductCatalog/pkg/kit"
	"ProductCatalog/pkg/tracing"
)

func main() {
	service := "gateway"
	log := kit.NewLogger(service, kit.Getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := kit.Getenv("PORT", "8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET is required and must be at least 32 chars")
	}

	tp, err := tracing.Init(service, kit.Getenv("JAEGER_ENDPOINT", ""), log)
	if err != nil {
		log.Fatal("init tracing failed", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(sctx)
	}()

	rdb, err := hashstore.NewClient(kit.Getenv("REDIS_URI", "redis://localhost:6379/0"), kit.GetenvInt("CACHE_DB", cache.DefaultDB))
	if err != nil {
		log.Fatal("init cache client failed", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	catalogClient, err := catalogrpc.Dial(kit.Getenv("CATALOG_GRPC_ADDR", "catalog:50051"))
	if err != nil {
		log.Fatal("init catalog client failed", zap.Error(err))
	}
	defer func() { _ = catalogClient.Close() }()

	h, err := gateway.NewHandler(
		gateway.Deps{
			Catalog:    catalogClient,
			Cache:      cache.New(rdb),
			OrderURL:   kit.Getenv("ORDER_URL", "http://order:8083"),
			JWTSecret:  jwtSecret,
			WriteLimit: kit.GetenvInt("WRITE_LIMIT_PER_MIN", 30),
		},
		gateway.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       kit.NewRegistry(),
			MetricsEnabled: true,
			MetricsToken:   os.Getenv("METRICS_TOKEN"),
		},
	)
	if err != nil {
		log.Fatal("init gateway handler failed", zap.Error(err))
	}

	if err := kit.ServeHTTP(ctx, ":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
