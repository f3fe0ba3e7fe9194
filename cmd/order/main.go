package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ProductCatalog/internal/events"
	"ProductCatalog/internal/order"
	"ProductCatalog/pkg/kit"
	"ProductCatalog/pkg/tracing"
)

func main() {
	service := "order"
	log := kit.NewLogger(service, kit.Getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := kit.Getenv("PORT", "8083")
	catalogURL := kit.Getenv("CATALOG_URL", "http://localhost:8082")
	brokers := kit.GetenvList("KAFKA_BROKERS", "localhost:9092")
	topic := kit.Getenv("ORDER_CREATED_TOPIC", events.TopicOrderCreated)

	tp, err := tracing.Init(service, kit.Getenv("JAEGER_ENDPOINT", ""), log)
	if err != nil {
		log.Fatal("init tracing failed", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(sctx)
	}()

	store, closeStore := openStore(ctx, log)
	defer closeStore()

	publisher := events.NewPublisher(events.NewWriter(brokers), topic)
	defer func() { _ = publisher.Close() }()

	s := &order.Server{
		Store:     store,
		Catalog:   order.NewCatalogClient(catalogURL),
		Publisher: publisher,
		Log:       log,
	}

	h := order.NewHandler(s, order.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     kit.NewRegistry(),
		MetricsToken: os.Getenv("METRICS_TOKEN"),
	})

	if err := kit.ServeHTTP(ctx, ":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// openStore uses Postgres when DATABASE_URL is set and memory otherwise.
func openStore(ctx context.Context, log *zap.Logger) (order.Store, func()) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Warn("DATABASE_URL not set, orders are kept in memory")
		return order.NewMemStore(), func() {}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("open postgres failed", zap.Error(err))
	}

	store := order.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		log.Fatal("migrate postgres failed", zap.Error(err))
	}
	return store, pool.Close
}
