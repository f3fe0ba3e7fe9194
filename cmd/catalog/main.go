package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/catalogrpc"
	"ProductCatalog/internal/events"
	"ProductCatalog/internal/hashstore"
	"ProductCatalog/internal/storage"
	"ProductCatalog/pkg/kit"
	"ProductCatalog/pkg/tracing"
)

func main() {
	service := "catalog"
	log := kit.NewLogger(service, kit.Getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	if err := run(log, service); err != nil {
		log.Fatal("catalog stopped", zap.Error(err))
	}
}

func run(log *zap.Logger, service string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpAddr := ":" + kit.Getenv("HTTP_PORT", "8082")
	grpcAddr := kit.Getenv("GRPC_ADDR", ":50051")
	brokers := kit.GetenvList("KAFKA_BROKERS", "")
	topic := kit.Getenv("ORDER_CREATED_TOPIC", events.TopicOrderCreated)
	group := kit.Getenv("CONSUMER_GROUP", "catalog")
	eventTimeout := kit.GetenvDuration("EVENT_TIMEOUT", 5*time.Second)
	idemTTL := kit.GetenvDuration("IDEMPOTENCY_TTL", 24*time.Hour)

	policy, err := catalog.ParseEventPolicy(kit.Getenv("ORDER_EVENT_POLICY", "best-effort"))
	if err != nil {
		return err
	}

	tp, err := tracing.Init(service, kit.Getenv("JAEGER_ENDPOINT", ""), log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(sctx)
	}()

	rdb, err := hashstore.NewClient(kit.Getenv("REDIS_URI", "redis://localhost:6379/0"), -1)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	reg := kit.NewRegistry()
	svc := catalog.NewService(storage.New(rdb), log, catalog.NewMetrics(reg), policy)

	h := catalog.NewHandler(&catalog.Server{Service: svc, Log: log}, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	})

	gs := catalogrpc.NewGRPCServer(log)
	health := catalogrpc.Register(gs, catalogrpc.NewServer(svc))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return kit.ServeHTTP(gctx, httpAddr, h, log)
	})

	g.Go(func() error {
		return serveGRPC(gctx, grpcAddr, gs, log)
	})

	g.Go(func() error {
		<-gctx.Done()
		health.Shutdown()
		return nil
	})

	if len(brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, order events are not consumed")
	} else {
		consumer := events.NewConsumer(
			log.With(zap.String("component", "consumer")),
			events.NewReader(brokers, topic, group),
			svc,
			events.NewDeduper(rdb, idemTTL),
			eventTimeout,
		)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	log.Info("catalog started",
		zap.String("http", httpAddr),
		zap.String("grpc", grpcAddr),
		zap.Strings("brokers", brokers),
		zap.Stringer("policy", policy),
	)
	return g.Wait()
}

func serveGRPC(ctx context.Context, addr string, gs *grpc.Server, log *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("grpc server starting", zap.String("addr", addr))
		errCh <- gs.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		log.Info("grpc server stopping", zap.String("addr", addr))
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
