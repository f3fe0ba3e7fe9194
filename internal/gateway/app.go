package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ProductCatalog/internal/auth"
	"ProductCatalog/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	Catalog   Catalog
	Cache     Cache
	OrderURL  string
	JWTSecret string

	// WriteLimit caps product mutations per client IP per minute.
	WriteLimit int
}

const (
	readyTimeout      = 2 * time.Second
	readyProbeTimeout = 700 * time.Millisecond
	limitWindow       = 60 * time.Second

	defaultWriteLimit = 30
)

var readyClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	},
}

func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	if deps.Catalog == nil || deps.Cache == nil {
		return nil, errors.New("gateway: catalog and cache are required")
	}
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
	}

	orderProxy, err := NewReverseProxy(deps.OrderURL, log)
	if err != nil {
		return nil, err
	}

	limit := deps.WriteLimit
	if limit <= 0 {
		limit = defaultWriteLimit
	}
	writeLimiter := kit.NewIPRateLimiter(limit, limitWindow)

	jwt := auth.NewTokenMaker(deps.JWTSecret)
	ph := &products{catalog: deps.Catalog, cache: deps.Cache, log: log}

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, log))

	r.Get("/products", ph.list)
	r.Get("/products/{id}", ph.get)
	r.Get("/cache/products", ph.listCache)

	r.Group(func(ar chi.Router) {
		ar.Use(writeLimiter.Middleware)
		ar.Use(AuthJWT(jwt))
		ar.Use(RequireRole(auth.RoleAdmin))
		ar.Post("/products", ph.create)
		ar.Delete("/products/{id}", ph.delete)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(AuthJWT(jwt))
		pr.Use(InjectHeaders)
		pr.Handle("/orders", orderProxy)
		pr.Handle("/orders/*", orderProxy)
	})

	return r, nil
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service))

	if !deps.MetricsEnabled {
		return
	}

	r.Handle("/metrics", kit.MetricsHandler(deps.Registry, deps.MetricsToken))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := probe(ctx, deps.Cache.Ping); err != nil {
			log.Warn("readyz failed: cache", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "cache not ready", nil)
			return
		}

		if err := probe(ctx, deps.Catalog.Check); err != nil {
			log.Warn("readyz failed: catalog", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
			return
		}

		if err := probe(ctx, func(ctx context.Context) error { return checkReady(ctx, deps.OrderURL+"/readyz") }); err != nil {
			log.Warn("readyz failed: order", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "order not ready", nil)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func probe(ctx context.Context, check func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, readyProbeTimeout)
	defer cancel()
	return check(cctx)
}

func checkReady(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := readyClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d", resp.StatusCode)
	}

	return nil
}
