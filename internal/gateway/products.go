package gateway

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductCatalog/internal/cache"
	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/product"
	"ProductCatalog/pkg/kit"
)

// Catalog is the remote source of truth, normally a catalogrpc.Client.
type Catalog interface {
	Get(ctx context.Context, id string, includeUnavailable bool) (product.Product, error)
	List(ctx context.Context, includeUnavailable bool) iter.Seq2[product.Product, error]
	Create(ctx context.Context, in product.Input) (product.Product, error)
	Delete(ctx context.Context, id string) error
	Check(ctx context.Context) error
}

type Cache interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, id string) (product.Product, error)
	List(ctx context.Context) iter.Seq2[product.Product, error]
	Create(ctx context.Context, p product.Product) error
}

const cacheHeader = "X-Cache"

type products struct {
	catalog Catalog
	cache   Cache
	log     *zap.Logger
}

// get serves from the cache mirror and falls back to the catalog on a miss.
// A miss is not back-filled.
func (h *products) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.cache.Get(r.Context(), id)
	if err == nil {
		w.Header().Set(cacheHeader, "HIT")
		kit.WriteJSON(w, http.StatusOK, p)
		return
	}
	if !errors.Is(err, cache.ErrNotFound) {
		h.log.Warn("cache get failed, using catalog", zap.String("id", id), zap.Error(err))
	}

	p, err = h.catalog.Get(r.Context(), id, false)
	if err != nil {
		h.writeError(w, r, "get", err)
		return
	}
	w.Header().Set(cacheHeader, "MISS")
	kit.WriteJSON(w, http.StatusOK, p)
}

func (h *products) list(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "list", h.catalog.List(r.Context(), false))
}

func (h *products) listCache(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "cache list", h.cache.List(r.Context()))
}

func (h *products) stream(w http.ResponseWriter, r *http.Request, op string, seq iter.Seq2[product.Product, error]) {
	started, err := kit.WriteJSONSeq(w, http.StatusOK, seq)
	if err == nil {
		return
	}
	if started {
		h.log.Error(op+" aborted mid-stream", zap.Error(err))
		return
	}
	h.writeError(w, r, op, err)
}

// create writes through the catalog and then mirrors the result. The mirror is
// strict, so re-creating a previously deleted product leaves its old cache
// entry in place.
func (h *products) create(w http.ResponseWriter, r *http.Request) {
	in, ok := catalog.DecodeInput(w, r)
	if !ok {
		return
	}

	p, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "create", err)
		return
	}

	switch err := h.cache.Create(r.Context(), p); {
	case err == nil:
	case errors.Is(err, cache.ErrAlreadyExists):
		h.log.Info("cache entry kept stale", zap.String("id", p.ID))
	default:
		h.log.Warn("cache create failed", zap.String("id", p.ID), zap.Error(err))
	}

	kit.WriteJSON(w, http.StatusCreated, p)
}

func (h *products) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *products) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if catalog.StatusFor(err) >= http.StatusInternalServerError {
		h.log.Error(op+" failed", zap.Error(err))
	}
	catalog.WriteProductError(w, r, err)
}
