package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductCatalog/internal/product"
	"ProductCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Service *Service
	Log     *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Service.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/products", s.list)
	r.Post("/products", s.create)
	r.Get("/products/{id}", s.get)
	r.Delete("/products/{id}", s.delete)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	started, err := kit.WriteJSONSeq(w, http.StatusOK, s.Service.List(r.Context(), includeUnavailable(r)))
	if err == nil {
		return
	}
	if started {
		if s.Log != nil {
			s.Log.Error("list products aborted mid-stream", zap.Error(err))
		}
		return
	}
	WriteProductError(w, r, err)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	p, err := s.Service.Get(r.Context(), chi.URLParam(r, "id"), includeUnavailable(r))
	if err != nil {
		WriteProductError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	in, ok := DecodeInput(w, r)
	if !ok {
		return
	}

	p, err := s.Service.Create(r.Context(), in)
	if err != nil {
		WriteProductError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteProductError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func includeUnavailable(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("include_unavailable"))
	return v
}

// DecodeInput reads a create payload, writing a 400 itself when the body is not
// a product object.
func DecodeInput(w http.ResponseWriter, r *http.Request) (product.Input, bool) {
	var in product.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid json", map[string]any{"reason": err.Error()})
		return product.Input{}, false
	}
	return in, true
}

// StatusFor maps a catalog error to its HTTP status.
func StatusFor(err error) int {
	switch product.KindOf(err) {
	case product.KindNotFound, product.KindNotFoundInCache:
		return http.StatusNotFound
	case product.KindAlreadyExists, product.KindAlreadyExistsInCache:
		return http.StatusConflict
	case product.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func WriteProductError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		kit.WriteError(w, r, status, "server error", nil)
		return
	}

	var details any
	var ve *product.ValidationError
	if errors.As(err, &ve) {
		details = map[string]any{"field": ve.Field, "reason": ve.Reason}
	}
	kit.WriteError(w, r, status, err.Error(), details)
}
