package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ProductCatalog/internal/events"
	"ProductCatalog/internal/product"
	"ProductCatalog/pkg/kit"
)

type Catalog interface {
	GetProduct(ctx context.Context, id string) (product.Product, error)
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, ev events.OrderCreated) error
}

type Server struct {
	Store     Store
	Catalog   Catalog
	Publisher Publisher
	Log       *zap.Logger
}

type createReq struct {
	Items []Item `json:"items"`
}

const (
	maxCreateBody = 1 << 20
)

func (s *Server) CreateHandler() http.HandlerFunc { return s.create }
func (s *Server) GetHandler() http.HandlerFunc    { return s.get }

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
		return
	}

	req, err := decodeCreateRequest(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if len(req.Items) == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "items required", nil)
		return
	}

	items, err := s.checkItems(r.Context(), req.Items)
	if err != nil {
		s.writeCreateError(w, r, err)
		return
	}

	o := Order{
		ID:        "o_" + uuid.NewString(),
		UserID:    u.ID,
		Items:     items,
		Status:    StatusNew,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Store.Create(r.Context(), o); err != nil {
		s.logError("store create order failed", err, o.ID)
		if isTimeoutErr(err) {
			kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
			return
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	if err := s.Publisher.PublishOrderCreated(r.Context(), orderCreated(o)); err != nil {
		s.logError("publish order_created failed", err, o.ID)
		kit.WriteError(w, r, http.StatusBadGateway, "order stored but not published", map[string]any{"id": o.ID})
		return
	}

	kit.WriteJSON(w, http.StatusCreated, o)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
		return
	}

	id := chi.URLParam(r, "id")
	o, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	if err != nil {
		s.logError("store get order failed", err, id)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if o.UserID != u.ID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, o)
}

func orderCreated(o Order) events.OrderCreated {
	details := make([]events.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		details = append(details, events.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return events.OrderCreated{Order: events.Order{ID: o.ID, OrderDetails: details}}
}

func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (createReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req createReq
	if err := dec.Decode(&req); err != nil {
		return createReq{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return createReq{}, errors.New("extra data after json object")
	}

	return req, nil
}

var (
	errBadItem         = errors.New("bad item")
	errDuplicateItem   = errors.New("duplicate product_id")
	errInvalidProduct  = errors.New("invalid product_id")
	errCatalogDown     = errors.New("catalog unavailable")
	errCatalogUpstream = errors.New("catalog error")
)

// checkItems normalizes the requested items and confirms each product is
// currently offered by the catalog.
func (s *Server) checkItems(ctx context.Context, items []Item) ([]Item, error) {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))

	for _, it := range items {
		pid := strings.TrimSpace(it.ProductID)
		if it.Quantity <= 0 || pid == "" {
			return nil, errBadItem
		}
		if _, dup := seen[pid]; dup {
			return nil, errDuplicateItem
		}
		seen[pid] = struct{}{}

		if _, err := s.Catalog.GetProduct(ctx, pid); err != nil {
			switch {
			case errors.Is(err, ErrCatalogNotFound):
				return nil, errInvalidProduct
			case errors.Is(err, ErrCatalogUnavailable):
				return nil, errCatalogDown
			default:
				if s.Log != nil {
					s.Log.Warn("catalog error", zap.Error(err), zap.String("product_id", pid))
				}
				return nil, errCatalogUpstream
			}
		}

		out = append(out, Item{ProductID: pid, Quantity: it.Quantity})
	}

	return out, nil
}

func (s *Server) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	switch err {
	case errBadItem:
		kit.WriteError(w, r, http.StatusBadRequest, "bad item", nil)
	case errDuplicateItem:
		kit.WriteError(w, r, http.StatusBadRequest, "duplicate product_id", nil)
	case errInvalidProduct:
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product_id", nil)
	case errCatalogDown:
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
	case errCatalogUpstream:
		kit.WriteError(w, r, http.StatusBadGateway, "catalog error", nil)
	default:
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logError(msg string, err error, orderID string) {
	if s.Log != nil {
		s.Log.Error(msg, zap.Error(err), zap.String("order_id", orderID))
	}
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
