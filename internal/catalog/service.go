package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"ProductCatalog/internal/events"
	"ProductCatalog/internal/product"
)

type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, id string, includeUnavailable bool) (product.Product, error)
	List(ctx context.Context, includeUnavailable bool) iter.Seq2[product.Product, error]
	Create(ctx context.Context, p product.Product) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, amount int) (int, error)
}

// EventPolicy decides what an order_created event does after a line item fails.
type EventPolicy int

const (
	// BestEffort attempts every line item and joins the failures.
	BestEffort EventPolicy = iota
	// FailFast stops at the first failing line item.
	FailFast
)

func ParseEventPolicy(s string) (EventPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best-effort":
		return BestEffort, nil
	case "fail-fast":
		return FailFast, nil
	default:
		return BestEffort, fmt.Errorf("unknown order event policy %q", s)
	}
}

func (p EventPolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "best-effort"
}

type Service struct {
	store   Store
	log     *zap.Logger
	metrics *Metrics
	policy  EventPolicy
	tracer  trace.Tracer
}

// NewService wires the catalog façade. metrics may be nil.
func NewService(store Store, log *zap.Logger, metrics *Metrics, policy EventPolicy) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		log:     log,
		metrics: metrics,
		policy:  policy,
		tracer:  otel.Tracer("catalog"),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Get(ctx context.Context, id string, getUnavailable bool) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Catalog.Get", trace.WithAttributes(
		attribute.String("product.id", id),
		attribute.Bool("include_unavailable", getUnavailable),
	))
	defer span.End()

	p, err := s.store.Get(ctx, id, getUnavailable)
	if err != nil {
		s.fail(span, "get", id, err)
		return product.Product{}, err
	}
	return p, nil
}

// List streams products straight from the store; nothing is buffered.
func (s *Service) List(ctx context.Context, listUnavailable bool) iter.Seq2[product.Product, error] {
	return func(yield func(product.Product, error) bool) {
		ctx, span := s.tracer.Start(ctx, "Catalog.List", trace.WithAttributes(
			attribute.Bool("include_unavailable", listUnavailable),
		))
		defer span.End()

		n := 0
		for p, err := range s.store.List(ctx, listUnavailable) {
			if err != nil {
				s.fail(span, "list", "", err)
			} else {
				n++
			}
			if !yield(p, err) {
				break
			}
		}
		span.SetAttributes(attribute.Int("products.count", n))
	}
}

func (s *Service) Create(ctx context.Context, in product.Input) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Catalog.Create")
	defer span.End()

	p, err := in.Validate()
	if err != nil {
		s.fail(span, "create", "", err)
		return product.Product{}, err
	}
	span.SetAttributes(attribute.String("product.id", p.ID))

	if err := s.store.Create(ctx, p); err != nil {
		s.fail(span, "create", p.ID, err)
		return product.Product{}, err
	}
	p.Available = true

	s.log.Info("product created", zap.String("id", p.ID), zap.Int("in_stock", p.InStock))
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "Catalog.Delete", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		s.fail(span, "delete", id, err)
		return err
	}
	s.log.Info("product deleted", zap.String("id", id))
	return nil
}

// HandleOrderCreated takes every line item out of stock according to the
// service's EventPolicy.
func (s *Service) HandleOrderCreated(ctx context.Context, ev events.OrderCreated) error {
	ctx, span := s.tracer.Start(ctx, "Catalog.HandleOrderCreated", trace.WithAttributes(
		attribute.String("order.id", ev.Order.ID),
		attribute.Int("order.items", len(ev.Order.OrderDetails)),
		attribute.String("policy", s.policy.String()),
	))
	defer span.End()

	var errs []error
	for _, item := range ev.Order.OrderDetails {
		left, err := s.store.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.metrics.stockDecrement(resultFor(err))
			err = fmt.Errorf("order %s item %s: %w", ev.Order.ID, item.ProductID, err)
			s.fail(span, "decrement_stock", item.ProductID, err)
			if s.policy == FailFast {
				s.metrics.orderEvent(resultFailed)
				return err
			}
			errs = append(errs, err)
			continue
		}

		s.metrics.stockDecrement(resultOK)
		s.log.Info("stock decremented",
			zap.String("order_id", ev.Order.ID),
			zap.String("product_id", item.ProductID),
			zap.Int("quantity", item.Quantity),
			zap.Int("in_stock", left),
		)
	}

	if len(errs) > 0 {
		s.metrics.orderEvent(resultPartial)
		return errors.Join(errs...)
	}
	s.metrics.orderEvent(resultOK)
	return nil
}

// fail records err on the span. Domain outcomes (not found, conflicts, bad
// input) log at info; anything else is an error.
func (s *Service) fail(span trace.Span, op, id string, err error) {
	span.RecordError(err)
	kind := product.KindOf(err)
	if kind == product.KindUnknown || kind == product.KindCorruptRecord {
		span.SetStatus(codes.Error, op+" failed")
		s.log.Error(op+" failed", zap.String("id", id), zap.Error(err))
		return
	}
	s.log.Info(op+" rejected", zap.String("id", id), zap.Stringer("kind", kind), zap.Error(err))
}
