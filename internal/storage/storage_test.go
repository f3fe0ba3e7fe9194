package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ProductCatalog/internal/product"
)

func newEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func boat(id string) product.Product {
	return product.Product{ID: id, Title: "Boat", PassengerCapacity: 4, MaximumSpeed: 30, InStock: 10}
}

func collect(t *testing.T, e *Engine, includeUnavailable bool) map[string]product.Product {
	t.Helper()
	out := map[string]product.Product{}
	for p, err := range e.List(context.Background(), includeUnavailable) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		out[p.ID] = p
	}
	return out
}

func TestGet_NeverCreated(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.Get(context.Background(), "ghost", false)
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	_, err = e.Get(context.Background(), "ghost", true)
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("include unavailable: err=%v", err)
	}
	if len(collect(t, e, true)) != 0 {
		t.Fatalf("list should be empty")
	}
}

func TestCreate_ThenGet(t *testing.T) {
	e, mr := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := e.Get(ctx, "P1", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := boat("P1")
	want.Available = true
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if v := mr.HGet("products:P1", "available"); v != "True" {
		t.Fatalf("stored available=%q", v)
	}
	if v := mr.HGet("products:P1", "passenger_capacity"); v != "4" {
		t.Fatalf("stored passenger_capacity=%q", v)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := e.Create(ctx, boat("P1"))
	if !errors.Is(err, product.ErrAlreadyExists) {
		t.Fatalf("err=%v", err)
	}
}

func TestDelete_SoftDeletes(t *testing.T) {
	e, mr := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.Delete(ctx, "P1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := e.Get(ctx, "P1", false); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("get after delete: err=%v", err)
	}

	got, err := e.Get(ctx, "P1", true)
	if err != nil {
		t.Fatalf("get unavailable: %v", err)
	}
	if got.Available || got.Title != "Boat" || got.InStock != 10 {
		t.Fatalf("got %+v", got)
	}
	if v := mr.HGet("products:P1", "available"); v != "False" {
		t.Fatalf("stored available=%q", v)
	}

	if err := e.Delete(ctx, "P1"); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("second delete: err=%v", err)
	}
}

func TestCreate_ResurrectsDeleted(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.Delete(ctx, "P1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	next := product.Product{ID: "P1", Title: "Catamaran", PassengerCapacity: 12, MaximumSpeed: 22, InStock: 3}
	if err := e.Create(ctx, next); err != nil {
		t.Fatalf("recreate: %v", err)
	}

	got, err := e.Get(ctx, "P1", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	next.Available = true
	if got != next {
		t.Fatalf("got %+v want %+v", got, next)
	}
}

func TestList_FiltersUnavailable(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := e.Create(ctx, boat(fmt.Sprintf("P%d", i))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := e.Delete(ctx, "P2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	visible := collect(t, e, false)
	if len(visible) != 4 {
		t.Fatalf("visible=%d", len(visible))
	}
	if _, ok := visible["P2"]; ok {
		t.Fatalf("deleted product listed")
	}

	all := collect(t, e, true)
	if len(all) != 5 || all["P2"].Available {
		t.Fatalf("all=%v", all)
	}
}

func TestList_IgnoresOtherKeys(t *testing.T) {
	e, mr := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.Set("idem:orders.order_created:0:7", "1")
	mr.HSet("orders:1", "id", "1")

	if got := collect(t, e, true); len(got) != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestList_YieldsCorruptRecord(t *testing.T) {
	e, mr := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.HSet("products:broken", "in_stock", "-2")

	var good, corrupt int
	for _, err := range e.List(ctx, true) {
		switch {
		case err == nil:
			good++
		case errors.Is(err, product.ErrCorruptRecord):
			corrupt++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if good != 1 || corrupt != 1 {
		t.Fatalf("good=%d corrupt=%d", good, corrupt)
	}
}

func TestList_Restartable(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	seq := e.List(ctx, false)
	count := func() int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			n++
		}
		return n
	}

	if n := count(); n != 0 {
		t.Fatalf("n=%d", n)
	}
	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := count(); n != 1 {
		t.Fatalf("each iteration must rescan, n=%d", n)
	}
}

func TestDecrementStock(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	left, err := e.DecrementStock(ctx, "P1", 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if left != 7 {
		t.Fatalf("left=%d", left)
	}

	left, err = e.DecrementStock(ctx, "P1", 9)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if left != -2 {
		t.Fatalf("no floor expected, left=%d", left)
	}

	got, err := e.Get(ctx, "P1", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.InStock != -2 || got.Title != "Boat" {
		t.Fatalf("got %+v", got)
	}
}

func TestDecrementStock_SoftDeletedStillCounts(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.Delete(ctx, "P1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	left, err := e.DecrementStock(ctx, "P1", 1)
	if err != nil || left != 9 {
		t.Fatalf("left=%d err=%v", left, err)
	}
}

func TestDecrementStock_MissingKey(t *testing.T) {
	e, mr := newEngine(t)

	_, err := e.DecrementStock(context.Background(), "ghost", 2)
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if mr.Exists("products:ghost") {
		t.Fatalf("decrement must not create a partial record")
	}
}

func TestDecrementStock_Concurrent(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if err := e.Create(ctx, boat("P1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for _, amount := range []int{3, 4} {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := e.DecrementStock(ctx, "P1", n); err != nil {
				t.Errorf("decrement %d: %v", n, err)
			}
		}(amount)
	}
	wg.Wait()

	got, err := e.Get(ctx, "P1", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.InStock != 3 {
		t.Fatalf("in_stock=%d", got.InStock)
	}
}

func TestDecrementStock_ManyConcurrent(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	p := boat("P1")
	p.InStock = 100
	if err := e.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.DecrementStock(ctx, "P1", 1); err != nil {
				t.Errorf("decrement: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := e.Get(ctx, "P1", false)
	if got.InStock != 50 {
		t.Fatalf("in_stock=%d", got.InStock)
	}
}

func TestGet_CorruptRecord(t *testing.T) {
	e, mr := newEngine(t)
	mr.HSet("products:P1", "in_stock", "5")

	_, err := e.Get(context.Background(), "P1", false)
	if product.KindOf(err) != product.KindCorruptRecord {
		t.Fatalf("err=%v", err)
	}
}

func TestPing(t *testing.T) {
	e, mr := newEngine(t)
	if err := e.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := e.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure")
	}
}
