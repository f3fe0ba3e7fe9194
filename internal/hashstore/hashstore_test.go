package hashstore

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestReadWrite(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	_, found, err := Read(ctx, c, "h:1")
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}

	if err := Write(ctx, c, "h:1", map[string]string{"a": "1", "b": "two"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	fields, found, err := Read(ctx, c, "h:1")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if fields["a"] != "1" || fields["b"] != "two" || len(fields) != 2 {
		t.Fatalf("fields=%v", fields)
	}
}

func TestKeys_MatchesPatternOnly(t *testing.T) {
	c, mr := newClient(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		mr.HSet(fmt.Sprintf("products:%d", i), "id", fmt.Sprint(i))
	}
	mr.HSet("idem:orders:0:1", "x", "1")
	mr.Set("productsX", "1")

	var got []string
	for key, err := range Keys(ctx, c, "products:*") {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, key)
	}

	if len(got) != 250 {
		t.Fatalf("got %d keys", len(got))
	}
	sort.Strings(got)
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("duplicate key %s", got[i])
		}
	}
}

func TestKeys_StopsEarly(t *testing.T) {
	c, mr := newClient(t)
	for i := 0; i < 10; i++ {
		mr.HSet(fmt.Sprintf("products:%d", i), "id", fmt.Sprint(i))
	}

	n := 0
	for _, err := range Keys(context.Background(), c, "products:*") {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("n=%d", n)
	}
}

func TestKeys_ReportsError(t *testing.T) {
	c, mr := newClient(t)
	mr.Close()

	var gotErr error
	for _, err := range Keys(context.Background(), c, "products:*") {
		gotErr = err
	}
	if gotErr == nil {
		t.Fatalf("expected scan error")
	}
}

func TestNewClient_DBOverride(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/1", 3)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()
	if c.Options().DB != 3 {
		t.Fatalf("db=%d", c.Options().DB)
	}

	c2, err := NewClient("redis://localhost:6379/1", -1)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c2.Close()
	if c2.Options().DB != 1 {
		t.Fatalf("db=%d", c2.Options().DB)
	}

	if _, err := NewClient("http://nope", 0); err == nil {
		t.Fatalf("expected parse error")
	}
}
