package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ProductCatalog/internal/product"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	s, _ := newTestService(t, BestEffort)
	return NewHandler(&Server{Service: s, Log: zap.NewNop()}, HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "catalog",
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "tok",
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const p1 = `{"id":"P1","title":"Shuttle","passenger_capacity":"6","maximum_speed":28000,"in_stock":3}`

func TestHTTP_ProductLifecycle(t *testing.T) {
	h := newTestHandler(t)

	if rec := do(t, h, http.MethodGet, "/products/P1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get unknown status=%d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/products", p1)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "available") {
		t.Fatalf("available must not leak: %s", rec.Body)
	}

	if rec := do(t, h, http.MethodPost, "/products", p1); rec.Code != http.StatusConflict {
		t.Fatalf("second create status=%d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/products/P1", "")
	var got product.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.PassengerCapacity != 6 {
		t.Fatalf("get status=%d body=%s", rec.Code, rec.Body)
	}

	if rec := do(t, h, http.MethodDelete, "/products/P1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/products/P1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/products/P1?include_unavailable=true", ""); rec.Code != http.StatusOK {
		t.Fatalf("get unavailable status=%d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/products", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("list status=%d body=%q", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/products?include_unavailable=true", "")
	var all []product.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil || len(all) != 1 {
		t.Fatalf("list all body=%s err=%v", rec.Body, err)
	}
}

func TestHTTP_CreateRejectsBadInput(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		name, body string
	}{
		{"not json", `{`},
		{"missing title", `{"id":"P1","passenger_capacity":1,"maximum_speed":1,"in_stock":1}`},
		{"negative speed", `{"id":"P1","title":"x","passenger_capacity":1,"maximum_speed":-1,"in_stock":1}`},
		{"non-numeric", `{"id":"P1","title":"x","passenger_capacity":"lots","maximum_speed":1,"in_stock":1}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/products", c.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
			}
		})
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	h := newTestHandler(t)

	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("metrics without token=%d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics=%d", rec.Code)
	}
}
