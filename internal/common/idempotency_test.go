package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestIdemMiddlewareRejectsReplay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	idem := Idem{R: client, TTL: time.Minute}
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", nil)
	req.Header.Set("Idempotency-Key", "sale-2026-001")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req.Clone(req.Context()))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected replay to be rejected with 409, got %d", second.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdemMiddlewarePassesWithoutKey(t *testing.T) {
	idem := Idem{}
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls)
	}
}
