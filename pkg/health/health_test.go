package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixed(status Status) CheckFunc {
	return func(ctx context.Context) Check {
		return Check{Status: status}
	}
}

func TestCheck_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, s := range tt.statuses {
				hc.RegisterCheck(string(rune('a'+i)), fixed(s))
			}
			resp := hc.Check(context.Background())
			if resp.Status != tt.want {
				t.Errorf("status = %s, want %s", resp.Status, tt.want)
			}
			if len(resp.Checks) != len(tt.statuses) {
				t.Errorf("checks = %d, want %d", len(resp.Checks), len(tt.statuses))
			}
		})
	}
}

func TestCheck_FillsNameAndTiming(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("store", fixed(StatusHealthy))

	c := hc.Check(context.Background()).Checks["store"]
	if c.Name != "store" {
		t.Errorf("name = %q, want store", c.Name)
	}
	if c.LastChecked.IsZero() {
		t.Error("LastChecked not set")
	}
}

func TestReadinessSeparateFromHealth(t *testing.T) {
	hc := NewHealthChecker()
	called := false
	hc.RegisterReadinessCheck("store", func(ctx context.Context) Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	hc.Check(context.Background())
	if called {
		t.Error("readiness check ran for Check()")
	}
	hc.CheckReadiness(context.Background())
	if !called {
		t.Error("readiness check did not run")
	}
}

func TestCheck_Timeout(t *testing.T) {
	hc := NewHealthChecker()
	hc.timeout = 10 * time.Millisecond
	hc.RegisterCheck("store", StoreCheck(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	resp := hc.Check(context.Background())
	if resp.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", resp.Status)
	}
	if resp.Checks["store"].Message != context.DeadlineExceeded.Error() {
		t.Errorf("message = %q", resp.Checks["store"].Message)
	}
}

func TestStoreCheck(t *testing.T) {
	ok := StoreCheck(func(context.Context) error { return nil })(context.Background())
	if ok.Status != StatusHealthy || ok.Name != "store" {
		t.Errorf("healthy store check = %+v", ok)
	}

	bad := StoreCheck(func(context.Context) error { return errors.New("store is closed") })(context.Background())
	if bad.Status != StatusUnhealthy || bad.Message != "store is closed" {
		t.Errorf("failing store check = %+v", bad)
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		alloc, sys uint64
		want       Status
	}{
		{100, 1000, StatusHealthy},
		{950, 1000, StatusDegraded},
		{1, 0, StatusHealthy},
	}
	for _, tt := range tests {
		got := MemoryCheck(func() (uint64, uint64) { return tt.alloc, tt.sys })(context.Background())
		if got.Status != tt.want {
			t.Errorf("MemoryCheck(%d, %d) = %s, want %s", tt.alloc, tt.sys, got.Status, tt.want)
		}
	}

	if got := MemoryCheck(nil)(context.Background()); got.Details["sys_bytes"] == uint64(0) {
		t.Error("runtime memory stats not read")
	}
}

func TestHandlers(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("memory", fixed(StatusDegraded))
	hc.RegisterReadinessCheck("store", fixed(StatusDegraded))

	rec := httptest.NewRecorder()
	hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health code = %d, want 200 when degraded", rec.Code)
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("status = %s", resp.Status)
	}

	rec = httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready code = %d, want 503 when not healthy", rec.Code)
	}
}
