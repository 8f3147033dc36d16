package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
)

func callHealth(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, body
}

func TestHealthHandler_Healthy(t *testing.T) {
	ping := PingerFunc(func(context.Context) error { return nil })
	stats := func() PoolStats { return PoolStats{Driver: "pgx", TotalConns: 3, MaxConns: 20} }

	rec, body := callHealth(t, HealthHandler(ping, stats))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	pool, _ := body["pool"].(map[string]any)
	if pool["driver"] != "pgx" || pool["max_conns"] != float64(20) {
		t.Errorf("unexpected pool stats: %v", pool)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	ping := PingerFunc(func(context.Context) error {
		return errors.New("dial tcp db.internal:5432: i/o timeout")
	})

	rec, body := callHealth(t, HealthHandler(ping, nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("expected unhealthy, got %v", body["status"])
	}
	if strings.Contains(rec.Body.String(), "db.internal") {
		t.Error("ping error leaked into health response")
	}
}

func TestSQLStats(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(7)
	mock.ExpectPing()

	rec, body := callHealth(t, HealthHandler(PingerFunc(sqlDB.PingContext), SQLStats(sqlDB)))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	pool, _ := body["pool"].(map[string]any)
	if pool["driver"] != "postgres" || pool["max_conns"] != float64(7) {
		t.Errorf("unexpected pool stats: %v", pool)
	}
}
