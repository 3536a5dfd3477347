package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func healthTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLiveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil, "test")

	rec := httptest.NewRecorder()
	checker.Liveness(rec, httptest.NewRequest("GET", "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCheckHealthyDatabase(t *testing.T) {
	checker := NewHealthChecker(healthTestDB(t), nil, "test")

	status := checker.Check(context.Background())
	if status.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", status.Status)
	}
	if status.Version != "test" {
		t.Errorf("version = %s", status.Version)
	}
	if _, ok := status.Dependencies["database"]; !ok {
		t.Error("database dependency missing from report")
	}
}

func TestCheckUnhealthyDatabase(t *testing.T) {
	db := healthTestDB(t)
	db.Close()
	checker := NewHealthChecker(db, nil, "test")

	status := checker.Check(context.Background())
	if status.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", status.Status)
	}
}

func TestReadinessReports503WhenUnhealthy(t *testing.T) {
	db := healthTestDB(t)
	db.Close()
	checker := NewHealthChecker(db, nil, "test")

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest("GET", "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if status.Status != StatusUnhealthy {
		t.Errorf("body status = %s, want unhealthy", status.Status)
	}
}

func TestRegisterHealthRoutes(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(healthTestDB(t), nil, "test"))

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
