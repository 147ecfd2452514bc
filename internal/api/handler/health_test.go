package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestLiveness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", nil, nil)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	cases := []struct {
		name   string
		deps   []Dependency
		status int
		want   string
	}{
		{"all up", []Dependency{{"mongo", ok}, {"redis", ok}}, http.StatusOK, "ok"},
		{"redis down", []Dependency{{"mongo", ok}, {"redis", down}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/health/ready", nil, nil)

			if err := NewHealthDependenciesHandler(tc.deps...).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}

			var body readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Status != tc.want || len(body.Dependencies) != len(tc.deps) {
				t.Fatalf("unexpected body: %+v", body)
			}
			if tc.want == "degraded" && body.Dependencies["redis"].Error != "connection refused" {
				t.Fatalf("expected redis error to be reported: %+v", body.Dependencies)
			}
		})
	}
}
