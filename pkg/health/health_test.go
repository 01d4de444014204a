package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestRunAggregatesStatus(t *testing.T) {
	tests := []struct {
		name     string
		register func(c *Checker)
		want     Status
	}{
		{"all up", func(c *Checker) {
			c.Register("store", true, up)
			c.Register("qdrant", false, up)
		}, StatusUp},
		{"optional down", func(c *Checker) {
			c.Register("store", true, up)
			c.Register("qdrant", false, down)
		}, StatusDegraded},
		{"critical down", func(c *Checker) {
			c.Register("store", true, down)
			c.Register("qdrant", false, up)
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			tt.register(c)
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, 2)
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("store", true, down)

	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "connection refused", report.Components["store"].Message)

	rec = httptest.NewRecorder()
	c.LiveHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
