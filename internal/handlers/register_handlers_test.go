package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/handlers"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := services.NewHub(services.WithMaxBackoff(50 * time.Millisecond))
	t.Cleanup(hub.Close)
	container := services.NewServiceContainer(cfg, memory.NewRepositoryProvider(memory.NewStore()), hub, nil)

	r := gin.New()
	require.NoError(t, handlers.RegisterRoutes(r, cfg, container))
	return r
}

func send(r *gin.Engine, method, url, owner string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_OnlyWrites(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = "2-M"
	r := newRouter(t, cfg)
	record := gin.H{"name": "Lunch", "amount": "10", "category": "Food", "kind": "expense", "occurredOn": "2024-06-10"}

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/v1/records", "owner-rl", nil).Code, "read %d", i)
	}

	assert.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/api/v1/records", "owner-rl", record).Code)
	assert.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/api/v1/records", "owner-rl", record).Code)
	w := send(r, http.MethodPost, "/api/v1/records", "owner-rl", record)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	// Every write shares the owner's quota.
	assert.Equal(t, http.StatusTooManyRequests, send(r, http.MethodPost, "/api/v1/budgets", "owner-rl", gin.H{"category": "Food", "amount": "100"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, send(r, http.MethodPut, "/api/v1/profile/currency", "owner-rl", gin.H{"currency": "USD"}).Code)

	// Reads keep working once the write quota is spent.
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/v1/records", "owner-rl", nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/v1/balance", "owner-rl", nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/v1/reports/dashboard", "owner-rl", nil).Code)
	assert.Empty(t, send(r, http.MethodGet, "/api/v1/records", "owner-rl", nil).Header().Get("X-RateLimit-Limit"))

	// Quotas are per owner.
	assert.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/api/v1/records", "owner-other", record).Code)
}

func TestSwagger_ServesDocs(t *testing.T) {
	r := newRouter(t, testConfig())

	w := send(r, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		BasePath            string                    `json:"basePath"`
		Paths               map[string]map[string]any `json:"paths"`
		SecurityDefinitions map[string]map[string]any `json:"securityDefinitions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)

	routes := map[string][]string{
		"/records":                          {"get", "post"},
		"/records/{id}":                     {"get", "patch", "delete"},
		"/budgets":                          {"get", "post"},
		"/budgets/pin":                      {"put", "delete"},
		"/balance":                          {"get"},
		"/rates/refresh":                    {"post"},
		"/reports/monthly-totals":           {"get"},
		"/reports/category-breakdown":       {"get"},
		"/reports/daily-buckets":            {"get"},
		"/reports/dashboard":                {"get"},
		"/subscriptions/balance":            {"get"},
		"/subscriptions/category-breakdown": {"get"},
	}
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, path) {
			continue
		}
		for _, m := range methods {
			assert.Contains(t, ops, m, path)
		}
	}
	assert.Equal(t, middleware.OwnerHeader, doc.SecurityDefinitions["OwnerAuth"]["name"])
}

func TestSwagger_HiddenInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.IsProduction = true
	r := newRouter(t, cfg)

	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/swagger/doc.json", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/swagger/index.html", "", nil).Code)
}
