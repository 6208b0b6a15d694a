package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ecommerce-datagen/internal/inventory"
	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger, err := inventory.NewMemoryLedger([]models.Product{
		{ID: "prod_00001", CategoryID: "cat_000", Price: 9.99, Stock: 3, Active: true},
	})
	require.NoError(t, err)
	ok, err := ledger.Reserve(context.Background(), "prod_00001", 1)
	require.NoError(t, err)
	require.True(t, ok)

	router := gin.New()
	h := NewHandler(ledger)
	h.SetupRoutes(router)
	return router, h
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestReadinessFollowsSummary(t *testing.T) {
	router, h := setupRouter(t)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/api/v1/summary").Code)

	h.SetSummary(service.Summary{Seed: 42, Sessions: 10, Transactions: 4, SessionsByStatus: map[string]int{"browsed": 10}})

	assert.Equal(t, http.StatusOK, get(router, "/ready").Code)

	w := get(router, "/api/v1/summary")
	require.Equal(t, http.StatusOK, w.Code)
	var s service.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, 4, s.Transactions)
	assert.Equal(t, 10, s.SessionsByStatus["browsed"])
}

func TestGetInventory(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(router, "/api/v1/inventory/prod_00001")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "prod_00001", body["product_id"])
	assert.Equal(t, float64(2), body["stock"])
	assert.Equal(t, true, body["available"])

	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/inventory/missing").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	get(router, "/health")

	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
