package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Should label requests with the route template", func(t *testing.T) {
		ResetMetricsForTesting()
		reader := sdkmetric.NewManualReader()
		meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
		r := gin.New()
		r.Use(HTTPMetrics(context.Background(), meter))
		r.GET("/rag/documents/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rag/documents/abc", http.NoBody))
		assert.Equal(t, http.StatusNoContent, w.Code)

		got := collect(t, reader)
		total, ok := got["docrag_http_requests_total"]
		require.True(t, ok)
		sum, ok := total.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		attrs := sum.DataPoints[0].Attributes.ToSlice()
		assert.Contains(t, attrs, attribute.String("path", "/rag/documents/:id"))
		assert.Contains(t, attrs, attribute.String("status_code", "204"))
		assert.Contains(t, got, "docrag_http_request_duration_seconds")
	})

	t.Run("Should group unknown routes", func(t *testing.T) {
		ResetMetricsForTesting()
		reader := sdkmetric.NewManualReader()
		meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
		r := gin.New()
		r.Use(HTTPMetrics(context.Background(), meter))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)

		sum := collect(t, reader)["docrag_http_requests_total"].Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Contains(t, sum.DataPoints[0].Attributes.ToSlice(), attribute.String("path", "unmatched"))
	})
}
