package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestRecordHelpersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordToolCall("analyze_stock", ResultSuccess, 0.42)
		RecordToolCall("analyze_stock", ResultTimeout, 15.0)
		RecordLLMRequest(LLMCallDecision, ResultSuccess, 1.2)
		RecordLLMRequest(LLMCallSynthesis, ResultError, 0.1)
		RecordCacheLookup(true)
		RecordCacheLookup(false)
		ActiveConversations.Set(3)
	})
}

func TestMetricsExposition(t *testing.T) {
	RecordToolCall("get_quote", ResultSuccess, 0.1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stockadvisor_tool_calls_total")
	assert.Contains(t, body, "# HELP")
}

func TestGinMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/v1/analyze/:symbol", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/AAPL", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The route template, not the raw path, must be the label.
	mrec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mrec.Body.String(), "/api/v1/analyze/:symbol")
	assert.NotContains(t, mrec.Body.String(), `route="/api/v1/analyze/AAPL"`)
}
