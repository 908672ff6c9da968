package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-errorhandler/internal/errorhandling"
	"go-errorhandler/internal/observability"
	"go-errorhandler/internal/route"
	"go-errorhandler/internal/service"
	"go-errorhandler/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	observability.SetOutput(io.Discard)
}

// newTestRouter wires a "requests" route: error handling setup, then the
// JSON message processor.
func newTestRouter(t *testing.T, configure func(a *errorhandling.Action)) (*gin.Engine, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	rc := route.NewContext(route.Options{Metrics: observability.NewPrometheusMetrics(reg)})
	def := route.NewDefinition("requests")
	require.NoError(t, rc.AddRoute(def))

	action := errorhandling.New(rc)
	if configure != nil {
		configure(action)
	}
	def.Process(action.Setup, service.NewMessageProcessor().Process)

	return NewRouter(Options{Routes: rc, Gatherer: reg}), reg
}

func doRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSend_SuccessEchoesProcessedBody(t *testing.T) {
	r, _ := newTestRouter(t, func(a *errorhandling.Action) { a.SetStatusCode(400) })

	w := doRequest(r, http.MethodPost, "/routes/requests", `{"order_id":"ORD-1"}`, map[string]string{
		"Content-Type": "application/json",
		"X-Request-ID": "rid-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, w.Body.String())
	assert.Equal(t, "rid-1", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "rid-1", w.Header().Get("X-Message-ID"))
}

func TestSend_FailureReturnsConfiguredStatusWithEmptyBody(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "Default", status: errorhandling.DefaultStatusCode},
		{name: "Unauthorized", status: http.StatusUnauthorized},
		{name: "Unprocessable", status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, reg := newTestRouter(t, func(a *errorhandling.Action) { a.SetStatusCode(tt.status) })

			w := doRequest(r, http.MethodPost, "/routes/requests", `not json`, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Body.String())

			families, err := reg.Gather()
			require.NoError(t, err)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			assert.Contains(t, names, "errorhandler_route_failures_total")
		})
	}
}

func TestSend_UnconfiguredActionReturnsServerError(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doRequest(r, http.MethodPost, "/routes/requests", `not json`, map[string]string{
		"X-Request-ID": "rid-500",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeRouteFailure, resp.Code)
	assert.Equal(t, "rid-500", resp.RequestID)
}

func TestSend_InvalidStatusCodeIsRouteFailure(t *testing.T) {
	for _, code := range []int{0, 42, 1000} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			r, _ := newTestRouter(t, func(a *errorhandling.Action) { a.SetStatusCode(code) })

			w := doRequest(r, http.MethodPost, "/routes/requests", `not json`, nil)

			require.Equal(t, http.StatusInternalServerError, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, ErrCodeRouteFailure, resp.Code)
		})
	}
}

func TestNewRouter_WithoutRoutesServesOpsOnly(t *testing.T) {
	r := NewRouter(Options{
		Gatherer: prometheus.NewRegistry(),
		Health:   func(ctx context.Context) error { return nil },
	})

	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodPost, "/routes/requests", `{}`, nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/metrics", "", nil).Code)
}

func TestSend_UnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doRequest(r, http.MethodPost, "/routes/nope", `{}`, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Code)
}

func TestSend_BodyTooLarge(t *testing.T) {
	rc := route.NewContext(route.Options{})
	require.NoError(t, rc.AddRoute(route.NewDefinition("requests")))
	r := NewRouter(Options{Routes: rc, Gatherer: prometheus.NewRegistry(), MaxBodyBytes: 4})

	w := doRequest(r, http.MethodPost, "/routes/requests", `{"too":"long"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSend_CopiesCustomHeaders(t *testing.T) {
	rc := route.NewContext(route.Options{})
	var seen *models.Message
	require.NoError(t, rc.AddRoute(route.NewDefinition("capture").Process(
		func(ctx context.Context, ex *models.Exchange) error {
			seen = ex.In
			return nil
		},
	)))
	r := NewRouter(Options{Routes: rc, Gatherer: prometheus.NewRegistry()})

	doRequest(r, http.MethodPost, "/routes/capture", `{}`, map[string]string{
		"X-Tenant":      "acme",
		"X-Message-Key": "order-9",
		"Authorization": "Bearer secret",
	})

	require.NotNil(t, seen)
	assert.Equal(t, "order-9", seen.Key)
	tenant, _ := seen.HeaderString("x-tenant")
	assert.Equal(t, "acme", tenant)
	_, hasAuth := seen.Header("authorization")
	assert.False(t, hasAuth)
	_, hasID := seen.HeaderString(models.HeaderMessageID)
	assert.True(t, hasID)
}

func TestRecovery_PanicOutsideRouteReturns500(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(observability.WithComponent("test")), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := doRequest(r, http.MethodGet, "/panic", "", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInternal, resp.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestHealthz(t *testing.T) {
	rc := route.NewContext(route.Options{})

	healthy := NewRouter(Options{Routes: rc, Gatherer: prometheus.NewRegistry()})
	w := doRequest(healthy, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewRouter(Options{
		Routes:   rc,
		Gatherer: prometheus.NewRegistry(),
		Health:   func(ctx context.Context) error { return fmt.Errorf("no brokers reachable") },
	})
	w = doRequest(down, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no brokers reachable")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, func(a *errorhandling.Action) { a.SetStatusCode(400) })
	doRequest(r, http.MethodPost, "/routes/requests", `broken`, nil)

	w := doRequest(r, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `errorhandler_route_failures_total{outcome="handled",route="requests"} 1`)
}
