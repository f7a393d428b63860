package rest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/TraceApi/storage-adapter/internal/config"
	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/transport/rest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// --- Mocks ---

type MockMappingService struct {
	mock.Mock
}

func (m *MockMappingService) ResolveMapping(ctx context.Context, tenantID string) (*domain.TenantStorageMapping, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantStorageMapping), args.Error(1)
}

type MockDiagnosticsService struct {
	mock.Mock
}

func (m *MockDiagnosticsService) CountMappings(ctx context.Context, partition string) (int, error) {
	args := m.Called(ctx, partition)
	return args.Int(0), args.Error(1)
}

func (m *MockDiagnosticsService) PeekMapping(ctx context.Context, tenantID string) (*domain.TenantStorageMapping, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantStorageMapping), args.Error(1)
}

// --- Helpers ---

func devConfig() *config.Config {
	return &config.Config{
		Environment:    "development",
		PartitionKey:   domain.DefaultPartition,
		RequestTimeout: 5 * time.Second,
	}
}

func newRouter(cfg *config.Config, svc *MockMappingService, diag *MockDiagnosticsService) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return rest.NewRouter(cfg, svc, diag, nil, logger)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func storeUnavailable(msg string) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, &domain.StoreError{Store: "aztables", Message: msg})
}

// --- Tests ---

func TestWelcomeAndHealth(t *testing.T) {
	r := newRouter(devConfig(), new(MockMappingService), new(MockDiagnosticsService))

	rr := serve(r, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Welcome to the Storage Adapter!", rr.Body.String())

	rr = serve(r, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestGetStorageMapping_Found(t *testing.T) {
	mockSvc := new(MockMappingService)
	r := newRouter(devConfig(), mockSvc, new(MockDiagnosticsService))

	expected := &domain.TenantStorageMapping{
		TenantID:   "t-1",
		TenantName: "Acme",
		Attributes: json.RawMessage(`{"account":"acmedata"}`),
	}
	mockSvc.On("ResolveMapping", mock.Anything, "t-1").Return(expected, nil)

	rr := serve(r, httptest.NewRequest("GET", "/storageMapping/t-1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var response domain.TenantStorageMapping
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "t-1", response.TenantID)
	assert.Equal(t, "Acme", response.TenantName)
	assert.JSONEq(t, `{"account":"acmedata"}`, string(response.Attributes))
	mockSvc.AssertExpectations(t)
}

func TestGetStorageMapping_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		contentType string
		body        string
	}{
		{
			name:   "not found",
			err:    fmt.Errorf("%w: tenant id t-2", domain.ErrNotFound),
			status: http.StatusNotFound,
			body:   "",
		},
		{
			name:        "ambiguous",
			err:         &domain.AmbiguousMappingError{TenantID: "t-3", Count: 2},
			status:      http.StatusBadRequest,
			contentType: "text/plain; charset=utf-8",
			body:        "More than one storage mapping found for tenant id (Check mapping table!): t-3",
		},
		{
			name:        "invalid id",
			err:         fmt.Errorf("%w: tenant id is required", domain.ErrInvalidInput),
			status:      http.StatusBadRequest,
			contentType: "text/plain; charset=utf-8",
			body:        "invalid tenant id\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockMappingService)
			r := newRouter(devConfig(), mockSvc, new(MockDiagnosticsService))
			mockSvc.On("ResolveMapping", mock.Anything, "t-x").Return(nil, tt.err)

			rr := serve(r, httptest.NewRequest("GET", "/storageMapping/t-x", nil))

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.body, rr.Body.String())
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestGetStorageMapping_StoreUnavailable(t *testing.T) {
	mockSvc := new(MockMappingService)
	r := newRouter(devConfig(), mockSvc, new(MockDiagnosticsService))
	mockSvc.On("ResolveMapping", mock.Anything, "t-1").Return(nil, storeUnavailable("ServiceUnavailable (status 503)"))

	rr := serve(r, httptest.NewRequest("GET", "/storageMapping/t-1", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var problem rest.Problem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, "Unexpected Error ServiceUnavailable (status 503)", problem.Detail)
}

func TestDiagnostics_Development(t *testing.T) {
	mockDiag := new(MockDiagnosticsService)
	r := newRouter(devConfig(), new(MockMappingService), mockDiag)

	mockDiag.On("CountMappings", mock.Anything, domain.DefaultPartition).Return(3, nil)
	mockDiag.On("PeekMapping", mock.Anything, "t-1").Return(&domain.TenantStorageMapping{TenantID: "t-1", TenantName: "Acme"}, nil)
	mockDiag.On("PeekMapping", mock.Anything, "t-2").Return(nil, domain.ErrNotFound)

	rr := serve(r, httptest.NewRequest("GET", "/storageTest", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Table query results: 3", rr.Body.String())

	rr = serve(r, httptest.NewRequest("GET", "/storageTest/t-1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Cx Name: Acme CxTenantId: t-1", rr.Body.String())

	rr = serve(r, httptest.NewRequest("GET", "/storageTest/t-2", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mockDiag.AssertExpectations(t)
}

func TestDiagnostics_CountFailure(t *testing.T) {
	mockDiag := new(MockDiagnosticsService)
	r := newRouter(devConfig(), new(MockMappingService), mockDiag)
	mockDiag.On("CountMappings", mock.Anything, domain.DefaultPartition).Return(0, storeUnavailable("AuthorizationFailure (status 403)"))

	rr := serve(r, httptest.NewRequest("GET", "/storageTest", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Unexpected Error AuthorizationFailure (status 403)")
}

func TestProduction_NoDiagnosticsAndHTTPSRedirect(t *testing.T) {
	mockSvc := new(MockMappingService)
	mockDiag := new(MockDiagnosticsService)
	cfg := devConfig()
	cfg.Environment = "production"
	r := newRouter(cfg, mockSvc, mockDiag)

	// Plain HTTP is redirected before routing
	rr := serve(r, httptest.NewRequest("GET", "http://adapter.example.com/storageMapping/t-1", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "https://adapter.example.com/storageMapping/t-1", rr.Header().Get("Location"))

	// Diagnostics are not registered
	req := httptest.NewRequest("GET", "/storageTest", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = serve(r, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mockSvc.On("ResolveMapping", mock.Anything, "t-1").Return(&domain.TenantStorageMapping{TenantID: "t-1"}, nil)
	req = httptest.NewRequest("GET", "/storageMapping/t-1", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = serve(r, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	mockDiag.AssertNotCalled(t, "CountMappings", mock.Anything, mock.Anything)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "storage_adapter_test_total", Help: "test"}))
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r := rest.NewRouter(devConfig(), new(MockMappingService), nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)

	rr := serve(r, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "storage_adapter_test_total 0")
}

func TestRateLimit(t *testing.T) {
	mockSvc := new(MockMappingService)
	cfg := devConfig()
	cfg.RateLimitPerMinute = 1
	r := newRouter(cfg, mockSvc, new(MockDiagnosticsService))
	mockSvc.On("ResolveMapping", mock.Anything, "t-1").Return(&domain.TenantStorageMapping{TenantID: "t-1"}, nil)

	rr := serve(r, httptest.NewRequest("GET", "/storageMapping/t-1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(r, httptest.NewRequest("GET", "/storageMapping/t-1", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Health checks are not limited
	rr = serve(r, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	mockSvc.AssertNumberOfCalls(t, "ResolveMapping", 1)
}

func TestServiceAuth(t *testing.T) {
	mockSvc := new(MockMappingService)
	cfg := devConfig()
	cfg.JWTSecret = "test-secret"
	r := newRouter(cfg, mockSvc, new(MockDiagnosticsService))
	mockSvc.On("ResolveMapping", mock.Anything, "t-1").Return(&domain.TenantStorageMapping{TenantID: "t-1"}, nil)

	rr := serve(r, httptest.NewRequest("GET", "/storageMapping/t-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "billing-service",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/storageMapping/t-1", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = serve(r, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// The welcome page stays public
	rr = serve(r, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTraceContextPropagation(t *testing.T) {
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	otel.SetTextMapPropagator(propagation.TraceContext{})

	const (
		traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
		spanID  = "00f067aa0ba902b7"
	)

	mockSvc := new(MockMappingService)
	r := newRouter(devConfig(), mockSvc, new(MockDiagnosticsService))

	var seen trace.SpanContext
	mockSvc.On("ResolveMapping", mock.Anything, "t-1").
		Run(func(args mock.Arguments) {
			seen = trace.SpanContextFromContext(args.Get(0).(context.Context))
		}).
		Return(nil, domain.ErrNotFound)

	req := httptest.NewRequest("GET", "/storageMapping/t-1", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-"+spanID+"-01")
	rr := serve(r, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// The handler runs inside the caller's trace
	assert.Equal(t, traceID, seen.TraceID().String())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name())
	assert.Equal(t, traceID, spans[0].Parent().TraceID().String())
	assert.Equal(t, spanID, spans[0].Parent().SpanID().String())
	assert.True(t, spans[0].Parent().IsRemote())
}
