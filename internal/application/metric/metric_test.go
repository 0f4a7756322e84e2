package metric

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	NewServer().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rr.Code, http.StatusOK)
	}

	return rr.Body.String()
}

func TestRecordHTTPMetrics_ExposedOnMetricsEndpoint(t *testing.T) {
	RecordHTTPMetrics(http.MethodGet, "/api/v1/ice", http.StatusOK, 25*time.Millisecond)
	RecordHTTPMetrics(http.MethodGet, "/ws", http.StatusBadRequest, time.Millisecond)

	body := scrape(t)

	if !strings.Contains(body, `http_requests_total{endpoint="/api/v1/ice",method="GET",status="200"} 1`) {
		t.Fatalf("missing request counter: %s", body)
	}
	if !strings.Contains(body, `http_request_duration_seconds_count{endpoint="/api/v1/ice",method="GET",status="200"} 1`) {
		t.Fatalf("missing duration histogram: %s", body)
	}

	// Only statuses >= 400 count as errors.
	if !strings.Contains(body, `http_errors_total{endpoint="/ws",method="GET",status="400"} 1`) {
		t.Fatalf("missing error counter: %s", body)
	}
	if strings.Contains(body, `http_errors_total{endpoint="/api/v1/ice"`) {
		t.Fatalf("2xx response counted as error: %s", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	NewServer().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("body=%s", rr.Body.String())
	}
}
