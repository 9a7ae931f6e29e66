package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrape fetches the exposition text from the default registry.
func scrape(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

func TestMetricsEndpoint(t *testing.T) {
	RecordCatalogLoad(LoadSuccess, 250*time.Millisecond)
	SetCatalogSize(0, 0, 0)
	SetBlockedStreams(0)
	SetCircuitBreakerState("init", "CLOSED")
	RecordCircuitBreakerTrip("init")
	RecordHealthCheckFailure()

	output := scrape(t)

	expectedMetrics := []string{
		"iptv_catalog_loads_total",
		"iptv_catalog_load_duration_seconds",
		"iptv_catalog_channels",
		"iptv_catalog_categories",
		"iptv_catalog_groups",
		"iptv_blocked_streams",
		"iptv_circuit_breaker_state",
		"iptv_circuit_breaker_trips_total",
		"iptv_health_check_failures_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsValues(t *testing.T) {
	SetCatalogSize(120, 7, 4)
	SetBlockedStreams(2)
	RecordCatalogLoad(LoadFetchError, time.Second)

	output := scrape(t)

	tests := []struct {
		name     string
		contains string
	}{
		{"channels", "iptv_catalog_channels 120"},
		{"categories", "iptv_catalog_categories 7"},
		{"groups", "iptv_catalog_groups 4"},
		{"blocked", "iptv_blocked_streams 2"},
		{"load_result", `iptv_catalog_loads_total{result="fetch_error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected to find %s in output", tt.contains)
			}
		})
	}
}

func TestCircuitBreakerStateValues(t *testing.T) {
	tests := []struct {
		state string
		value string
	}{
		{"CLOSED", "0"},
		{"OPEN", "1"},
		{"HALF-OPEN", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			SetCircuitBreakerState("test-cb", tt.state)

			expectedLine := `iptv_circuit_breaker_state{breaker="test-cb"} ` + tt.value
			if output := scrape(t); !strings.Contains(output, expectedLine) {
				t.Errorf("Expected to find %s in output for state %s", expectedLine, tt.state)
			}
		})
	}
}
