package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/soonest-slot/internal/config"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

func testConfig(t *testing.T, meevoURL string) *appconfig.Config {
	t.Helper()
	t.Setenv("MEEVO_CLIENT_ID", "id")
	t.Setenv("MEEVO_CLIENT_SECRET", "secret")
	t.Setenv("MEEVO_TENANT_ID", "200507")
	t.Setenv("MEEVO_LOCATION_ID", "201664")
	t.Setenv("MEEVO_AUTH_URL", meevoURL+"/oauth2/token")
	t.Setenv("MEEVO_API_URL", meevoURL+"/v1")
	t.Setenv("MEEVO_API_URL_V2", meevoURL+"/v2")
	t.Setenv("SCAN_DAY_START", "09:00")
	t.Setenv("SCAN_DAY_END", "11:00")
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestBuildHandlerServesSearch(t *testing.T) {
	meevoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth2/token":
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		case "/v1/employees":
			_, _ = w.Write([]byte(`{"data":[{"id":"e1","firstName":"Sam","objectState":2026}]}`))
		case "/v2/scan/openings":
			_, _ = w.Write([]byte(`{"data":[{"serviceOpenings":[{"startTime":"2026-10-19T09:30:00","endTime":"2026-10-19T10:00:00","date":"2026-10-19","serviceId":"svc"}]}]}`))
		default:
			t.Errorf("unexpected provider path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer meevoSrv.Close()

	handler, limiter, err := buildHandler(testConfig(t, meevoSrv.URL), logging.New("error"), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("buildHandler: %v", err)
	}
	if limiter == nil {
		t.Fatalf("expected rate limiter")
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/find-soonest", strings.NewReader(`{}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["found"] != true {
		t.Fatalf("expected found, got %v", resp)
	}
	if resp["message"] != "Next available: Monday, October 19th at 9:30 AM with Sam" {
		t.Fatalf("unexpected message %v", resp["message"])
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "soonest_meevo_scan_calls_total") {
		t.Fatalf("expected scan counter in /metrics")
	}
}

func TestBuildHandlerRejectsBadTimezone(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.ScanTimezone = "Mars/Olympus"
	if _, _, err := buildHandler(cfg, logging.New("error"), prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestBuildHandlerRejectsBadWindows(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.ScanDayEnd = "05:00"
	if _, _, err := buildHandler(cfg, logging.New("error"), prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected window error")
	}
}
