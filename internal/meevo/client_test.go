package meevo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		AuthURL:      baseURL + "/oauth2/token",
		APIURL:       baseURL + "/publicapi/v1",
		APIURLV2:     baseURL + "/publicapi/v2",
		ClientID:     "client",
		ClientSecret: "secret",
		TenantID:     "200507",
		LocationID:   "201664",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing auth url", func(c *Config) { c.AuthURL = "" }, true},
		{"missing v2 url", func(c *Config) { c.APIURLV2 = "" }, true},
		{"missing secret", func(c *Config) { c.ClientSecret = "" }, true},
		{"non numeric tenant", func(c *Config) { c.TenantID = "abc" }, true},
		{"non numeric location", func(c *Config) { c.LocationID = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://example.test")
			tt.mutate(&cfg)
			client, err := New(cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.rosterPageSize != defaultRosterPageSize {
				t.Fatalf("expected default page size, got %d", client.rosterPageSize)
			}
		})
	}
}

func TestFetchToken(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if req["client_id"] != "client" || req["client_secret"] != "secret" {
			t.Fatalf("unexpected credentials: %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	defer ts.Close()

	c, err := New(testConfig(ts.URL), nil, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, err := c.FetchToken(context.Background())
	if err != nil {
		t.Fatalf("FetchToken: %v", err)
	}
	if token.AccessToken != "tok" {
		t.Fatalf("unexpected token %q", token.AccessToken)
	}
	if !token.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", token.ExpiresAt)
	}
}

func TestFetchTokenRejectsEmptyToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer ts.Close()

	c, _ := New(testConfig(ts.URL), nil)
	if _, err := c.FetchToken(context.Background()); err == nil {
		t.Fatal("expected error for empty access_token")
	}
}

func TestListEmployees(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publicapi/v1/employees" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tenantid") != "200507" || q.Get("locationid") != "201664" || q.Get("ItemsPerPage") != "100" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "e1", "firstName": "Alex", "nickName": "Al", "objectState": 2026},
			},
		})
	}))
	defer ts.Close()

	c, _ := New(testConfig(ts.URL), nil)
	employees, err := c.ListEmployees(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if len(employees) != 1 || employees[0].NickName != "Al" || employees[0].ObjectState != 2026 {
		t.Fatalf("unexpected employees: %+v", employees)
	}
}

func TestListEmployeesMissingDataIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c, _ := New(testConfig(ts.URL), nil)
	employees, err := c.ListEmployees(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if employees == nil || len(employees) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", employees)
	}
}

func TestScanOpeningsRequestShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publicapi/v2/scan/openings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("TenantId") != "200507" || r.URL.Query().Get("LocationId") != "201664" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["LocationId"].(float64) != 201664 || body["TenantId"].(float64) != 200507 {
			t.Fatalf("unexpected tenancy in body: %v", body)
		}
		if body["ScanDateType"].(float64) != 1 || body["ScanTimeType"].(float64) != 1 {
			t.Fatalf("unexpected scan types: %v", body)
		}
		if body["StartTime"] != "09:00" || body["EndTime"] != "11:00" {
			t.Fatalf("unexpected window: %v", body)
		}
		services := body["ScanServices"].([]any)
		first := services[0].(map[string]any)
		if first["ServiceId"] != "svc" || first["EmployeeIds"].([]any)[0] != "e1" {
			t.Fatalf("unexpected scan services: %v", services)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"serviceOpenings": []map[string]any{
					{"startTime": "2026-10-18T09:00:00", "endTime": "2026-10-18T09:30:00", "date": "2026-10-18", "serviceId": "svc", "serviceName": "Haircut", "employeePrice": 35},
				}},
				{},
				{"serviceOpenings": []map[string]any{
					{"startTime": "2026-10-18T10:00:00", "endTime": "2026-10-18T10:30:00", "serviceId": "svc"},
				}},
			},
		})
	}))
	defer ts.Close()

	c, _ := New(testConfig(ts.URL), nil, WithRateLimit(100, 5))
	openings, err := c.ScanOpenings(context.Background(), "tok", ScanQuery{
		StartDate: "2026-10-18",
		EndDate:   "2026-10-21",
		StartTime: "09:00",
		EndTime:   "11:00",
		Services:  []ScanService{{ServiceID: "svc", EmployeeIDs: []string{"e1"}}},
	})
	if err != nil {
		t.Fatalf("ScanOpenings: %v", err)
	}
	if len(openings) != 2 {
		t.Fatalf("expected 2 openings, got %d", len(openings))
	}
	if openings[0].EmployeePrice == nil || *openings[0].EmployeePrice != 35 {
		t.Fatalf("expected price 35, got %v", openings[0].EmployeePrice)
	}
	if openings[1].EmployeePrice != nil {
		t.Fatalf("expected nil price for missing field")
	}
}

func TestStatusErrorUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c, _ := New(testConfig(ts.URL), nil)
	_, err := c.ScanOpenings(context.Background(), "tok", ScanQuery{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected StatusError 401, got %v", err)
	}
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(long)
	}))
	defer ts.Close()

	c, _ := New(testConfig(ts.URL), nil)
	_, err := c.ListEmployees(context.Background(), "tok")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if len(statusErr.Body) != 300 {
		t.Fatalf("expected truncated body, got %d bytes", len(statusErr.Body))
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("502 should not match ErrUnauthorized")
	}
}

func TestScanOpeningsTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.ScanTimeout = 50 * time.Millisecond
	c, _ := New(cfg, nil)
	start := time.Now()
	if _, err := c.ScanOpenings(context.Background(), "tok", ScanQuery{}); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("scan timeout not applied, took %s", time.Since(start))
	}
}

func TestScanOpeningsRateLimitWaitBoundedByScanTimeout(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.ScanTimeout = 50 * time.Millisecond
	// one token every 100s: the second call can never be paced within 50ms
	c, _ := New(cfg, nil, WithRateLimit(0.01, 1))

	if _, err := c.ScanOpenings(context.Background(), "tok", ScanQuery{}); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	start := time.Now()
	_, err := c.ScanOpenings(context.Background(), "tok", ScanQuery{})
	if err == nil {
		t.Fatal("expected rate limit wait error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("rate limit wait not bounded, took %s", time.Since(start))
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}
