// Package meevo is a small REST client for the Meevo public API: client
// credential auth, the employee roster, and the v2 scan/openings search.
package meevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/wolfman30/soonest-slot/pkg/logging"
)

var tracer = otel.Tracer("soonest.internal.meevo")

// Config holds the Meevo endpoints, credentials and tenancy for one location.
type Config struct {
	AuthURL        string
	APIURL         string
	APIURLV2       string
	ClientID       string
	ClientSecret   string
	TenantID       string
	LocationID     string
	RosterPageSize int
	RosterTimeout  time.Duration
	ScanTimeout    time.Duration
}

// Client talks to one Meevo tenant/location.
type Client struct {
	authURL      string
	apiURL       string
	apiURLV2     string
	clientID     string
	clientSecret string
	tenantID     int
	locationID   int

	rosterPageSize int
	rosterTimeout  time.Duration
	scanTimeout    time.Duration

	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit paces scan calls to rps requests per second. rps <= 0 disables pacing.
// A call that cannot get a pacing token within the scan timeout fails.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock overrides time.Now for token expiry computation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Meevo client.
func New(cfg Config, logger *logging.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.AuthURL) == "" {
		return nil, fmt.Errorf("meevo: AuthURL is required")
	}
	if strings.TrimSpace(cfg.APIURL) == "" || strings.TrimSpace(cfg.APIURLV2) == "" {
		return nil, fmt.Errorf("meevo: APIURL and APIURLV2 are required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("meevo: client credentials are required")
	}
	tenantID, err := strconv.Atoi(strings.TrimSpace(cfg.TenantID))
	if err != nil {
		return nil, fmt.Errorf("meevo: invalid tenant id %q: %w", cfg.TenantID, err)
	}
	locationID, err := strconv.Atoi(strings.TrimSpace(cfg.LocationID))
	if err != nil {
		return nil, fmt.Errorf("meevo: invalid location id %q: %w", cfg.LocationID, err)
	}
	if logger == nil {
		logger = logging.Default()
	}

	c := &Client{
		authURL:        cfg.AuthURL,
		apiURL:         strings.TrimSuffix(cfg.APIURL, "/"),
		apiURLV2:       strings.TrimSuffix(cfg.APIURLV2, "/"),
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		tenantID:       tenantID,
		locationID:     locationID,
		rosterPageSize: cfg.RosterPageSize,
		rosterTimeout:  cfg.RosterTimeout,
		scanTimeout:    cfg.ScanTimeout,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		now:            time.Now,
		logger:         logger,
	}
	if c.rosterPageSize <= 0 {
		c.rosterPageSize = defaultRosterPageSize
	}
	if c.rosterTimeout <= 0 {
		c.rosterTimeout = defaultRosterTimeout
	}
	if c.scanTimeout <= 0 {
		c.scanTimeout = defaultScanTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchToken performs the client-credentials exchange.
func (c *Client) FetchToken(ctx context.Context) (Token, error) {
	var out tokenResponse
	body := authRequest{ClientID: c.clientID, ClientSecret: c.clientSecret}
	if err := c.do(ctx, "auth", http.MethodPost, c.authURL, "", body, &out); err != nil {
		return Token{}, err
	}
	if out.AccessToken == "" {
		return Token{}, fmt.Errorf("meevo: auth response missing access_token")
	}
	return Token{
		AccessToken: out.AccessToken,
		ExpiresAt:   c.now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// ListEmployees returns the raw employee listing for the configured location.
func (c *Client) ListEmployees(ctx context.Context, token string) ([]Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rosterTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("tenantid", strconv.Itoa(c.tenantID))
	params.Set("locationid", strconv.Itoa(c.locationID))
	params.Set("ItemsPerPage", strconv.Itoa(c.rosterPageSize))
	endpoint := c.apiURL + "/employees?" + params.Encode()

	var out employeesResponse
	if err := c.do(ctx, "employees", http.MethodGet, endpoint, token, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Employee{}, nil
	}
	return out.Data, nil
}

// ScanOpenings runs one scan/openings search. Meevo returns at most 8 openings
// per call, so callers split the day into windows.
func (c *Client) ScanOpenings(ctx context.Context, token string, q ScanQuery) ([]ServiceOpening, error) {
	if c.limiter != nil {
		// pacing counts against the same budget as the call itself
		waitCtx, cancelWait := context.WithTimeout(ctx, c.scanTimeout)
		err := c.limiter.Wait(waitCtx)
		cancelWait()
		if err != nil {
			return nil, fmt.Errorf("meevo: rate limit wait: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.scanTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("TenantId", strconv.Itoa(c.tenantID))
	params.Set("LocationId", strconv.Itoa(c.locationID))
	endpoint := c.apiURLV2 + "/scan/openings?" + params.Encode()

	body := scanRequest{
		LocationID:   c.locationID,
		TenantID:     c.tenantID,
		ScanDateType: scanTypeRange,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
		ScanTimeType: scanTypeRange,
		StartTime:    q.StartTime,
		EndTime:      q.EndTime,
		ScanServices: q.Services,
	}

	var out scanResponse
	if err := c.do(ctx, "scan_openings", http.MethodPost, endpoint, token, body, &out); err != nil {
		return nil, err
	}

	openings := make([]ServiceOpening, 0, 8)
	for _, item := range out.Data {
		openings = append(openings, item.ServiceOpenings...)
	}
	return openings, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint, token string, payload, out interface{}) (err error) {
	ctx, span := tracer.Start(ctx, "meevo."+op)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("meevo.op", op),
		attribute.Int("meevo.tenant_id", c.tenantID),
		attribute.Int("meevo.location_id", c.locationID),
	)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("meevo: %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("meevo: %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("meevo: %s: http request: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("meevo: %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Debug("meevo: non-2xx response", "op", op, "status", resp.StatusCode)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: msg}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("meevo: %s: unmarshal response: %w", op, err)
	}
	return nil
}
