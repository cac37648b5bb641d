package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/soonest-slot/internal/observability/metrics"
)

const (
	serviceName    = "Find Soonest Available"
	serviceVersion = "2.1.0"
)

// HealthInfo is the per-deployment part of the health descriptor.
type HealthInfo struct {
	Environment   string
	Location      string
	LookaheadDays int
	Windows       int
	RosterTTL     time.Duration
}

// HealthResponse describes the running service. It never touches the provider.
type HealthResponse struct {
	Status      string   `json:"status"`
	Environment string   `json:"environment"`
	Location    string   `json:"location"`
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Stylists    string   `json:"stylists"`
}

// HealthHandler returns a static descriptor built once at startup.
func HealthHandler(info HealthInfo) http.HandlerFunc {
	resp := HealthResponse{
		Status:      "ok",
		Environment: info.Environment,
		Location:    info.Location,
		Service:     serviceName,
		Version:     serviceVersion,
		Description: "Scans all barbers from today to " + pluralDays(info.LookaheadDays) +
			" out. Supports additional_services for add-ons.",
		Features: []string{
			"dynamic active employee fetching (" + cacheLabel(info.RosterTTL) + " cache)",
			"formatted date fields (day_of_week, formatted_date, formatted_time, formatted_full)",
			"full slot retrieval (" + strconv.Itoa(info.Windows) + " overlapping scan windows per barber to bypass the 8-slot API limit)",
		},
		Stylists: "dynamic (fetched from Meevo API)",
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

// StatsResponse exposes the in-process counters as JSON.
type StatsResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Stats         metrics.Snapshot `json:"stats"`
}

// StatsHandler reads the availability counters back from gatherer.
func StatsHandler(gatherer prometheus.Gatherer) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatsResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(started).Seconds()),
			Stats:         metrics.TakeSnapshot(gatherer),
		})
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}

// cacheLabel renders a TTL as "1-hour" or "30-minute", falling back to the
// duration string for anything else.
func cacheLabel(ttl time.Duration) string {
	switch {
	case ttl <= 0:
		return "1-hour"
	case ttl%time.Hour == 0:
		return strconv.Itoa(int(ttl/time.Hour)) + "-hour"
	case ttl%time.Minute == 0:
		return strconv.Itoa(int(ttl/time.Minute)) + "-minute"
	default:
		return ttl.String()
	}
}
