package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "soonest"

// AvailabilityMetrics exposes counters/histograms for the availability sweep.
type AvailabilityMetrics struct {
	scanCalls     *prometheus.CounterVec
	scanLatency   prometheus.Histogram
	rosterLookups *prometheus.CounterVec
	tokenFetches  *prometheus.CounterVec
	openingsFound prometheus.Histogram
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		scanCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "meevo",
			Name:      "scan_calls_total",
			Help:      "Total scan/openings calls by outcome",
		}, []string{"status"}),
		scanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "meevo",
			Name:      "scan_call_latency_seconds",
			Help:      "Latency of individual scan/openings calls",
			Buckets:   prometheus.DefBuckets,
		}),
		rosterLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "lookups_total",
			Help:      "Roster cache lookups by result",
		}, []string{"status"}),
		tokenFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "meevo",
			Name:      "token_fetches_total",
			Help:      "Access token fetches by outcome",
		}, []string{"status"}),
		openingsFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "openings_found",
			Help:      "Openings found per sweep after dedup",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.scanCalls, m.scanLatency, m.rosterLookups, m.tokenFetches, m.openingsFound)
	return m
}

func (m *AvailabilityMetrics) ObserveScanCall(status string, seconds float64) {
	if m == nil {
		return
	}
	m.scanCalls.WithLabelValues(status).Inc()
	m.scanLatency.Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveRosterLookup(status string) {
	if m == nil {
		return
	}
	m.rosterLookups.WithLabelValues(status).Inc()
}

func (m *AvailabilityMetrics) ObserveTokenFetch(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.tokenFetches.WithLabelValues(status).Inc()
}

func (m *AvailabilityMetrics) ObserveOpeningsFound(n int) {
	if m == nil {
		return
	}
	m.openingsFound.Observe(float64(n))
}

// Snapshot is a point-in-time read of the counters, served on /stats.
type Snapshot struct {
	ScanCalls     map[string]uint64 `json:"scan_calls"`
	RosterLookups map[string]uint64 `json:"roster_lookups"`
	TokenFetches  map[string]uint64 `json:"token_fetches"`
	Sweeps        uint64            `json:"sweeps"`
}

// TakeSnapshot reads the availability counters back from a gatherer.
func TakeSnapshot(gatherer prometheus.Gatherer) Snapshot {
	snap := Snapshot{
		ScanCalls:     map[string]uint64{},
		RosterLookups: map[string]uint64{},
		TokenFetches:  map[string]uint64{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return snap
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case "soonest_meevo_scan_calls_total":
			sumByLabel(mf, "status", snap.ScanCalls)
		case "soonest_roster_lookups_total":
			sumByLabel(mf, "status", snap.RosterLookups)
		case "soonest_meevo_token_fetches_total":
			sumByLabel(mf, "status", snap.TokenFetches)
		case "soonest_sweep_openings_found":
			for _, metric := range mf.Metric {
				if h := metric.GetHistogram(); h != nil {
					snap.Sweeps += h.GetSampleCount()
				}
			}
		}
	}
	return snap
}

func sumByLabel(mf *dto.MetricFamily, label string, into map[string]uint64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label {
				into[lp.GetValue()] += uint64(metric.GetCounter().GetValue())
			}
		}
	}
}
