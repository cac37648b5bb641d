// Package bootstrap turns configuration into wired service components.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/wolfman30/soonest-slot/internal/availability"
	appconfig "github.com/wolfman30/soonest-slot/internal/config"
	"github.com/wolfman30/soonest-slot/internal/meevo"
	"github.com/wolfman30/soonest-slot/internal/observability/metrics"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

// Availability is the wired search stack for one location.
type Availability struct {
	Finder  *availability.Finder
	Windows []availability.TimeWindow
}

// BuildAvailability wires the Meevo client, both caches, the aggregator and
// the finder from configuration.
func BuildAvailability(cfg *appconfig.Config, m *metrics.AvailabilityMetrics, logger *logging.Logger) (*Availability, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := time.LoadLocation(cfg.ScanTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load timezone %q: %w", cfg.ScanTimezone, err)
	}
	serviceTable, err := cfg.ServiceMap()
	if err != nil {
		return nil, err
	}
	windows, err := availability.BuildWindows(cfg.ScanDayStart, cfg.ScanDayEnd, cfg.ScanWindowWidth, cfg.ScanWindowStep)
	if err != nil {
		return nil, err
	}

	client, err := meevo.New(meevo.Config{
		AuthURL:        cfg.MeevoAuthURL,
		APIURL:         cfg.MeevoAPIURL,
		APIURLV2:       cfg.MeevoAPIURLV2,
		ClientID:       cfg.MeevoClientID,
		ClientSecret:   cfg.MeevoClientSecret,
		TenantID:       cfg.MeevoTenantID,
		LocationID:     cfg.MeevoLocationID,
		RosterPageSize: cfg.MeevoRosterPageSize,
		RosterTimeout:  cfg.MeevoRosterTimeout,
		ScanTimeout:    cfg.MeevoScanTimeout,
	}, logger.With("component", "meevo"), meevo.WithRateLimit(cfg.MeevoRateLimitRPS, cfg.MeevoRateBurst))
	if err != nil {
		return nil, err
	}

	availLogger := logger.With("component", "availability")
	finder, err := availability.NewFinder(
		availability.NewTokenCache(client, cfg.TokenRefreshMargin, m, availLogger),
		availability.NewRosterCache(client, cfg.RosterTTL, cfg.MeevoActiveState, m, availLogger),
		availability.NewAggregator(client, availability.AggregatorConfig{
			Windows:     windows,
			Concurrency: cfg.ScanConcurrency,
			MaxOpenings: cfg.MaxOpenings,
		}, m, availLogger),
		availability.NewServiceResolver(serviceTable),
		availability.FinderConfig{
			PrimaryService: cfg.DefaultServiceID,
			Location:       loc,
			LookaheadDays:  cfg.ScanLookaheadDays,
		},
		availLogger,
	)
	if err != nil {
		return nil, err
	}

	logger.Info("availability search configured",
		"timezone", cfg.ScanTimezone,
		"lookahead_days", cfg.ScanLookaheadDays,
		"windows", len(windows),
		"concurrency", cfg.ScanConcurrency,
		"custom_service_map", serviceTable != nil,
	)
	return &Availability{Finder: finder, Windows: windows}, nil
}
