// Package availability finds the earliest open appointment across a
// location's staff by sweeping the provider's scan API.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/soonest-slot/internal/meevo"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

const (
	DefaultLookaheadDays = 3
	dateLayout           = "2006-01-02"
)

// FinderConfig fixes the per-deployment parts of every search.
type FinderConfig struct {
	PrimaryService string
	Location       *time.Location
	LookaheadDays  int
}

// Finder answers "soonest slot" requests: it authenticates, loads the roster,
// resolves add-ons and runs the sweep over today plus the lookahead days.
type Finder struct {
	tokens     *TokenCache
	roster     *RosterCache
	aggregator *Aggregator
	resolver   *ServiceResolver

	primary   string
	loc       *time.Location
	lookahead int
	now       func() time.Time
	logger    *logging.Logger
}

func NewFinder(tokens *TokenCache, roster *RosterCache, aggregator *Aggregator, resolver *ServiceResolver, cfg FinderConfig, logger *logging.Logger) (*Finder, error) {
	if tokens == nil || roster == nil || aggregator == nil {
		return nil, errors.New("availability: token cache, roster cache and aggregator are required")
	}
	if cfg.PrimaryService == "" {
		return nil, errors.New("availability: primary service is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LookaheadDays < 0 {
		return nil, fmt.Errorf("availability: lookahead days must be >= 0, got %d", cfg.LookaheadDays)
	}
	if resolver == nil {
		resolver = NewServiceResolver(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Finder{
		tokens:     tokens,
		roster:     roster,
		aggregator: aggregator,
		resolver:   resolver,
		primary:    cfg.PrimaryService,
		loc:        cfg.Location,
		lookahead:  cfg.LookaheadDays,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// LookaheadDays is the number of days past today covered by a search.
func (f *Finder) LookaheadDays() int {
	return f.lookahead
}

// FindSoonest runs one search. Only a failure to authenticate is returned as
// an error; roster and scan problems degrade the result instead.
func (f *Finder) FindSoonest(ctx context.Context, addonNames []string) (*Result, error) {
	dr := DateRangeFor(f.now(), f.loc, f.lookahead)
	addons := f.resolver.ResolveAll(addonNames)
	if len(addons) < len(addonNames) {
		f.logger.Debug("add-on services dropped", "requested", len(addonNames), "resolved", len(addons))
	}

	token, err := f.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}

	roster := f.roster.Get(ctx, token)
	if roster.Err != nil && errors.Is(roster.Err, meevo.ErrUnauthorized) {
		f.tokens.Invalidate()
	}

	f.logger.Info("scanning staff for soonest availability",
		"staff", len(roster.Staff),
		"roster_status", roster.Status,
		"start", dr.Start,
		"end", dr.End,
		"addons", len(addons),
	)

	res := f.aggregator.FindSoonest(ctx, Query{
		Staff:          roster.Staff,
		Token:          token,
		PrimaryService: f.primary,
		AddonServices:  addons,
		Range:          dr,
	})
	res.RosterStatus = roster.Status
	if res.FailedCalls > 0 {
		f.logger.Warn("sweep completed with failed scan calls", "failed", res.FailedCalls, "staff", res.StaffScanned)
	}
	if res.unauthorized {
		f.logger.Warn("provider rejected token during scan, invalidating")
		f.tokens.Invalidate()
	}
	if res.Found {
		f.logger.Info("soonest opening found",
			"total", res.TotalFound,
			"start", res.Earliest.StartTime,
			"staff_name", res.Earliest.EmployeeName,
		)
	}
	return res, nil
}

// DateRangeFor returns [today, today+days] as calendar dates in loc.
func DateRangeFor(now time.Time, loc *time.Location, days int) DateRange {
	local := now.In(loc)
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return DateRange{
		Start: today.Format(dateLayout),
		End:   today.AddDate(0, 0, days).Format(dateLayout),
	}
}
