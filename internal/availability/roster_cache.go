package availability

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/soonest-slot/internal/meevo"
	"github.com/wolfman30/soonest-slot/internal/observability/metrics"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

const (
	DefaultRosterTTL   = time.Hour
	DefaultActiveState = 2026
)

// Placeholder accounts that show up as active employees but never take bookings.
var excludedFirstNames = map[string]struct{}{
	"home":     {},
	"training": {},
	"test":     {},
}

// StaffMember is a bookable employee.
type StaffMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RosterStatus reports where a roster answer came from.
type RosterStatus string

const (
	RosterCached      RosterStatus = "cached"
	RosterRefreshed   RosterStatus = "refreshed"
	RosterStale       RosterStatus = "stale"
	RosterUnavailable RosterStatus = "unavailable"
)

// RosterResult is the outcome of a roster lookup. Err is set for the stale
// and unavailable cases; Staff is never nil.
type RosterResult struct {
	Staff  []StaffMember
	Status RosterStatus
	Err    error
}

// RosterSource lists the location's employees.
type RosterSource interface {
	ListEmployees(ctx context.Context, token string) ([]meevo.Employee, error)
}

type rosterSnapshot struct {
	staff     []StaffMember
	expiresAt time.Time
}

// RosterCache keeps the active staff list for a TTL and falls back to the last
// good list when a refresh fails.
type RosterCache struct {
	source      RosterSource
	ttl         time.Duration
	activeState int
	now         func() time.Time
	metrics     *metrics.AvailabilityMetrics
	logger      *logging.Logger

	snapshot atomic.Pointer[rosterSnapshot]
	group    singleflight.Group
}

func NewRosterCache(source RosterSource, ttl time.Duration, activeState int, m *metrics.AvailabilityMetrics, logger *logging.Logger) *RosterCache {
	if ttl <= 0 {
		ttl = DefaultRosterTTL
	}
	if activeState == 0 {
		activeState = DefaultActiveState
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RosterCache{
		source:      source,
		ttl:         ttl,
		activeState: activeState,
		now:         time.Now,
		metrics:     m,
		logger:      logger,
	}
}

// Get returns the active staff list, refreshing it once the TTL has passed.
func (c *RosterCache) Get(ctx context.Context, token string) RosterResult {
	if snap := c.snapshot.Load(); snap != nil && c.now().Before(snap.expiresAt) {
		c.metrics.ObserveRosterLookup(string(RosterCached))
		return RosterResult{Staff: snap.staff, Status: RosterCached}
	}

	ch := c.group.DoChan("roster", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresh(fetchCtx, token), nil
	})
	var res RosterResult
	select {
	case <-ctx.Done():
		res = c.fallback(ctx.Err())
	case r := <-ch:
		res = r.Val.(RosterResult)
	}
	c.metrics.ObserveRosterLookup(string(res.Status))
	return res
}

// Invalidate forces the next Get to refetch. The current list is kept as the
// stale fallback.
func (c *RosterCache) Invalidate() {
	snap := c.snapshot.Load()
	if snap == nil {
		return
	}
	c.snapshot.Store(&rosterSnapshot{staff: snap.staff})
}

func (c *RosterCache) refresh(ctx context.Context, token string) RosterResult {
	employees, err := c.source.ListEmployees(ctx, token)
	if err != nil {
		// expiry is left alone so the next request retries
		res := c.fallback(err)
		if res.Status == RosterStale {
			c.logger.Warn("roster refresh failed, serving stale list", "error", err, "staff", len(res.Staff))
		} else {
			c.logger.Error("roster refresh failed with nothing cached", "error", err)
		}
		return res
	}

	staff := c.filterActive(employees)
	c.snapshot.Store(&rosterSnapshot{staff: staff, expiresAt: c.now().Add(c.ttl)})
	c.logger.Info("roster refreshed", "staff", len(staff), "employees", len(employees))
	return RosterResult{Staff: staff, Status: RosterRefreshed}
}

// fallback serves the last good list, if any, tagged with err.
func (c *RosterCache) fallback(err error) RosterResult {
	if snap := c.snapshot.Load(); snap != nil {
		return RosterResult{Staff: snap.staff, Status: RosterStale, Err: err}
	}
	return RosterResult{Staff: []StaffMember{}, Status: RosterUnavailable, Err: err}
}

func (c *RosterCache) filterActive(employees []meevo.Employee) []StaffMember {
	staff := make([]StaffMember, 0, len(employees))
	for _, emp := range employees {
		if emp.ObjectState != c.activeState {
			continue
		}
		if _, skip := excludedFirstNames[strings.ToLower(emp.FirstName)]; skip {
			continue
		}
		name := emp.NickName
		if name == "" {
			name = emp.FirstName
		}
		staff = append(staff, StaffMember{ID: emp.ID, Name: name})
	}
	return staff
}
