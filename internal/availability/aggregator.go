package availability

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/soonest-slot/internal/meevo"
	"github.com/wolfman30/soonest-slot/internal/observability/metrics"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

const (
	DefaultScanConcurrency = 16
	DefaultMaxOpenings     = 100
)

var tracer = otel.Tracer("soonest.internal.availability")

// Scanner runs one provider availability search.
type Scanner interface {
	ScanOpenings(ctx context.Context, token string, q meevo.ScanQuery) ([]meevo.ServiceOpening, error)
}

// DateRange is an inclusive pair of "2006-01-02" dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Opening is one bookable slot for one staff member.
type Opening struct {
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Date          string   `json:"date"`
	EmployeeID    string   `json:"employee_id"`
	EmployeeName  string   `json:"employee_name"`
	ServiceID     string   `json:"serviceId"`
	ServiceName   string   `json:"serviceName"`
	Price         *float64 `json:"price,omitempty"`
	DayOfWeek     string   `json:"day_of_week"`
	FormattedDate string   `json:"formatted_date"`
	FormattedTime string   `json:"formatted_time"`
	FormattedFull string   `json:"formatted_full"`
}

// Query describes one sweep across staff.
type Query struct {
	Staff          []StaffMember
	Token          string
	PrimaryService string
	AddonServices  []string
	Range          DateRange
}

// Result is the merged outcome of a sweep. Openings is sorted ascending and
// capped; TotalFound counts every opening before the cap.
type Result struct {
	Found          bool
	Earliest       *Opening
	Openings       []Opening
	TotalFound     int
	StaffScanned   int
	Range          DateRange
	PrimaryService string
	RosterStatus   RosterStatus
	FailedCalls    int

	unauthorized bool
}

// AggregatorConfig tunes the sweep. Zero values take the defaults.
type AggregatorConfig struct {
	Windows     []TimeWindow
	Concurrency int
	MaxOpenings int
}

// Aggregator fans scan calls out across staff and time windows and merges the
// results into one ordered list.
type Aggregator struct {
	scanner     Scanner
	windows     []TimeWindow
	concurrency int
	maxOpenings int
	metrics     *metrics.AvailabilityMetrics
	logger      *logging.Logger
}

func NewAggregator(scanner Scanner, cfg AggregatorConfig, m *metrics.AvailabilityMetrics, logger *logging.Logger) *Aggregator {
	if len(cfg.Windows) == 0 {
		cfg.Windows = DefaultWindows()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultScanConcurrency
	}
	if cfg.MaxOpenings <= 0 {
		cfg.MaxOpenings = DefaultMaxOpenings
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{
		scanner:     scanner,
		windows:     cfg.Windows,
		concurrency: cfg.Concurrency,
		maxOpenings: cfg.MaxOpenings,
		metrics:     m,
		logger:      logger,
	}
}

// FindSoonest scans every (staff, window) pair and returns the merged result.
// Individual scan failures only reduce coverage; they are never returned.
func (a *Aggregator) FindSoonest(ctx context.Context, q Query) *Result {
	ctx, span := tracer.Start(ctx, "availability.find_soonest")
	defer span.End()
	span.SetAttributes(
		attribute.Int("availability.staff", len(q.Staff)),
		attribute.Int("availability.windows", len(a.windows)),
		attribute.Int("availability.addons", len(q.AddonServices)),
	)

	// slots[i][j] holds staff i, window j; each task writes only its own cell
	slots := make([][][]Opening, len(q.Staff))
	for i := range slots {
		slots[i] = make([][]Opening, len(a.windows))
	}

	var failed atomic.Int32
	var unauthorized atomic.Bool

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, staff := range q.Staff {
		i, staff := i, staff
		services := scanServicesFor(staff.ID, q.PrimaryService, q.AddonServices)
		for j, window := range a.windows {
			j, window := j, window
			g.Go(func() error {
				openings, err := a.scan(ctx, q, staff, window, services)
				if err != nil {
					failed.Add(1)
					if errors.Is(err, meevo.ErrUnauthorized) {
						unauthorized.Store(true)
					}
					return nil
				}
				slots[i][j] = openings
				return nil
			})
		}
	}
	_ = g.Wait()

	var all []Opening
	for i := range q.Staff {
		all = append(all, dedupByStart(slots[i])...)
	}
	a.metrics.ObserveOpeningsFound(len(all))
	span.SetAttributes(attribute.Int("availability.openings", len(all)))

	res := &Result{
		StaffScanned:   len(q.Staff),
		Range:          q.Range,
		PrimaryService: q.PrimaryService,
		FailedCalls:    int(failed.Load()),
		unauthorized:   unauthorized.Load(),
	}
	if len(all) == 0 {
		res.Openings = []Opening{}
		return res
	}

	sortByStart(all)
	res.Found = true
	res.TotalFound = len(all)
	earliest := all[0]
	res.Earliest = &earliest
	if len(all) > a.maxOpenings {
		all = all[:a.maxOpenings]
	}
	res.Openings = all
	return res
}

func (a *Aggregator) scan(ctx context.Context, q Query, staff StaffMember, window TimeWindow, services []meevo.ScanService) ([]Opening, error) {
	started := time.Now()
	raw, err := a.scanner.ScanOpenings(ctx, q.Token, meevo.ScanQuery{
		StartDate: q.Range.Start,
		EndDate:   q.Range.End,
		StartTime: window.Start,
		EndTime:   window.End,
		Services:  services,
	})
	elapsed := time.Since(started).Seconds()
	if err != nil {
		a.metrics.ObserveScanCall("error", elapsed)
		a.logger.Warn("scan failed",
			"staff_id", staff.ID,
			"staff_name", staff.Name,
			"window", window.Start+"-"+window.End,
			"error", err,
		)
		return nil, err
	}
	a.metrics.ObserveScanCall("ok", elapsed)

	openings := make([]Opening, 0, len(raw))
	for _, so := range raw {
		openings = append(openings, newOpening(so, staff))
	}
	return openings, nil
}

func scanServicesFor(staffID, primary string, addons []string) []meevo.ScanService {
	services := make([]meevo.ScanService, 0, 1+len(addons))
	services = append(services, meevo.ScanService{ServiceID: primary, EmployeeIDs: []string{staffID}})
	for _, id := range addons {
		services = append(services, meevo.ScanService{ServiceID: id, EmployeeIDs: []string{staffID}})
	}
	return services
}

func newOpening(so meevo.ServiceOpening, staff StaffMember) Opening {
	o := Opening{
		StartTime:     so.StartTime,
		EndTime:       so.EndTime,
		Date:          so.Date,
		EmployeeID:    staff.ID,
		EmployeeName:  staff.Name,
		ServiceID:     so.ServiceID,
		ServiceName:   so.ServiceName,
		Price:         so.EmployeePrice,
		FormattedTime: FormatClock(so.StartTime),
	}
	if parts, err := FormatDateParts(so.StartTime); err == nil {
		o.DayOfWeek = parts.DayOfWeek
		o.FormattedDate = parts.FormattedDate
		o.FormattedFull = FormatFull(parts, o.FormattedTime)
	}
	return o
}

// dedupByStart flattens one staff member's windows in order, keeping the first
// opening seen for each start value.
func dedupByStart(windows [][]Opening) []Opening {
	seen := make(map[string]struct{})
	var out []Opening
	for _, openings := range windows {
		for _, o := range openings {
			key := o.StartTime
			if t, ok := ParseStart(o.StartTime); ok {
				key = t.UTC().Format(time.RFC3339Nano)
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, o)
		}
	}
	return out
}

// sortByStart orders openings by start instant. Unparseable starts go last;
// ties keep their input order.
func sortByStart(openings []Opening) {
	keys := make([]time.Time, len(openings))
	valid := make([]bool, len(openings))
	for i, o := range openings {
		keys[i], valid[i] = ParseStart(o.StartTime)
	}
	idx := make([]int, len(openings))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}
		if !valid[ia] {
			return false
		}
		return keys[ia].Before(keys[ib])
	})
	sorted := make([]Opening, len(openings))
	for i, k := range idx {
		sorted[i] = openings[k]
	}
	copy(openings, sorted)
}
