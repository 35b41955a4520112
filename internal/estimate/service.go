package estimate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/metrics"
	"github.com/bher20/slabbiller/internal/tariffs"
	"github.com/bher20/slabbiller/internal/usage"
	"github.com/bher20/slabbiller/pkg/slab"
)

var (
	// ErrUnknownTariff is returned when a request names a tariff the service
	// was not configured with. It wraps tariffs.ErrTariffNotFound.
	ErrUnknownTariff = fmt.Errorf("estimate: %w", tariffs.ErrTariffNotFound)
	// ErrInvalidRequest is returned for requests mixing explicit units with
	// appliance usage.
	ErrInvalidRequest = errors.New("estimate: invalid request")
)

// Config controls how the estimate service behaves.
type Config struct {
	// DefaultTariff is used when a request does not name a tariff.
	DefaultTariff string
	// Tariffs available to requests. Nil means tariffs.All().
	Tariffs []tariffs.Descriptor
	// Schedule, when non-zero, replaces the default tariff's schedule.
	Schedule slab.ScheduleConfig
	// Catalog resolves appliance names. Nil means usage.DefaultCatalog().
	Catalog *usage.Catalog
	// DaysPerMonth projects daily energy to a month. Zero means 30.
	DaysPerMonth int
}

type tariff struct {
	desc     tariffs.Descriptor
	schedule *slab.Schedule
}

// Service computes bill estimates. It holds no mutable state after
// construction and is safe for concurrent use.
type Service struct {
	cfg     Config
	log     *zap.Logger
	tariffs map[string]tariff
	order   []string
	now     func() time.Time
}

// NewService validates every configured tariff up front so requests never
// see a malformed schedule.
func NewService(cfg Config, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultTariff == "" {
		cfg.DefaultTariff = tariffs.DefaultKey
	}
	if cfg.Tariffs == nil {
		cfg.Tariffs = tariffs.All()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = usage.DefaultCatalog()
	}
	if cfg.DaysPerMonth <= 0 {
		cfg.DaysPerMonth = usage.DaysPerMonth
	}

	s := &Service{
		cfg:     cfg,
		log:     log,
		tariffs: make(map[string]tariff, len(cfg.Tariffs)),
		now:     time.Now,
	}
	for _, d := range cfg.Tariffs {
		if d.Key == cfg.DefaultTariff && !cfg.Schedule.IsZero() {
			d.Boundaries = cfg.Schedule.Boundaries
			d.Rates = cfg.Schedule.Rates
		}
		sched, err := d.Schedule()
		if err != nil {
			return nil, err
		}
		if _, dup := s.tariffs[d.Key]; dup {
			return nil, fmt.Errorf("estimate: duplicate tariff %q", d.Key)
		}
		s.tariffs[d.Key] = tariff{desc: d, schedule: sched}
		s.order = append(s.order, d.Key)
	}
	if _, ok := s.tariffs[cfg.DefaultTariff]; !ok {
		return nil, fmt.Errorf("%w: default tariff %q is not configured", ErrUnknownTariff, cfg.DefaultTariff)
	}
	return s, nil
}

// Tariffs lists the configured tariffs in configuration order.
func (s *Service) Tariffs() []tariffs.Descriptor {
	out := make([]tariffs.Descriptor, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.tariffs[k].desc)
	}
	return out
}

// Tariff returns a tariff and its schedule; an empty key selects the default.
func (s *Service) Tariff(key string) (tariffs.Descriptor, *slab.Schedule, error) {
	if key == "" {
		key = s.cfg.DefaultTariff
	}
	t, ok := s.tariffs[key]
	if !ok {
		return tariffs.Descriptor{}, nil, fmt.Errorf("%w: %s", ErrUnknownTariff, key)
	}
	return t.desc, t.schedule, nil
}

// Appliances lists the appliance catalog.
func (s *Service) Appliances() []usage.Appliance {
	return s.cfg.Catalog.All()
}

// Bill prices a monthly unit total under a tariff.
func (s *Service) Bill(ctx context.Context, tariffKey string, units float64) (*Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc, sched, err := s.Tariff(tariffKey)
	if err != nil {
		return nil, err
	}

	bill, err := slab.Compute(units, sched)
	metrics.ObserveEstimate(desc.Key, units, err)
	if err != nil {
		s.log.Debug("bill rejected", zap.String("tariff", desc.Key), zap.Float64("units", units), zap.Error(err))
		return nil, err
	}

	est := &Estimate{
		ID:           uuid.NewString(),
		Tariff:       desc.Key,
		Currency:     desc.Currency,
		MonthlyUnits: units,
		Slabs:        bill.Lines,
		TotalCost:    bill.Total,
		Insight:      usage.Assess(units),
		ComputedAt:   s.now().UTC(),
	}
	if est.Slabs == nil {
		est.Slabs = []slab.Line{}
	}

	s.log.Debug("bill computed",
		zap.String("id", est.ID),
		zap.String("tariff", desc.Key),
		zap.Float64("units", units),
		zap.Float64("total_cost", bill.Total),
		zap.Int("slabs", len(bill.Lines)),
	)
	return est, nil
}

// Estimate projects appliance usage to a month and prices it. Requests carry
// either explicit Units or appliance usage (Usage and/or DefaultProfile).
func (s *Service) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	if req.Units != nil {
		if len(req.Usage) > 0 || req.DefaultProfile {
			return nil, fmt.Errorf("%w: units cannot be combined with appliance usage", ErrInvalidRequest)
		}
		return s.Bill(ctx, req.Tariff, *req.Units)
	}

	entries := req.Usage
	if req.DefaultProfile {
		entries = append(usage.DefaultProfile(), entries...)
	}
	sum, err := usage.Compute(entries, s.cfg.Catalog, s.cfg.DaysPerMonth)
	if err != nil {
		return nil, err
	}

	est, err := s.Bill(ctx, req.Tariff, sum.MonthlyUnits)
	if err != nil {
		return nil, err
	}
	est.Appliances = sum.Appliances
	est.DailyKWh = sum.DailyKWh
	est.Tips = usage.Tips()

	s.log.Info("estimate computed",
		zap.String("id", est.ID),
		zap.String("tariff", est.Tariff),
		zap.Float64("daily_kwh", sum.DailyKWh),
		zap.Float64("monthly_units", sum.MonthlyUnits),
		zap.Float64("total_cost", est.TotalCost),
	)
	return est, nil
}
