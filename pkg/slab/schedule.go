package slab

import (
	"fmt"
	"math"
	"strconv"
)

// Band is one contiguous consumption range billed at a single rate.
//
// From is the number of units already consumed before the band starts. To is
// the cumulative unit count at which the band is full; a nil To marks the
// open-ended top band.
type Band struct {
	Label string   `json:"label" yaml:"label"`
	From  float64  `json:"from" yaml:"from"`
	To    *float64 `json:"to,omitempty" yaml:"to,omitempty"`
	Rate  float64  `json:"rate" yaml:"rate"`
}

// OpenEnded reports whether the band has no upper bound.
func (b Band) OpenEnded() bool {
	return b.To == nil
}

// Width returns the number of units the band can hold, or +Inf for the top band.
func (b Band) Width() float64 {
	if b.To == nil {
		return math.Inf(1)
	}
	return *b.To - b.From
}

// Schedule is an ordered list of bands defining a tiered pricing policy.
type Schedule struct {
	Bands []Band `json:"bands" yaml:"bands"`
}

// ScheduleConfig is the compact form of a schedule: the widths of every
// finite band followed by one rate per band, the last rate applying to the
// open-ended top band.
type ScheduleConfig struct {
	Boundaries []float64 `json:"boundaries" yaml:"boundaries" mapstructure:"boundaries"`
	Rates      []float64 `json:"rates" yaml:"rates" mapstructure:"rates"`
}

// Schedule builds a validated Schedule from the config.
func (c ScheduleConfig) Schedule() (*Schedule, error) {
	return NewSchedule(c.Boundaries, c.Rates)
}

// IsZero reports whether no boundaries or rates were configured.
func (c ScheduleConfig) IsZero() bool {
	return len(c.Boundaries) == 0 && len(c.Rates) == 0
}

var (
	defaultWidths = []float64{100, 100, 100}
	defaultRates  = []float64{20, 30, 40, 50}
)

// DefaultSchedule returns the residential schedule:
// 0-100 @ 20, 101-200 @ 30, 201-300 @ 40, 300+ @ 50.
// Each call returns a fresh copy.
func DefaultSchedule() *Schedule {
	s, err := NewSchedule(defaultWidths, defaultRates)
	if err != nil {
		panic(fmt.Sprintf("slab: default schedule is invalid: %v", err))
	}
	return s
}

// DefaultConfig returns the ScheduleConfig equivalent of DefaultSchedule.
func DefaultConfig() ScheduleConfig {
	return ScheduleConfig{
		Boundaries: append([]float64(nil), defaultWidths...),
		Rates:      append([]float64(nil), defaultRates...),
	}
}

// NewSchedule builds a schedule from finite band widths and per-band rates.
// len(rates) must be len(widths)+1.
func NewSchedule(widths, rates []float64) (*Schedule, error) {
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: schedule has no bands", ErrInvalidInput)
	}
	if len(rates) != len(widths)+1 {
		return nil, fmt.Errorf("%w: %d band widths need %d rates, got %d",
			ErrInvalidInput, len(widths), len(widths)+1, len(rates))
	}

	bands := make([]Band, 0, len(rates))
	from := 0.0
	for i, w := range widths {
		if !(w > 0) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: band %d width must be a positive finite number, got %v",
				ErrInvalidInput, i, w)
		}
		to := from + w
		bands = append(bands, Band{
			Label: rangeLabel(i, from, to),
			From:  from,
			To:    &to,
			Rate:  rates[i],
		})
		from = to
	}
	bands = append(bands, Band{
		Label: formatUnits(from) + "+",
		From:  from,
		Rate:  rates[len(rates)-1],
	})

	s := &Schedule{Bands: bands}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that bands start at zero, are contiguous and strictly
// ascending, carry finite non-negative rates, and that exactly the last band
// is open-ended.
func (s *Schedule) Validate() error {
	if s == nil || len(s.Bands) == 0 {
		return fmt.Errorf("%w: schedule has no bands", ErrInvalidInput)
	}

	next := 0.0
	last := len(s.Bands) - 1
	for i, b := range s.Bands {
		if math.IsNaN(b.Rate) || math.IsInf(b.Rate, 0) || b.Rate < 0 {
			return fmt.Errorf("%w: band %d has invalid rate %v", ErrInvalidInput, i, b.Rate)
		}
		if b.From != next {
			return fmt.Errorf("%w: band %d starts at %v, expected %v", ErrInvalidInput, i, b.From, next)
		}
		if i == last {
			if !b.OpenEnded() {
				return fmt.Errorf("%w: last band must be open-ended", ErrInvalidInput)
			}
			break
		}
		if b.OpenEnded() {
			return fmt.Errorf("%w: only the last band may be open-ended (band %d)", ErrInvalidInput, i)
		}
		if !(*b.To > b.From) || math.IsInf(*b.To, 0) {
			return fmt.Errorf("%w: band %d range %v-%v is not ascending", ErrInvalidInput, i, b.From, *b.To)
		}
		next = *b.To
	}
	return nil
}

// Config converts the schedule back to its compact form.
func (s *Schedule) Config() ScheduleConfig {
	var c ScheduleConfig
	for _, b := range s.Bands {
		if !b.OpenEnded() {
			c.Boundaries = append(c.Boundaries, b.Width())
		}
		c.Rates = append(c.Rates, b.Rate)
	}
	return c
}

// rangeLabel mirrors how tariffs are printed on bills: the first band
// includes zero, later bands start one unit after the previous end. A
// fractional boundary is printed as is, since there is no "next unit".
func rangeLabel(i int, from, to float64) string {
	start := from
	if i > 0 && from == math.Trunc(from) {
		start = from + 1
	}
	return formatUnits(start) + "-" + formatUnits(to)
}

func formatUnits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
