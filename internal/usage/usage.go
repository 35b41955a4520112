// Package usage turns appliance usage into daily and monthly energy figures.
package usage

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DaysPerMonth is the projection factor from daily to monthly energy.
const DaysPerMonth = 30

// ErrInvalidUsage is returned for unknown appliances or out-of-range usage.
var ErrInvalidUsage = errors.New("usage: invalid usage")

// Entry is how many of an appliance run and for how long each day.
type Entry struct {
	Appliance   string  `json:"appliance" yaml:"appliance"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	HoursPerDay float64 `json:"hours_per_day" yaml:"hours_per_day"`
}

// ApplianceUsage is the daily energy attributed to one entry.
type ApplianceUsage struct {
	Appliance string  `json:"appliance"`
	Quantity  float64 `json:"quantity"`
	Hours     float64 `json:"hours_per_day"`
	DailyKWh  float64 `json:"daily_kwh"`
}

// Summary aggregates a household's usage.
type Summary struct {
	Appliances   []ApplianceUsage `json:"appliances"`
	DailyKWh     float64          `json:"daily_kwh"`
	MonthlyUnits float64          `json:"monthly_units"`
}

// Compute converts entries into per-appliance daily kWh and a monthly
// projection of days days. days <= 0 uses DaysPerMonth.
func Compute(entries []Entry, catalog *Catalog, days int) (Summary, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if days <= 0 {
		days = DaysPerMonth
	}

	var s Summary
	for i, e := range entries {
		a, ok := catalog.Lookup(e.Appliance)
		if !ok {
			return Summary{}, fmt.Errorf("%w: entry %d: unknown appliance %q", ErrInvalidUsage, i, e.Appliance)
		}
		if !finite(e.Quantity) || e.Quantity < 0 {
			return Summary{}, fmt.Errorf("%w: entry %d: quantity must be >= 0, got %v", ErrInvalidUsage, i, e.Quantity)
		}
		hours := e.HoursPerDay
		if a.AlwaysOn {
			hours = 24
		}
		if !finite(hours) || hours < 0 || hours > 24 {
			return Summary{}, fmt.Errorf("%w: entry %d: hours per day must be within 0-24, got %v", ErrInvalidUsage, i, hours)
		}

		kwh := e.Quantity * a.Watts * hours / 1000
		s.Appliances = append(s.Appliances, ApplianceUsage{
			Appliance: a.Name,
			Quantity:  e.Quantity,
			Hours:     hours,
			DailyKWh:  kwh,
		})
		s.DailyKWh += kwh
	}
	s.MonthlyUnits = s.DailyKWh * float64(days)
	return s, nil
}

// DefaultProfile is a typical household: two fans for 8 hours, five lights
// for 6 hours, one AC for 5 hours, one TV for 4 hours, the iron, washing
// machine and water pump for an hour each, and the refrigerator running.
func DefaultProfile() []Entry {
	return []Entry{
		{Appliance: "Fan", Quantity: 2, HoursPerDay: 8},
		{Appliance: "Light", Quantity: 5, HoursPerDay: 6},
		{Appliance: "AC", Quantity: 1, HoursPerDay: 5},
		{Appliance: "TV", Quantity: 1, HoursPerDay: 4},
		{Appliance: "Iron", Quantity: 1, HoursPerDay: 1},
		{Appliance: "Washing Machine", Quantity: 1, HoursPerDay: 1},
		{Appliance: "Refrigerator", Quantity: 1, HoursPerDay: 24},
		{Appliance: "Water Pump", Quantity: 1, HoursPerDay: 1},
	}
}

// ParseEntry parses "name:quantity:hours". Quantity defaults to 1 and hours
// to 24 when omitted, so "Refrigerator" alone is valid.
func ParseEntry(s string) (Entry, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || strings.TrimSpace(parts[0]) == "" {
		return Entry{}, fmt.Errorf("%w: expected name[:quantity[:hours]], got %q", ErrInvalidUsage, s)
	}
	e := Entry{Appliance: strings.TrimSpace(parts[0]), Quantity: 1, HoursPerDay: 24}
	if len(parts) > 1 {
		q, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: bad quantity in %q: %v", ErrInvalidUsage, s, err)
		}
		e.Quantity = q
	}
	if len(parts) > 2 {
		h, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: bad hours in %q: %v", ErrInvalidUsage, s, err)
		}
		e.HoursPerDay = h
	}
	return e, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
