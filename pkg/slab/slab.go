// Package slab allocates a monthly energy quantity across tiered rate bands
// and prices each band.
package slab

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for negative or non-finite unit totals, for
// totals whose cost is not representable, and for malformed schedules.
var ErrInvalidInput = errors.New("slab: invalid input")

// Line is one row of a bill breakdown.
type Line struct {
	Slab  string  `json:"slab"`
	Units float64 `json:"units"`
	Rate  float64 `json:"rate"`
	Cost  float64 `json:"cost"`
}

// Bill is the itemized result of Compute. Only bands with allocated units
// appear in Lines.
type Bill struct {
	Lines []Line  `json:"slabs"`
	Total float64 `json:"total_cost"`
}

// Units returns the sum of allocated units across all lines.
func (b Bill) Units() float64 {
	var sum float64
	for _, l := range b.Lines {
		sum += l.Units
	}
	return sum
}

// Compute fills the bands of s in ascending order with units and returns the
// per-band breakdown and total cost. A nil schedule selects DefaultSchedule.
func Compute(units float64, s *Schedule) (Bill, error) {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return Bill{}, fmt.Errorf("%w: units must be finite, got %v", ErrInvalidInput, units)
	}
	if units < 0 {
		return Bill{}, fmt.Errorf("%w: units must not be negative, got %v", ErrInvalidInput, units)
	}
	if s == nil {
		s = DefaultSchedule()
	}
	if err := s.Validate(); err != nil {
		return Bill{}, err
	}

	var bill Bill
	remaining := units
	top := s.Bands[len(s.Bands)-1]
	for _, b := range s.Bands[:len(s.Bands)-1] {
		if remaining <= 0 {
			break
		}
		allocated := math.Min(b.Width(), remaining)
		bill.Lines = append(bill.Lines, newLine(b, allocated))
		remaining -= allocated
	}
	if remaining > 0 {
		bill.Lines = append(bill.Lines, newLine(top, remaining))
	}

	for _, l := range bill.Lines {
		bill.Total += l.Cost
	}
	if math.IsInf(bill.Total, 0) || math.IsNaN(bill.Total) {
		return Bill{}, fmt.Errorf("%w: cost of %v units overflows", ErrInvalidInput, units)
	}
	return bill, nil
}

func newLine(b Band, units float64) Line {
	return Line{
		Slab:  b.Label,
		Units: units,
		Rate:  b.Rate,
		Cost:  units * b.Rate,
	}
}
