package estimate

import (
	"time"

	"github.com/bher20/slabbiller/internal/usage"
	"github.com/bher20/slabbiller/pkg/slab"
)

// Request is the input of Service.Estimate.
type Request struct {
	Tariff         string        `json:"tariff,omitempty"`
	Usage          []usage.Entry `json:"usage,omitempty"`
	DefaultProfile bool          `json:"default_profile,omitempty"`
	Units          *float64      `json:"units,omitempty"`
}

// Estimate is a priced monthly bill, optionally with the appliance usage it
// was derived from.
type Estimate struct {
	ID           string                 `json:"id"`
	Tariff       string                 `json:"tariff"`
	Currency     string                 `json:"currency"`
	Appliances   []usage.ApplianceUsage `json:"appliances,omitempty"`
	DailyKWh     float64                `json:"daily_kwh,omitempty"`
	MonthlyUnits float64                `json:"monthly_units"`
	Slabs        []slab.Line            `json:"slabs"`
	TotalCost    float64                `json:"total_cost"`
	Insight      usage.Insight          `json:"insight"`
	Tips         []string               `json:"tips,omitempty"`
	ComputedAt   time.Time              `json:"computed_at"`
}
