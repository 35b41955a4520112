package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bher20/slabbiller/internal/estimate"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderEstimate prints an estimate as plain-text tables.
func renderEstimate(w io.Writer, est *estimate.Estimate) error {
	if len(est.Appliances) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "APPLIANCE\tQTY\tHOURS/DAY\tKWH/DAY")
		for _, a := range est.Appliances {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Appliance, estimate.FormatUnits(a.Quantity), estimate.FormatUnits(a.Hours), estimate.FormatUnits(a.DailyKWh))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "Daily consumption: %s kWh\n\n", estimate.FormatUnits(est.DailyKWh))
	}

	fmt.Fprintf(w, "Tariff: %s\n", est.Tariff)
	fmt.Fprintf(w, "Monthly units: %s\n", estimate.FormatUnits(est.MonthlyUnits))

	if len(est.Slabs) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SLAB\tUNITS\tRATE\tCOST")
		for _, l := range est.Slabs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Slab, estimate.FormatUnits(l.Units),
				estimate.FormatMoney(est.Currency, l.Rate), estimate.FormatMoney(est.Currency, l.Cost))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Total: %s\n", estimate.FormatMoney(est.Currency, est.TotalCost))
	fmt.Fprintf(w, "Insight: %s\n", est.Insight.Message)

	if len(est.Tips) > 0 {
		fmt.Fprintln(w, "Tips:")
		for _, tip := range est.Tips {
			fmt.Fprintf(w, "  - %s\n", tip)
		}
	}
	return nil
}
