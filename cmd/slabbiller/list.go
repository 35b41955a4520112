package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bher20/slabbiller/internal/estimate"
)

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "List configured tariffs and their slabs",
	RunE:  runTariffs,
}

var appliancesCmd = &cobra.Command{
	Use:   "appliances",
	Short: "List the appliance catalog",
	RunE:  runAppliances,
}

func init() {
	rootCmd.AddCommand(tariffsCmd)
	rootCmd.AddCommand(appliancesCmd)
}

func runTariffs(cmd *cobra.Command, args []string) error {
	_, log, svc, err := setup(true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	out := cmd.OutOrStdout()
	for i, desc := range svc.Tariffs() {
		_, sched, err := svc.Tariff(desc.Key)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%s)\n", desc.Name, desc.Key)
		if desc.Notes != "" {
			fmt.Fprintf(out, "  %s\n", desc.Notes)
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  SLAB\tRATE")
		for _, b := range sched.Bands {
			fmt.Fprintf(tw, "  %s\t%s/unit\n", b.Label, estimate.FormatMoney(desc.Currency, b.Rate))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func runAppliances(cmd *cobra.Command, args []string) error {
	_, log, svc, err := setup(true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "APPLIANCE\tWATTS\tNOTES")
	for _, a := range svc.Appliances() {
		var notes []string
		if a.AlwaysOn {
			notes = append(notes, "always on (24h)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, estimate.FormatUnits(a.Watts), strings.Join(notes, ", "))
	}
	return tw.Flush()
}
