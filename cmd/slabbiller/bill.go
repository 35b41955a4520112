package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	billUnits  float64
	billTariff string
	billJSON   bool
)

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Price a monthly unit total",
	Long:  `Computes the slab-by-slab breakdown and total cost for a monthly consumption given in units (kWh).`,
	RunE:  runBill,
}

func init() {
	billCmd.Flags().Float64Var(&billUnits, "units", 0, "monthly consumption in units (kWh)")
	billCmd.Flags().StringVar(&billTariff, "tariff", "", "tariff key (default from config)")
	billCmd.Flags().BoolVar(&billJSON, "json", false, "print the estimate as JSON")
	_ = billCmd.MarkFlagRequired("units")
	rootCmd.AddCommand(billCmd)
}

func runBill(cmd *cobra.Command, args []string) error {
	_, log, svc, err := setup(true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	est, err := svc.Bill(cmd.Context(), billTariff, billUnits)
	if err != nil {
		return fmt.Errorf("computing bill: %w", err)
	}

	if billJSON {
		return writeJSON(cmd.OutOrStdout(), est)
	}
	return renderEstimate(cmd.OutOrStdout(), est)
}
