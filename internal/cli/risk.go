package cli

import (
	"github.com/spf13/cobra"
)

// addRiskCommands adds risk and hedge inspection commands.
func addRiskCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRiskCmd(app))
	rootCmd.AddCommand(newHedgeCmd(app))
}

func newRiskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "risk",
		Short: "Show the platform risk report",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(1); err != nil {
				return err
			}

			report := app.Desk.GetRisk()
			platform := app.Desk.PlatformRisk()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"report":   report,
					"platform": platform,
				})
			}

			output.Bold("Risk report")
			output.Printf("Net delta: %.4f  Open positions: %d  Exposure: $%.2f\n",
				report.DeltaExposure, platform.OpenPositions, platform.TotalExposure)
			if len(report.Alerts) == 0 {
				output.Success("No alerts")
				return nil
			}
			for _, alert := range report.Alerts {
				if alert.Severity == "critical" {
					output.Error("[%s] %s: %s", alert.Severity, alert.Type, alert.Message)
				} else {
					output.Warning("[%s] %s: %s", alert.Severity, alert.Type, alert.Message)
				}
			}
			return nil
		},
	}
}

func newHedgeCmd(app *App) *cobra.Command {
	var (
		account string
		all     bool
		samples int
	)

	cmd := &cobra.Command{
		Use:   "hedge",
		Short: "Recommend hedges for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(samples); err != nil {
				return err
			}

			if all {
				recs, err := app.Desk.GetHedgeRecommendations(account)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(recs)
				}
				if len(recs) == 0 {
					output.Dim("No applicable strategies")
					return nil
				}
				for _, rec := range recs {
					output.Printf("%-22s confidence %.2f  %s\n", rec.Strategy, rec.Confidence, rec.Reasoning)
				}
				return nil
			}

			rec, err := app.Desk.GetHedgeRecommendation(account)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rec)
			}
			if rec == nil {
				output.Dim("No hedge recommended")
				return nil
			}
			output.Bold("%s (confidence %.2f)", rec.Strategy, rec.Confidence)
			output.Println(rec.Reasoning)
			for _, leg := range rec.Legs {
				output.Printf("  %s %.4f %s @ %.0f (%dm) premium $%.2f\n",
					leg.Action, leg.Quantity, leg.Type, leg.Strike, leg.ExpiryMinutes, leg.Premium)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account id")
	cmd.Flags().BoolVar(&all, "all", false, "show every applicable strategy")
	cmd.Flags().IntVar(&samples, "samples", 120, "ticks to sample before analysis")
	cmd.MarkFlagRequired("account")
	return cmd
}
