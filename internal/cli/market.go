package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"atticus-desk/internal/models"
)

// primeMarket pulls ticks from the source so one-shot query commands
// have enough history for the estimator to produce a real vol.
func (a *App) primeMarket(samples int) error {
	if a.Source == nil {
		return fmt.Errorf("no price source configured")
	}
	ctx := context.Background()
	for i := 0; i < samples; i++ {
		price, volume, err := a.Source.Price(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch price: %w", err)
		}
		a.Desk.OnPrice(a.Config.Market.Symbol, price, volume, time.Now().UTC())
	}
	return nil
}

// addMarketCommands adds chain and price inspection commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newPriceCmd(app))
}

func newChainCmd(app *App) *cobra.Command {
	var expiry int
	var samples int

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Generate the option chain for an expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(samples); err != nil {
				return err
			}

			chain, err := app.Desk.GetChain(expiry)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(chain)
			}

			output.Bold("%s chain @ $%.2f (vol %.2f)", chain.ExpiryLabel, chain.UnderlyingPrice, chain.VolatilityUsed)
			output.Printf("%-10s %-12s %-10s | %-10s %-12s %-10s\n",
				"STRIKE", "CALL", "DELTA", "STRIKE", "PUT", "DELTA")
			for i := range chain.Calls {
				call := chain.Calls[i]
				put := chain.Puts[i]
				output.Printf("%-10.0f %-12.4f %-10.4f | %-10.0f %-12.4f %-10.4f\n",
					call.Strike, call.PremiumUSD, call.Greeks.Delta,
					put.Strike, put.PremiumUSD, put.Greeks.Delta)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&expiry, "expiry", 240, "expiry in minutes")
	cmd.Flags().IntVar(&samples, "samples", 120, "ticks to sample before quoting")
	return cmd
}

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price",
		Short: "Show the current reference price",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(1); err != nil {
				return err
			}
			tick, ok := app.Desk.LatestTick()
			if !ok {
				return fmt.Errorf("no price available")
			}
			if output.IsJSON() {
				return output.JSON(tick)
			}
			output.Printf("%s  $%.2f  (volume %.2f, source %s)\n",
				tick.Symbol, tick.Price, tick.Volume, tick.Source)
			return nil
		},
	}
}

func formatSide(o *Output, side models.PositionSide) string {
	if side == models.Long {
		return o.Green(string(side))
	}
	return o.Red(string(side))
}
