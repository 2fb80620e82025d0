package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// addRunCommands adds the service entry point.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the desk against the simulated feed",
		Long: `Starts the tick intake and valuation loops and runs until
interrupted. Positions are marked, expiries settled and risk refreshed
every cycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if app.Journal != nil {
				defer app.Journal.Close()
			}

			output.Info("Starting desk for %s, waiting for first price...", app.Config.Market.Symbol)

			errCh := make(chan error, 1)
			go func() { errCh <- app.Desk.Run(ctx) }()

			if err := app.Desk.WaitForPrice(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if tick, ok := app.Desk.LatestTick(); ok {
				output.Success("First price: $%.2f from %s", tick.Price, tick.Source)
			}

			err := <-errCh
			if errors.Is(err, context.Canceled) {
				output.Println("Desk stopped.")
				return nil
			}
			return err
		},
	}
}
