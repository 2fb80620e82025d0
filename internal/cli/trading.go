package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"atticus-desk/internal/models"
)

// addTradingCommands adds account, order and portfolio commands.
func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAccountCmd(app))
	rootCmd.AddCommand(newOrderCmd(app))
	rootCmd.AddCommand(newCloseCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
}

func newAccountCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management",
	}

	var balance float64
	create := &cobra.Command{
		Use:   "create <account-id>",
		Short: "Create a trading account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			acct := app.Desk.CreateAccount(args[0], balance)
			if output.IsJSON() {
				return output.JSON(acct)
			}
			output.Success("Account %s ready with %.4f BTC", acct.ID, acct.BalanceBTC)
			return nil
		},
	}
	create.Flags().Float64Var(&balance, "balance", 0, "initial BTC balance (0 = default)")
	cmd.AddCommand(create)

	return cmd
}

func newOrderCmd(app *App) *cobra.Command {
	var (
		account string
		side    string
		optType string
		strike  float64
		expiry  int
		qty     float64
		samples int
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place an option order",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(samples); err != nil {
				return err
			}

			order := models.Order{
				AccountID:     account,
				Side:          models.OrderSide(side),
				Type:          models.OptionType(optType),
				Strike:        strike,
				ExpiryMinutes: expiry,
				Quantity:      qty,
			}
			placed, pos, err := app.Desk.PlaceOrder(order)
			if err != nil {
				output.Error("Order rejected: %s", placed.Reason)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"order": placed, "position": pos})
			}
			output.Success("Filled %s %s %.4f @ strike %.0f for $%.2f",
				placed.Side, placed.Type, placed.Quantity, placed.Strike, placed.TotalPremium)
			output.Dim("Position %s expires %s", pos.ID, pos.ExpiryTime.Format("15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account id")
	cmd.Flags().StringVar(&side, "side", "buy", "buy or sell")
	cmd.Flags().StringVar(&optType, "type", "call", "call or put")
	cmd.Flags().Float64Var(&strike, "strike", 0, "strike price")
	cmd.Flags().IntVar(&expiry, "expiry", 240, "expiry in minutes")
	cmd.Flags().Float64Var(&qty, "qty", 1, "number of contracts")
	cmd.Flags().IntVar(&samples, "samples", 120, "ticks to sample before quoting")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("strike")
	return cmd
}

func newCloseCmd(app *App) *cobra.Command {
	var (
		account string
		qty     float64
	)

	cmd := &cobra.Command{
		Use:   "close <position-id>",
		Short: "Close a position early",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(1); err != nil {
				return err
			}
			msg, err := app.Desk.ClosePosition(account, args[0], qty)
			if err != nil {
				return err
			}
			output.Success("%s", msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account id")
	cmd.Flags().Float64Var(&qty, "qty", 0, "contracts to close (0 = all)")
	cmd.MarkFlagRequired("account")
	return cmd
}

func newPortfolioCmd(app *App) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show an account's portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.primeMarket(1); err != nil {
				return err
			}
			pf, err := app.Desk.GetPortfolio(account)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(pf)
			}

			output.Bold("Account %s", pf.AccountID)
			output.Printf("Balance: %.4f BTC ($%.2f)  Portfolio: $%.2f  PnL: $%.2f  Net delta: %.4f\n",
				pf.BalanceBTC, pf.BalanceUSD, pf.PortfolioValue, pf.TotalPnL, pf.NetDelta)
			if len(pf.Positions) == 0 {
				output.Dim("No open positions")
				return nil
			}
			for _, p := range pf.Positions {
				output.Printf("%s  %s %s %.4f @ %.0f  value $%.2f  pnl %s  expires in %s\n",
					p.PositionID, formatSide(output, p.Side), p.Type, p.Quantity, p.Strike,
					p.CurrentValue, formatPnL(output, p.PnL), p.TimeRemaining.Round(time.Second))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account id")
	cmd.MarkFlagRequired("account")
	return cmd
}

func formatPnL(o *Output, pnl float64) string {
	s := fmt.Sprintf("$%.2f", pnl)
	if pnl >= 0 {
		return o.Green(s)
	}
	return o.Red(s)
}
