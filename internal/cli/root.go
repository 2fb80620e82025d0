package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"atticus-desk/internal/config"
	"atticus-desk/internal/desk"
	"atticus-desk/internal/feed"
	"atticus-desk/internal/ledger"
	"atticus-desk/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Desk    *desk.Desk
	Source  feed.Source
	Journal *store.SQLiteJournal
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var journal ledger.Journal
	if cfg.Journal.Enabled {
		j, err := store.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to open journal, trades will not be recorded")
		} else {
			app.Journal = j
			journal = j
			logger.Debug().Str("path", cfg.Journal.Path).Msg("Journal opened")
		}
	}

	source := feed.NewSimulated(50000, 0.0005, 1)
	app.Source = source
	app.Desk = desk.New(cfg, source, journal, logger)

	rootCmd := &cobra.Command{
		Use:   "atticus",
		Short: "Atticus - BTC short-dated options desk",
		Long: `Atticus is a short-dated BTC options desk: it estimates realized
volatility from the live feed, generates Black-Scholes option chains,
executes and settles positions, and recommends hedges.

Use 'atticus help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/atticus)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addRunCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addRiskCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Atticus Options Desk v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			return output.JSON(app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration directory",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Println(config.DefaultConfigDir())
		},
	})

	return cmd
}
