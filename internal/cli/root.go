package cli

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/logging"
	"alpha-sniper/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-30"
)

// App holds the application dependencies. The store opens on first use
// so read-only commands never create the database file.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	storeOnce sync.Once
	store     store.Store
	storeErr  error
}

// OpenStore opens the SQLite store, once, for the commands that need it.
func (a *App) OpenStore() (store.Store, error) {
	a.storeOnce.Do(func() {
		dbPath := config.DefaultConfigDir() + "/sniper.db"
		s, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			a.storeErr = err
			return
		}
		a.store = s
		a.Logger.Debug().Msg("SQLite store initialized")
	})
	return a.store, a.storeErr
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "sniper",
		Short: "Alpha Sniper - Solana token sniping pipeline",
		Long: `Alpha Sniper is an autonomous token sniping pipeline for Solana.

It scans DEX listings and pump.fun launches, scores each token's alpha
signal, and routes high-conviction buys through a prioritized execution
queue with multi-venue failover.

Use 'sniper help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/alpha-sniper)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newLedgerCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Alpha Sniper v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:             %s\n", cfg.Trading.Mode)
	output.Printf("  Slippage:         %d bps\n", cfg.Trading.SlippageBps)
	output.Printf("  RPC URL:          %s\n", cfg.Trading.RPCURL)
	output.Println()

	output.Bold("Capital Configuration")
	output.Printf("  Total Capital:    %.4f SOL\n", cfg.Capital.TotalCapital)
	output.Printf("  Max Position %%:   %.1f%%\n", cfg.Capital.MaxPositionFraction*100)
	output.Printf("  Max Positions:    %d\n", cfg.Capital.MaxActivePositions)
	output.Println()

	output.Bold("Engine Configuration")
	output.Printf("  Threshold:        %d [%d, %d]\n",
		cfg.Engine.DefaultThreshold, cfg.Engine.ThresholdFloor, cfg.Engine.ThresholdCeiling)
	output.Printf("  Min Confidence:   %d\n", cfg.Engine.MinConfidence)
	output.Printf("  Risk Ceiling:     %d\n", cfg.Engine.RiskCeiling)
	output.Println()

	output.Bold("Queue Configuration")
	output.Printf("  Tier Delays:      %s / %s / %s\n",
		cfg.Queue.HighDelay, cfg.Queue.MediumDelay, cfg.Queue.LowDelay)
	output.Printf("  Batch Size:       %d\n", cfg.Queue.BatchSize)
	output.Printf("  Retention:        %s\n", cfg.Queue.Retention)
	output.Println()

	output.Bold("Executor Configuration")
	output.Printf("  Max Attempts:     %d per venue\n", cfg.Executor.MaxAttemptsPerVenue)
	output.Printf("  Backoff:          %s base, %s max\n", cfg.Executor.BackoffBase, cfg.Executor.BackoffMax)
	output.Printf("  Min Output:       %.0f%%\n", cfg.Executor.MinOutputFraction*100)

	return nil
}
