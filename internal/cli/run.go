package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/dex"
	"alpha-sniper/internal/engine"
	"alpha-sniper/internal/executor"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/metrics"
	"alpha-sniper/internal/notify"
	"alpha-sniper/internal/pipeline"
	"alpha-sniper/internal/positions"
	"alpha-sniper/internal/queue"
	"alpha-sniper/internal/scanner"
	"alpha-sniper/internal/scoring"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sniping pipeline",
		Long: `Run the full pipeline: scan for tokens, score and evaluate them, and
execute queued buys until interrupted.

Paper mode (the default) settles against a simulated venue. Live mode
requires WALLET_PRIVATE_KEY and routes through Jupiter with Raydium as
fallback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), app)
		},
	}
	return cmd
}

func runPipeline(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	venues, signer, err := buildVenues(cfg)
	if err != nil {
		return err
	}

	dataStore, err := app.OpenStore()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, history will not persist")
	}

	capital := ledger.New(cfg.Capital.TotalCapital, cfg.Capital.MaxPositionFraction, cfg.Capital.RiskBudget)
	decisionEngine := engine.New(cfg.Engine, capital, cfg.Capital.MaxActivePositions, logger)
	execQueue := queue.New(cfg.Queue, logger)
	book := positions.NewBook()
	notifier := notify.NewTerminalNotifier()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)
		go serveMetrics(cfg.Metrics, registry, app)
	}

	coordinator := executor.New(cfg.Executor, venues, signer, capital,
		cfg.Trading.SlippageBps, logger, executor.Options{
			Trades:    dataStore,
			Notifier:  notifier,
			Metrics:   m,
			Positions: book,
		})

	scanners := []scanner.Scanner{
		scanner.NewDexScreenerScanner(scanner.DexScreenerConfig{
			BaseURL: cfg.Scanner.DexScreenerURL,
		}, logger),
	}
	stream := scanner.NewPumpFunStream(scanner.PumpFunConfig{
		URL: cfg.Scanner.PumpFunWSURL,
	}, logger)

	p := pipeline.New(cfg, pipeline.Deps{
		Scanners:    scanners,
		Stream:      stream,
		Scorer:      scoring.NewConfidenceScorer(),
		Engine:      decisionEngine,
		Queue:       execQueue,
		Coordinator: coordinator,
		Capital:     capital,
		Store:       dataStore,
		Notifier:    notifier,
		Metrics:     m,
	}, logger)

	if err := p.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("Ledger restore failed, starting fresh")
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mode := "live"
	if cfg.IsPaperMode() {
		mode = "paper"
	}
	logger.Info().Str("mode", mode).Msg("Starting pipeline")

	if err := p.Run(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}
	logger.Info().Msg("Pipeline stopped")
	return nil
}

func buildVenues(cfg *config.Config) ([]dex.Venue, dex.Signer, error) {
	if cfg.IsPaperMode() {
		return []dex.Venue{dex.NewPaperVenue("paper")}, dex.PaperSigner{}, nil
	}

	if cfg.Trading.WalletPrivateKey == "" {
		return nil, nil, fmt.Errorf("live mode requires WALLET_PRIVATE_KEY")
	}
	signer, err := dex.NewWalletSigner(cfg.Trading.WalletPrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("loading wallet: %w", err)
	}

	pubkey := signer.PublicKey()
	venues := []dex.Venue{
		dex.NewJupiterVenue(dex.JupiterConfig{
			RPCURL:        cfg.Trading.RPCURL,
			UserPublicKey: pubkey,
			Timeout:       cfg.Executor.RequestTimeout,
		}),
		dex.NewRaydiumVenue(dex.RaydiumConfig{
			RPCURL:        cfg.Trading.RPCURL,
			UserPublicKey: pubkey,
			Timeout:       cfg.Executor.RequestTimeout,
		}),
	}
	return venues, signer, nil
}

func serveMetrics(cfg config.MetricsConfig, registry *prometheus.Registry, app *App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	app.Logger.Info().Str("addr", cfg.ListenAddr).Msg("Metrics server listening")
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		app.Logger.Error().Err(err).Msg("Metrics server failed")
	}
}
