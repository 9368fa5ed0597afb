package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/broker/okx"
	"github.com/rustyeddy/tradebot/broker/sim"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/feed"
	"github.com/rustyeddy/tradebot/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop from a config file",
	Long: `Start the bot and trade until interrupted.

The config file selects the symbol, the strategy, the risk limits and the
execution backend. With exchange.simulated set the bot runs entirely
offline against an in-memory exchange.

Example:
  tradebot run --config configs/sim.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runVerbose    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "debug logging")
	runCmd.MarkFlagRequired("config")
}

func buildLogger() (*zap.Logger, error) {
	if runVerbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildGateway picks the execution backend from the config.
func buildGateway(cfg *config.Config) (broker.ExchangeGateway, error) {
	if cfg.Exchange.Simulated {
		return sim.New(cfg.Trading.Symbol, cfg.Exchange.SimulatedBalance, 0), nil
	}

	creds := okx.Config{
		APIKey:     os.Getenv("OKX_API_KEY"),
		SecretKey:  os.Getenv("OKX_SECRET_KEY"),
		Passphrase: os.Getenv("OKX_PASSPHRASE"),
		BaseURL:    cfg.Exchange.BaseURL,
		Timeout:    cfg.Exchange.Timeout(),
	}
	if creds.APIKey == "" || creds.SecretKey == "" || creds.Passphrase == "" {
		return nil, fmt.Errorf("live mode needs OKX_API_KEY, OKX_SECRET_KEY and OKX_PASSPHRASE")
	}
	return okx.New(cfg.Trading.Symbol, creds), nil
}

// runStream drives the engine from pushed websocket quotes instead of the
// REST poller. The stream reconnects on its own; the loop ends when the
// context is cancelled and the ticker channel closes.
func runStream(ctx context.Context, cfg *config.Config, ctrl *engine.Controller, log *zap.Logger) error {
	stream := feed.NewTickerStream("", cfg.Trading.Symbol, log)
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	for tk := range stream.Tickers() {
		if err := ctrl.ApplyTicker(ctx, tk); err != nil {
			if err == engine.ErrNotRunning {
				break
			}
			log.Warn("stream cycle failed", zap.Error(err))
		}
	}
	return <-done
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	gw, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	var met *metrics.Metrics
	if cfg.Metrics.Enabled {
		met = metrics.New()
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.Metrics.Listen))
			if err := http.ListenAndServe(cfg.Metrics.Listen, met.Handler()); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctrl := engine.New(engine.Config{
		Symbol:     cfg.Trading.Symbol,
		Strategy:   cfg.Trading.Strategy,
		Interval:   cfg.Trading.Interval,
		Limit:      cfg.Trading.Limit,
		Strategies: cfg.Strategies,
		Risk:       cfg.Risk,
	}, gw, log, met)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer ctrl.Stop()

	if cfg.Trading.Stream {
		err = runStream(ctx, cfg, ctrl, log)
	} else {
		poller := feed.NewPoller(cfg.Trading.PollInterval(), ctrl.UpdatePriceData, log)
		err = poller.Run(ctx)
	}

	st := ctrl.Status()
	fmt.Printf("\nSession summary for %s\n", st.Symbol)
	fmt.Printf("  Trades:  %d (%d wins, %d losses)\n",
		st.Stats.TotalTrades, st.Stats.WinningTrades, st.Stats.LosingTrades)
	fmt.Printf("  Profit:  %.4f\n", st.Stats.TotalProfit)

	if err == context.Canceled {
		return nil
	}
	return err
}
