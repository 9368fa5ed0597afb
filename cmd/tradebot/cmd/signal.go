package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/broker/okx"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/strategies"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Evaluate a strategy against live market data once",
	Long: `Fetch recent candles, compute indicators and print the strategy
signal as JSON. No account access and no orders, public market data only.

Example:
  tradebot signal --symbol BTC-USDT --strategy combined_strategy`,
	RunE: runSignal,
}

var (
	signalSymbol   string
	signalStrategy string
	signalInterval string
	signalLimit    int
)

func init() {
	rootCmd.AddCommand(signalCmd)

	signalCmd.Flags().StringVarP(&signalSymbol, "symbol", "s", "BTC-USDT", "trading pair")
	signalCmd.Flags().StringVar(&signalStrategy, "strategy", "combined_strategy",
		"strategy name (see 'tradebot strategies')")
	signalCmd.Flags().StringVar(&signalInterval, "interval", "1m", "candle interval")
	signalCmd.Flags().IntVar(&signalLimit, "limit", 500, "candles to fetch")
}

func runSignal(cmd *cobra.Command, args []string) error {
	client := okx.New(signalSymbol, okx.Config{})

	candles, err := client.FetchCandles(context.Background(), signalSymbol, signalInterval, signalLimit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}

	hist := market.NewHistory(market.DefaultCapacity)
	if err := hist.BulkLoad(candles); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if !hist.Sufficient() {
		fmt.Fprintf(os.Stderr, "warning: only %d samples loaded, strategies hold below %d\n",
			hist.Len(), market.MinSamples)
	}

	set := indicators.Compute(hist.Snapshot())
	sig := strategies.Evaluate(signalStrategy, set, strategies.Defaults())

	last, _ := hist.Last()
	out := struct {
		Symbol  string            `json:"symbol"`
		Price   float64           `json:"price"`
		Samples int               `json:"samples"`
		Signal  strategies.Signal `json:"signal"`
	}{
		Symbol:  signalSymbol,
		Price:   last.Close,
		Samples: hist.Len(),
		Signal:  sig,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategy names",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range strategies.Available() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
