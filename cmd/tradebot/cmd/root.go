package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "An unattended single-symbol trading bot for OKX spot markets",
	Long: `Tradebot runs an automated decision and execution loop for one spot
trading pair.

It provides tools for:
  - Running the bot against a simulated in-memory exchange
  - Trading live through the OKX v5 REST API
  - Indicator-driven strategies (SMA, RSI, MACD, Bollinger, combined)
  - Risk-based position sizing with stop-loss and take-profit guards
  - One-shot signal evaluation for a quick market read

Exchange credentials are read from the environment (OKX_API_KEY,
OKX_SECRET_KEY, OKX_PASSPHRASE), optionally via a .env file.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		// Missing .env is fine, the variables may come from the shell.
		_ = godotenv.Load()
	})
}
