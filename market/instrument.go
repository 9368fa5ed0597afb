package market

import "strings"

// SplitSymbol splits an instrument id like "BTC-USDT" into base and quote
// currencies. A symbol without a separator returns itself as base and "USDT"
// as quote.
func SplitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(symbol, "-", 2)
	if len(parts) == 2 && parts[1] != "" {
		return parts[0], parts[1]
	}
	return symbol, "USDT"
}
