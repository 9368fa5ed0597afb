package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebot/indicators"
)

// Strategy is a tagged variant: one evaluator per value, selected through a
// single typed dispatch. There is no registry to miss; an unknown name maps
// to a HOLD signal with a config-error reason, never a failed lookup.
type Strategy int

const (
	SMACrossover Strategy = iota
	RSIReversal
	MACDCross
	BollingerTouch
	Combined
)

// Names accepted by ByName, in declaration order.
var names = map[string]Strategy{
	"sma_crossover":      SMACrossover,
	"rsi_strategy":       RSIReversal,
	"macd_strategy":      MACDCross,
	"bollinger_strategy": BollingerTouch,
	"combined_strategy":  Combined,
}

func (s Strategy) String() string {
	switch s {
	case SMACrossover:
		return "sma_crossover"
	case RSIReversal:
		return "rsi_strategy"
	case MACDCross:
		return "macd_strategy"
	case BollingerTouch:
		return "bollinger_strategy"
	case Combined:
		return "combined_strategy"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ByName resolves a strategy name, case-insensitively.
func ByName(name string) (Strategy, bool) {
	s, ok := names[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Available lists the recognized strategy names.
func Available() []string {
	return []string{
		SMACrossover.String(),
		RSIReversal.String(),
		MACDCross.String(),
		BollingerTouch.String(),
		Combined.String(),
	}
}

// Evaluate dispatches by strategy name. The result is always a well-formed
// signal: unknown names and evaluator faults both collapse to HOLD.
func Evaluate(name string, set *indicators.Set, cfg Config) Signal {
	s, ok := ByName(name)
	if !ok {
		return hold(fmt.Sprintf("config error: unknown strategy %q", name))
	}
	return s.Evaluate(set, cfg)
}

// Evaluate runs the evaluator for this variant. A panic inside an evaluator
// is downgraded to HOLD; the loop must always get a decidable answer.
func (s Strategy) Evaluate(set *indicators.Set, cfg Config) (sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			sig = hold(fmt.Sprintf("%s fault: %v", s, r))
		}
	}()

	if set == nil {
		return hold("no indicator data")
	}

	switch s {
	case SMACrossover:
		return evalSMACrossover(set, cfg.SMA)
	case RSIReversal:
		return evalRSI(set, cfg.RSI)
	case MACDCross:
		return evalMACD(set)
	case BollingerTouch:
		return evalBollinger(set)
	case Combined:
		return evalCombined(set, cfg)
	}
	return hold(fmt.Sprintf("config error: unknown strategy %q", s))
}
