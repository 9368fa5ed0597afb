// Package strategies maps an indicator set to a buy/sell/hold signal.
// Evaluation is pure and never raises: any internal fault is downgraded to
// HOLD with a diagnostic reason so the engine control loop stays decidable.
package strategies

// Action is the direction of a trading signal.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Signal is one evaluation outcome. Confidence is a 0-100 heuristic
// strength; HOLD signals carry confidence 0.
type Signal struct {
	Action     Action  `json:"signal"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

func hold(reason string) Signal {
	return Signal{Action: Hold, Reason: reason}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
