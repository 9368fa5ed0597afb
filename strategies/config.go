package strategies

// Config carries per-strategy parameters. Zero values are filled in by
// Defaults; the combined strategy reuses the component sections.
type Config struct {
	SMA       SMAConfig       `json:"sma" yaml:"sma"`
	RSI       RSIConfig       `json:"rsi" yaml:"rsi"`
	MACD      MACDConfig      `json:"macd" yaml:"macd"`
	Bollinger BollingerConfig `json:"bollinger" yaml:"bollinger"`
}

type SMAConfig struct {
	ShortPeriod int `json:"short_period" yaml:"short_period"`
	LongPeriod  int `json:"long_period" yaml:"long_period"`
}

type RSIConfig struct {
	Period     int     `json:"period" yaml:"period"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought"`
}

type MACDConfig struct {
	FastPeriod   int `json:"fast_period" yaml:"fast_period"`
	SlowPeriod   int `json:"slow_period" yaml:"slow_period"`
	SignalPeriod int `json:"signal_period" yaml:"signal_period"`
}

type BollingerConfig struct {
	Period int     `json:"period" yaml:"period"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// Defaults returns the standard parameter set.
func Defaults() Config {
	return Config{
		SMA:       SMAConfig{ShortPeriod: 20, LongPeriod: 50},
		RSI:       RSIConfig{Period: 14, Oversold: 30, Overbought: 70},
		MACD:      MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		Bollinger: BollingerConfig{Period: 20, StdDev: 2},
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.SMA.ShortPeriod <= 0 {
		c.SMA.ShortPeriod = d.SMA.ShortPeriod
	}
	if c.SMA.LongPeriod <= 0 {
		c.SMA.LongPeriod = d.SMA.LongPeriod
	}
	if c.RSI.Period <= 0 {
		c.RSI.Period = d.RSI.Period
	}
	if c.RSI.Oversold <= 0 {
		c.RSI.Oversold = d.RSI.Oversold
	}
	if c.RSI.Overbought <= 0 {
		c.RSI.Overbought = d.RSI.Overbought
	}
	if c.MACD.FastPeriod <= 0 {
		c.MACD = d.MACD
	}
	if c.Bollinger.Period <= 0 {
		c.Bollinger = d.Bollinger
	}
	return c
}
