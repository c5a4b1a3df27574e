package entity

import (
	"fmt"

	json "github.com/bytedance/sonic"
)

// Direction is the side of a trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// IndicatorSet is the snapshot of indicator values that produced a signal.
// Kept on the position so the dashboard can show why it was opened.
type IndicatorSet struct {
	RSI         float64 `json:"rsi"`
	MACD        float64 `json:"macd"`
	EMA20       float64 `json:"e20"`
	EMA50       float64 `json:"e50"`
	BBUpper     float64 `json:"bbu"`
	BBLower     float64 `json:"bbl"`
	VolumeRatio float64 `json:"vr"`
}

// Signal is a scored, directional trading suggestion for one instrument at
// one instant. It is ephemeral: consumed immediately to decide whether to
// open a position, never stored.
type Signal struct {
	Symbol     string       `json:"sym"`
	Direction  Direction    `json:"action"`
	Price      float64      `json:"price"`
	Confidence float64      `json:"conf"`
	Reasons    []string     `json:"reasons"`
	Strategy   string       `json:"strat"`
	Leverage   int          `json:"lev"`
	ATR        float64      `json:"atr"`
	Indicators IndicatorSet `json:"ind"`
	Candles    []Candle     `json:"klines"`
}

func (s *Signal) String() string {
	out, _ := json.Marshal(s)
	return fmt.Sprintf("%s", out)
}
