package entity

import "time"

// Close reasons recorded on a TradeRecord.
const (
	CloseTakeProfit = "TP"
	CloseStopLoss   = "SL"
	CloseManual     = "Manual"
)

// Position is one open paper trade. Created by the trade manager, marked to
// market on every update pass, removed on close. At most one exists per
// instrument at any time.
type Position struct {
	ID         string       `json:"id"`
	Symbol     string       `json:"sym"`
	Direction  Direction    `json:"type"`
	Entry      float64      `json:"entry"`
	Current    float64      `json:"cur"`
	TakeProfit float64      `json:"tp"`
	StopLoss   float64      `json:"sl"`
	Size       float64      `json:"sz"`
	Leverage   int          `json:"lev"`
	PnL        float64      `json:"pnl"`
	PnLPct     float64      `json:"pnl_pct"`
	PeakPnL    float64      `json:"max_pnl"`
	TroughPnL  float64      `json:"min_pnl"`
	Strategy   string       `json:"strat"`
	Reasons    []string     `json:"reasons"`
	Indicators IndicatorSet `json:"ind"`
	Candles    []Candle     `json:"klines"`
	OpenedAt   time.Time    `json:"t0"`
	Confidence float64      `json:"conf"`
}

// TradeRecord is the immutable summary of a closed position.
type TradeRecord struct {
	ID         int       `json:"id"`
	Symbol     string    `json:"sym"`
	Direction  Direction `json:"type"`
	Entry      float64   `json:"entry"`
	Exit       float64   `json:"exit"`
	TakeProfit float64   `json:"tp"`
	StopLoss   float64   `json:"sl"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Leverage   int       `json:"lev"`
	Strategy   string    `json:"strat"`
	Reasons    []string  `json:"reasons"`
	Reason     string    `json:"why"`
	ClosedAt   string    `json:"time"`
	Held       string    `json:"ht"`
	Won        bool      `json:"won"`
}
