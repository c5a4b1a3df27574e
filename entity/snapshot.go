package entity

// Event is one entry of the bounded engine event log, newest first.
type Event struct {
	Time    string `json:"t"`
	Message string `json:"msg"`
	Level   string `json:"lvl"`
}

// Event levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelTrade   = "trade"
	LevelWarn    = "warn"
	LevelError   = "error"
)

// Snapshot is the read-only state view consumed by the dashboard. It is
// assembled from clones; holding one never aliases live engine state.
type Snapshot struct {
	Balance     float64             `json:"balance"`
	TotalPnL    float64             `json:"total_pnl"`
	TotalPnLPct float64             `json:"total_pnl_pct"`
	Trades      int                 `json:"trades"`
	Wins        int                 `json:"wins"`
	WinRate     float64             `json:"wr"`
	Active      int                 `json:"active"`
	Positions   map[string]Position `json:"positions"`
	History     []TradeRecord       `json:"history"`
	Strategies  map[string]float64  `json:"strategies"`
	Coins       map[string]Ticker   `json:"coins"`
	Running     bool                `json:"running"`
	Curve       []float64           `json:"curve"`
	Events      []Event             `json:"events"`
}
