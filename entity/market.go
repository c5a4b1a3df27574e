package entity

// Candle is one OHLCV bar for a single instrument and interval.
// Sequences are always ordered oldest to newest and are immutable once
// fetched.
type Candle struct {
	OpenTime int64   `json:"t"`
	Open     float64 `json:"o"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
}

// Ticker holds the cached 24h statistics for one instrument.
type Ticker struct {
	Price       float64 `json:"price"`
	Change      float64 `json:"change"`
	Volume      float64 `json:"volume"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	QuoteVolume float64 `json:"quoteVolume"`
}
