package config

import "time"

const (
	// CandleInterval is the bar size used for signal analysis.
	CandleInterval = "5m"
	// CandleLimit is how many bars are fetched per analysis pass; needs to
	// be long enough for EMA50.
	CandleLimit = 60
	// MinCandles is the minimum series length required before an
	// instrument may be scored.
	MinCandles = 30
	// SignalWindow is the trailing candle window kept on a signal for
	// charting.
	SignalWindow = 40
	// SnapshotWindow is the candle window embedded per position in the
	// state snapshot.
	SnapshotWindow = 30

	RSIPeriod       = 14
	BollingerPeriod = 20
	ATRPeriod       = 14
	VolumePeriod    = 20

	// ScoreThreshold is the minimum absolute score for a directional
	// signal; ScoreScale and ConfidenceCap shape the confidence value.
	ScoreThreshold = 3
	ScoreScale     = 9.0
	ConfidenceCap  = 96.0
	MinConfidence  = 45.0

	// Position sizing and exit placement. TP/SL distances scale linearly
	// with leverage relative to LeverageBaseline.
	PositionFraction = 0.08
	TakeProfitStep   = 0.018
	StopLossStep     = 0.007
	LeverageBaseline = 3.0

	// Strategy weight adaptation bounds and step sizes.
	WeightMin   = 0.1
	WeightMax   = 3.0
	WinReward   = 0.15
	LossPenalty = 0.05

	// Bounded in-memory stores.
	HistoryCap = 100
	CurveCap   = 80
	EventCap   = 300

	// Truncated views returned in the snapshot.
	HistoryView = 40
	EventView   = 60

	// Universe sizing: extra eligible symbols appended after the priority
	// intersection, and the fallback count when the exchange is
	// unreachable at startup.
	UniverseExtra    = 20
	UniverseFallback = 10

	// DecideEvery is the tick modulus for the entry scan; SampleSize is
	// how many instruments each scan considers.
	DecideEvery = 5
	SampleSize  = 4

	DefaultLoopInterval    = 3 * time.Second
	DefaultPriceRefresh    = 6 * time.Second
	DefaultTickerRefresh   = 25 * time.Second
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultMaxPositions    = 6
	DefaultStartingBalance = 10000.0
)

// Leverages is the fixed set the decision engine draws from.
var Leverages = []int{2, 3, 5}

// DefaultStrategy is the fallback label when the weighted draw overshoots
// on a floating-point edge.
const DefaultStrategy = "Trend Following"

// Strategies are the heuristic attribution buckets, all starting at weight
// 1.0. They label trades for outcome-weighted adaptation, they are not
// distinct algorithms.
var Strategies = []string{"Trend Following", "Mean Reversion", "Breakout", "Scalping"}

// PrioritySymbols is the curated, ordered instrument list. The working set
// for a run is the intersection of this list with the exchange's tradable
// USDT perpetuals, in this order.
var PrioritySymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT",
	"ADAUSDT", "DOGEUSDT", "DOTUSDT", "MATICUSDT", "AVAXUSDT",
	"LINKUSDT", "UNIUSDT", "LTCUSDT", "BCHUSDT", "ATOMUSDT",
	"ETCUSDT", "APTUSDT", "ARBUSDT", "OPUSDT", "NEARUSDT",
	"ICPUSDT", "VETUSDT", "INJUSDT", "STXUSDT", "THETAUSDT",
	"ALGOUSDT", "FTMUSDT", "SANDUSDT", "MANAUSDT", "AXSUSDT",
	"GALAUSDT", "CHZUSDT", "SUSHIUSDT", "AAVEUSDT", "COMPUSDT",
	"GRTUSDT", "CRVUSDT", "RUNEUSDT", "SNXUSDT", "1INCHUSDT",
	"FILUSDT", "ROSEUSDT", "ENJUSDT", "BATUSDT", "BALUSDT",
	"MKRUSDT", "YFIUSDT", "KSMUSDT", "KNCUSDT", "BANDUSDT",
	"SUIUSDT", "SXPUSDT", "ZILUSDT", "QNTUSDT", "EGLDUSDT",
	"FLOWUSDT", "HBARUSDT", "XLMUSDT", "XTZUSDT", "EOSUSDT",
	"TRXUSDT", "DASHUSDT", "ONTUSDT", "CELOUSDT", "LRCUSDT",
	"OCEANUSDT", "STORJUSDT", "RENUSDT", "SKLUSDT", "FETUSDT",
}
