// Package decision turns recent candle history into scored directional
// signals. Scoring is a sum of independent rule contributions; there is no
// model and no network dependency beyond the candle source.
package decision

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/cinar/indicator"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/mavrikis/helmsman/config"
	"github.com/mavrikis/helmsman/entity"
	"github.com/mavrikis/helmsman/ta"
	"github.com/mavrikis/helmsman/utils"
)

// CandleSource provides ordered candle series for an instrument.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]entity.Candle, error)
}

// Book exposes the position-manager state the engine needs: whether an
// instrument already has an open position, and the current strategy
// weights used for attribution sampling.
type Book interface {
	Has(symbol string) bool
	Weights() map[string]float64
}

// Analysis is the scored view of one instrument at one instant.
type Analysis struct {
	Symbol      string
	Price       float64
	Score       int
	Confidence  float64
	RSI         float64
	MACD        float64
	EMA20       float64
	EMA50       float64
	BBUpper     float64
	BBLower     float64
	ATR         float64
	VolumeRatio float64
	Reasons     []string
	Candles     []entity.Candle
}

// Engine computes signals. It owns the per-instrument candle cache: a
// failed refetch falls back to the last successful series so a transient
// outage does not blind the scan.
type Engine struct {
	source CandleSource
	book   Book
	log    zerolog.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	cache map[string][]entity.Candle
}

// New creates a decision engine. The RNG is injected so tests can pin the
// strategy and leverage draws.
func New(source CandleSource, book Book, rng *rand.Rand, log zerolog.Logger) *Engine {
	return &Engine{
		source: source,
		book:   book,
		log:    log.With().Str("component", "decision").Logger(),
		rng:    rng,
		cache:  make(map[string][]entity.Candle),
	}
}

// candles returns the freshest series available for symbol: a new fetch
// when it succeeds, otherwise the cached one.
func (e *Engine) candles(ctx context.Context, symbol string) []entity.Candle {
	fresh, err := e.source.Candles(ctx, symbol, config.CandleInterval, config.CandleLimit)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil && len(fresh) > 0 {
		e.cache[symbol] = fresh
		return fresh
	}
	if err != nil {
		e.log.Debug().Err(err).Str("symbol", symbol).Msg("Candle refetch failed, using cache")
	}
	return e.cache[symbol]
}

// Analyze scores one instrument from its recent 5m candles. Returns nil
// when fewer than MinCandles bars are available; it never returns an
// error, absence means "skip this instrument this cycle".
func (e *Engine) Analyze(ctx context.Context, symbol string) *Analysis {
	candles := e.candles(ctx, symbol)
	if len(candles) < config.MinCandles {
		return nil
	}

	closes := lo.Map(candles, func(k entity.Candle, _ int) float64 { return k.Close })
	volumes := lo.Map(candles, func(k entity.Candle, _ int) float64 { return k.Volume })
	price := closes[len(closes)-1]

	rsi := ta.RSI(closes, config.RSIPeriod)
	macd, macdSignal := ta.MACD(closes)
	ema20 := ta.EMA(closes, 20)
	ema50 := ta.EMA(closes, 50)
	bbUpper, _, bbLower := ta.Bollinger(closes, config.BollingerPeriod)
	atr := ta.ATR(candles, config.ATRPeriod)

	volRatio := 1.0
	if avg := lo.LastOrEmpty(indicator.Sma(config.VolumePeriod, volumes)); avg > 0 {
		volRatio = volumes[len(volumes)-1] / avg
	}

	score := 0
	var reasons []string
	add := func(delta int, reason string) {
		score += delta
		reasons = append(reasons, reason)
	}

	switch {
	case rsi < 25:
		add(3, fmt.Sprintf("RSI oversold %.0f", rsi))
	case rsi < 32:
		add(2, fmt.Sprintf("RSI sell zone %.0f", rsi))
	case rsi > 75:
		add(-3, fmt.Sprintf("RSI overbought %.0f", rsi))
	case rsi > 68:
		add(-2, fmt.Sprintf("RSI buy zone %.0f", rsi))
	}

	switch {
	case macd > macdSignal && macd > 0:
		add(2, "MACD strong bullish")
	case macd > macdSignal:
		add(1, "MACD turning up")
	case macd < macdSignal && macd < 0:
		add(-2, "MACD strong bearish")
	case macd < macdSignal:
		add(-1, "MACD turning down")
	}

	if price > ema20 && ema20 > ema50 {
		add(1, "EMA uptrend")
	} else if price < ema20 && ema20 < ema50 {
		add(-1, "EMA downtrend")
	}

	if price < bbLower*1.001 {
		add(2, "Lower Bollinger break")
	} else if price > bbUpper*0.999 {
		add(-2, "Upper Bollinger break")
	}

	if volRatio > 2.5 {
		add(1, fmt.Sprintf("Volume surge x%.1f", volRatio))
	}

	// Hammer-like bar: small body relative to the full range, closing up.
	last := candles[len(candles)-1]
	body := price - closes[len(closes)-2]
	if body < 0 {
		body = -body
	}
	if wick := last.High - last.Low; wick > 0 && body/wick < 0.3 && price > closes[len(closes)-2] {
		add(1, "Hammer pattern")
	}

	confidence := float64(abs(score)) / config.ScoreScale * 100
	if confidence > config.ConfidenceCap {
		confidence = config.ConfidenceCap
	}

	return &Analysis{
		Symbol:      symbol,
		Price:       price,
		Score:       score,
		Confidence:  confidence,
		RSI:         utils.RoundTo(rsi, 1),
		MACD:        utils.RoundTo(macd, 6),
		EMA20:       utils.RoundTo(ema20, 6),
		EMA50:       utils.RoundTo(ema50, 6),
		BBUpper:     utils.RoundTo(bbUpper, 6),
		BBLower:     utils.RoundTo(bbLower, 6),
		ATR:         utils.RoundTo(atr, 6),
		VolumeRatio: utils.RoundTo(volRatio, 2),
		Reasons:     reasons,
		Candles:     lo.Subset(candles, -config.SignalWindow, uint(config.SignalWindow)),
	}
}

// Decide returns a signal for symbol, or nil when no trade is warranted:
// the instrument already holds a position, there is not enough data, the
// score is inside (−ScoreThreshold, ScoreThreshold), or confidence is below
// the floor.
func (e *Engine) Decide(ctx context.Context, symbol string) *entity.Signal {
	if e.book.Has(symbol) {
		return nil
	}

	a := e.Analyze(ctx, symbol)
	if a == nil {
		return nil
	}

	var direction entity.Direction
	switch {
	case a.Score >= config.ScoreThreshold:
		direction = entity.Long
	case a.Score <= -config.ScoreThreshold:
		direction = entity.Short
	default:
		return nil
	}
	if a.Confidence < config.MinConfidence {
		return nil
	}

	sig := &entity.Signal{
		Symbol:     symbol,
		Direction:  direction,
		Price:      a.Price,
		Confidence: a.Confidence,
		Reasons:    a.Reasons,
		Strategy:   e.pickStrategy(),
		Leverage:   e.pickLeverage(),
		ATR:        a.ATR,
		Indicators: entity.IndicatorSet{
			RSI:         a.RSI,
			MACD:        a.MACD,
			EMA20:       a.EMA20,
			EMA50:       a.EMA50,
			BBUpper:     a.BBUpper,
			BBLower:     a.BBLower,
			VolumeRatio: a.VolumeRatio,
		},
		Candles: a.Candles,
	}
	e.log.Debug().Stringer("signal", sig).Msg("Entry signal")
	return sig
}

// pickStrategy samples a strategy label with probability proportional to
// its current weight (cumulative-sum roulette). The iteration order is
// fixed by sorting so a seeded RNG yields reproducible draws. A
// floating-point overshoot falls back to the default label.
func (e *Engine) pickStrategy() string {
	weights := e.book.Weights()
	names := lo.Keys(weights)
	sort.Strings(names)

	var total float64
	for _, n := range names {
		total += weights[n]
	}
	if total <= 0 {
		return config.DefaultStrategy
	}

	e.mu.Lock()
	r := e.rng.Float64() * total
	e.mu.Unlock()

	var cum float64
	for _, n := range names {
		cum += weights[n]
		if r <= cum {
			return n
		}
	}
	return config.DefaultStrategy
}

// pickLeverage draws uniformly from the fixed leverage set.
func (e *Engine) pickLeverage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return config.Leverages[e.rng.Intn(len(config.Leverages))]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
