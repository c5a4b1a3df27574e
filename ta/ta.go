// Package ta provides the technical indicators used by the decision
// engine. All functions are total: short input degrades to a neutral value
// instead of an error, and callers treat those neutral outputs as "no
// opinion" rather than failures.
package ta

import (
	"math"

	"github.com/mavrikis/helmsman/entity"
	"github.com/mavrikis/helmsman/utils"
)

// RSI computes a Wilder-style relative strength index over the trailing
// `period` price deltas. Returns 50 on insufficient data and 100 when the
// average loss is exactly zero.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i] - prices[i-1]
	}

	var gains, losses float64
	for _, d := range deltas[len(deltas)-period:] {
		if d > 0 {
			gains += d
		} else {
			losses += -d
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	return 100 - (100 / (1 + avgGain/avgLoss))
}

// EMA computes an exponential moving average seeded at the period-th
// observation from the end. A series shorter than the period returns the
// last price; an empty series returns 0.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}

	mult := 2.0 / float64(period+1)
	ema := prices[len(prices)-period]
	for _, p := range prices[len(prices)-period+1:] {
		ema = (p-ema)*mult + ema
	}
	return ema
}

// MACD returns the EMA12−EMA26 difference and a signal line. The signal is
// a fixed 0.85 scalar of the MACD value rather than a true EMA-of-MACD; the
// simplification is deliberate and load-bearing for the score table, do not
// "fix" it without retuning the thresholds.
func MACD(prices []float64) (macd, signal float64) {
	if len(prices) < 26 {
		return 0, 0
	}
	macd = EMA(prices, 12) - EMA(prices, 26)
	return macd, macd * 0.85
}

// Bollinger returns the upper band, middle band and lower band: mean ±
// 2×population standard deviation over the trailing window. Insufficient
// data collapses all three onto the last price; an empty series collapses
// onto 0.
func Bollinger(prices []float64, period int) (upper, middle, lower float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	if len(prices) < period {
		last := prices[len(prices)-1]
		return last, last, last
	}

	window := prices[len(prices)-period:]
	middle = utils.Avg(window)
	std := utils.PopStdDev(window)
	return middle + 2*std, middle, middle - 2*std
}

// ATR is the mean of the last `period` true ranges, where the true range of
// a candle is max(high−low, |high−prevClose|, |low−prevClose|). Returns 0
// on insufficient data.
func ATR(candles []entity.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		h, l, pc := candles[i].High, candles[i].Low, candles[i-1].Close
		tr := math.Max(h-l, math.Max(math.Abs(h-pc), math.Abs(l-pc)))
		trs = append(trs, tr)
	}
	return utils.Avg(trs[len(trs)-period:])
}
