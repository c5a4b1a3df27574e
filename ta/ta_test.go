package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavrikis/helmsman/entity"
)

func risingPrices(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestRSI(t *testing.T) {
	t.Run("insufficient data returns neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI([]float64{100, 101, 102}, 14))
	})

	t.Run("zero average loss returns 100", func(t *testing.T) {
		// Strictly rising window: every delta is a gain.
		assert.Equal(t, 100.0, RSI(risingPrices(20, 100, 0.5), 14))
	})

	t.Run("flat window also hits the zero-loss branch", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = 100
		}
		assert.Equal(t, 100.0, RSI(prices, 14))
	})

	t.Run("zero average gain returns 0", func(t *testing.T) {
		// Strictly falling window: zero gains, the standard formula
		// collapses to 100-100/1.
		assert.Equal(t, 0.0, RSI(risingPrices(20, 100, -0.5), 14))
	})

	t.Run("balanced series lands mid range", func(t *testing.T) {
		prices := []float64{100}
		for i := 0; i < 20; i++ {
			if i%2 == 0 {
				prices = append(prices, prices[len(prices)-1]+1)
			} else {
				prices = append(prices, prices[len(prices)-1]-1)
			}
		}
		rsi := RSI(prices, 14)
		assert.InDelta(t, 50.0, rsi, 10.0)
	})
}

func TestEMA(t *testing.T) {
	t.Run("empty series returns zero", func(t *testing.T) {
		assert.Zero(t, EMA(nil, 20))
	})

	t.Run("short series returns last price", func(t *testing.T) {
		assert.Equal(t, 103.0, EMA([]float64{101, 102, 103}, 20))
	})

	t.Run("constant series returns the constant", func(t *testing.T) {
		prices := make([]float64, 30)
		for i := range prices {
			prices[i] = 42
		}
		assert.InDelta(t, 42.0, EMA(prices, 20), 1e-9)
	})

	t.Run("tracks a rising series below the last price", func(t *testing.T) {
		prices := risingPrices(60, 100, 1)
		ema := EMA(prices, 20)
		assert.Less(t, ema, prices[len(prices)-1])
		assert.Greater(t, ema, prices[len(prices)-20])
	})
}

func TestMACD(t *testing.T) {
	t.Run("insufficient data returns zeros", func(t *testing.T) {
		macd, signal := MACD(risingPrices(25, 100, 1))
		assert.Zero(t, macd)
		assert.Zero(t, signal)
	})

	t.Run("signal is the fixed scalar of macd", func(t *testing.T) {
		macd, signal := MACD(risingPrices(60, 100, 1))
		require.Greater(t, macd, 0.0)
		assert.InDelta(t, macd*0.85, signal, 1e-12)
	})

	t.Run("constant series has zero macd", func(t *testing.T) {
		prices := make([]float64, 40)
		for i := range prices {
			prices[i] = 100
		}
		macd, signal := MACD(prices)
		assert.InDelta(t, 0.0, macd, 1e-9)
		assert.InDelta(t, 0.0, signal, 1e-9)
	})
}

func TestBollinger(t *testing.T) {
	t.Run("empty series collapses onto zero", func(t *testing.T) {
		upper, middle, lower := Bollinger(nil, 20)
		assert.Zero(t, upper)
		assert.Zero(t, middle)
		assert.Zero(t, lower)
	})

	t.Run("insufficient data collapses onto last price", func(t *testing.T) {
		upper, middle, lower := Bollinger([]float64{100, 110}, 20)
		assert.Equal(t, 110.0, upper)
		assert.Equal(t, 110.0, middle)
		assert.Equal(t, 110.0, lower)
	})

	t.Run("known window", func(t *testing.T) {
		// Population std-dev of this window is exactly 2, mean is 5.
		prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
		upper, middle, lower := Bollinger(prices, 8)
		assert.InDelta(t, 9.0, upper, 1e-9)
		assert.InDelta(t, 5.0, middle, 1e-9)
		assert.InDelta(t, 1.0, lower, 1e-9)
	})

	t.Run("constant series has zero width", func(t *testing.T) {
		prices := make([]float64, 25)
		for i := range prices {
			prices[i] = 50
		}
		upper, middle, lower := Bollinger(prices, 20)
		assert.Equal(t, 50.0, upper)
		assert.Equal(t, 50.0, middle)
		assert.Equal(t, 50.0, lower)
	})
}

func TestATR(t *testing.T) {
	flatCandle := func(price, spread float64) entity.Candle {
		return entity.Candle{
			Open:  price,
			High:  price + spread,
			Low:   price - spread,
			Close: price,
		}
	}

	t.Run("insufficient data returns zero", func(t *testing.T) {
		candles := []entity.Candle{flatCandle(100, 1), flatCandle(100, 1)}
		assert.Zero(t, ATR(candles, 14))
	})

	t.Run("steady range equals the candle range", func(t *testing.T) {
		var candles []entity.Candle
		for i := 0; i < 20; i++ {
			candles = append(candles, flatCandle(100, 1))
		}
		// TR = high-low = 2 for every bar.
		assert.InDelta(t, 2.0, ATR(candles, 14), 1e-9)
	})

	t.Run("gap bars widen the true range", func(t *testing.T) {
		var candles []entity.Candle
		for i := 0; i < 20; i++ {
			// Each close gaps 10 above the previous close; the
			// |high−prevClose| leg dominates.
			candles = append(candles, flatCandle(100+float64(i)*10, 1))
		}
		assert.InDelta(t, 11.0, ATR(candles, 14), 1e-9)
	})
}
